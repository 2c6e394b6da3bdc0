// Package retry wraps calls against flaky, rate-limited remote APIs.
//
// Do and DoWithResult classify failures through the Config predicates:
//   - AbortIf (permanent denial, e.g. HTTP 403): stop after one attempt
//   - RetryIf (rate limit, 5xx, network): wait Backoff.NextDelay(attempt), try again
//   - anything else: return immediately
//
// Once MaxAttempts transient failures have happened the returned error matches
// ErrExhausted. A panicking operation comes back as *PanicError. Callers must
// check the error; a nil error is the only signal that a result is present.
//
// Remote content calls use RemoteConfig:
//
//	cfg := retry.RemoteConfig(5, 2, log) // waits 2s, 4s, 8s, 16s
//	user, err := retry.DoWithResult(func() (*reddit.Account, error) {
//		return client.ResolveUser(ctx, name)
//	}, cfg.WithContext(ctx))
//
// Poll waits for an asynchronous remote state change with a hard budget and
// returns an error matching ErrPollTimeout when the budget runs out.
package retry
