// Package ratelimit paces outbound Reddit requests and inbound task submissions.
//
// Token Bucket:
//   - Fixed capacity bucket that refills after a specified period
//   - Used to cap how many analyses a client can submit per minute
//
// Sliding Window:
//   - Tracks requests within a moving time window
//   - Used for the Reddit API request budget
//
// Throttle wraps either limiter with a pause driven by the remote side's
// rate limit headers.
//
//	limiter := ratelimit.NewThrottle(ratelimit.NewSlidingWindow(60, time.Minute))
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
//	// Proceed with request
package ratelimit
