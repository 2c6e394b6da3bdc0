// Package reddit is an application-only client for the Reddit OAuth API.
//
// It authenticates with the client-credentials grant, caches the bearer
// token, paces requests through a ratelimit.Throttle and pauses when Reddit's
// X-Ratelimit headers report an exhausted quota. Every failure is returned as
// a typed *errors.Error so callers can tell transient faults from permanent ones.
package reddit
