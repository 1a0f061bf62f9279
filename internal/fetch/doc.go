// Package fetch retrieves web pages and API resources politely.
//
// A Fetcher issues one GET at a time and sleeps for the configured delay
// before every request. The delay is per call: fetching N pages takes at
// least N times the delay. Every request carries an identifying
// User-Agent plus Accept and Accept-Language headers; per-host extra
// headers (cookies, API keys) can be attached with WithHostHeaders.
//
// Failures are reported as *Error values whose Kind separates HTTP status
// failures, timeouts and other transport errors:
//
//	resp, err := f.Fetch(ctx, u)
//	if errors.Is(err, fetch.ErrStatus) {
//	    // non-2xx response
//	}
//
// Bodies are read up to a byte ceiling. Hitting the ceiling never fails a
// fetch; the response is marked Truncated instead.
package fetch
