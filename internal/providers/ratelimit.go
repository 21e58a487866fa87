package providers

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// requestLimiter spaces the calls to wait by a configurable minimum
// delay (spec.md §4.3 Rate limiting). It does not track outstanding
// requests: a caller may issue several requests after one wait.
// It generalizes the teacher's hand-rolled
// musicbrainz.Client.throttle (a mutex plus a last-request timestamp)
// into a reusable x/time/rate token bucket shared by every remote
// provider in this package.
type requestLimiter struct {
	lim *rate.Limiter
}

// newRequestLimiter builds a limiter that permits one request every
// delay, with no burst — a provider never gets to spend up saved-up
// capacity on a burst of parallel requests.
func newRequestLimiter(delay time.Duration) *requestLimiter {
	if delay <= 0 {
		delay = time.Millisecond
	}
	return &requestLimiter{lim: rate.NewLimiter(rate.Every(delay), 1)}
}

// wait blocks until the next request slot opens or ctx is done.
func (r *requestLimiter) wait(ctx context.Context) error {
	return r.lim.Wait(ctx)
}
