package backend

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HeaderRetryAfter is the retry-after header (seconds or HTTP date).
const HeaderRetryAfter = "Retry-After"

// maxRetryAfter caps how long a single Retry-After can pause outbound calls.
const maxRetryAfter = 2 * time.Minute

// RateLimiter throttles outbound calls to the remote service.
// A token bucket paces calls and a Retry-After answer pauses them.
type RateLimiter struct {
	mu           sync.Mutex
	bucket       *rate.Limiter
	blockedUntil time.Time
	now          func() time.Time
}

// NewRateLimiter creates a limiter allowing perSecond calls with a burst of one.
func NewRateLimiter(perSecond float64) *RateLimiter {
	return &RateLimiter{
		bucket: rate.NewLimiter(limitFor(perSecond), 1),
		now:    time.Now,
	}
}

// SetRate changes the steady call rate.
func (r *RateLimiter) SetRate(perSecond float64) {
	r.bucket.SetLimit(limitFor(perSecond))
}

// Wait blocks until it's safe to make a request.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	wait := r.blockedUntil.Sub(r.now())
	r.mu.Unlock()

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.bucket.Wait(ctx)
}

// Observe records a Retry-After from a 429 or 503 response.
// It reports whether the response asked us to back off.
func (r *RateLimiter) Observe(resp *http.Response) bool {
	if resp == nil {
		return false
	}
	if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusServiceUnavailable {
		return false
	}

	delay, ok := parseRetryAfter(resp.Header.Get(HeaderRetryAfter), r.now())
	if !ok {
		return resp.StatusCode == http.StatusTooManyRequests
	}
	if delay > maxRetryAfter {
		delay = maxRetryAfter
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if until := r.now().Add(delay); until.After(r.blockedUntil) {
		r.blockedUntil = until
	}
	return true
}

// BlockedUntil returns when the current back-off ends.
func (r *RateLimiter) BlockedUntil() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blockedUntil
}

func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}

func limitFor(perSecond float64) rate.Limit {
	if perSecond <= 0 {
		return rate.Inf
	}
	return rate.Limit(perSecond)
}
