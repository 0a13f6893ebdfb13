package backend

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func responseWith(status int, retryAfter string) *http.Response {
	resp := &http.Response{StatusCode: status, Header: http.Header{}}
	if retryAfter != "" {
		resp.Header.Set(HeaderRetryAfter, retryAfter)
	}
	return resp
}

func TestRateLimiter_Observe(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		resp      *http.Response
		backedOff bool
		until     time.Time
	}{
		{"nil response", nil, false, time.Time{}},
		{"ok", responseWith(http.StatusOK, "10"), false, time.Time{}},
		{"429 seconds", responseWith(http.StatusTooManyRequests, "10"), true, now.Add(10 * time.Second)},
		{"503 http date", responseWith(http.StatusServiceUnavailable, now.Add(time.Minute).Format(http.TimeFormat)), true, now.Add(time.Minute)},
		{"429 without header", responseWith(http.StatusTooManyRequests, ""), true, time.Time{}},
		{"503 without header", responseWith(http.StatusServiceUnavailable, ""), false, time.Time{}},
		{"capped", responseWith(http.StatusTooManyRequests, "3600"), true, now.Add(maxRetryAfter)},
		{"garbage", responseWith(http.StatusTooManyRequests, "soon"), true, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := NewRateLimiter(10)
			limiter.now = func() time.Time { return now }

			assert.Equal(t, tt.backedOff, limiter.Observe(tt.resp))
			assert.Equal(t, tt.until, limiter.BlockedUntil())
		})
	}
}

func TestRateLimiter_ObserveKeepsLaterDeadline(t *testing.T) {
	limiter := NewRateLimiter(10)
	now := time.Now()
	limiter.now = func() time.Time { return now }

	limiter.Observe(responseWith(http.StatusTooManyRequests, "60"))
	limiter.Observe(responseWith(http.StatusTooManyRequests, "5"))

	assert.Equal(t, now.Add(60*time.Second), limiter.BlockedUntil())
}

func TestRateLimiter_WaitHonoursBackoff(t *testing.T) {
	limiter := NewRateLimiter(0)
	limiter.Observe(responseWith(http.StatusTooManyRequests, "60"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimiter_WaitUnlimited(t *testing.T) {
	limiter := NewRateLimiter(0)

	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Wait(context.Background()))
	}
}

func TestRateLimiter_PacesCalls(t *testing.T) {
	limiter := NewRateLimiter(0.001)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, limiter.Wait(ctx))

	limiter.SetRate(0)
	assert.NoError(t, limiter.Wait(context.Background()))
}
