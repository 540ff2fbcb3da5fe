// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	RetryBaseDelay = 1 * time.Millisecond
}

func serve(t *testing.T, h func(n int32, w http.ResponseWriter)) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		h(atomic.AddInt32(&calls, 1), w)
	}))
	t.Cleanup(ts.Close)
	return ts, &calls
}

func get(t *testing.T, ts *httptest.Server, ctx context.Context, maxRetries int) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)
	return DoWithRetry(ctx, ts.Client(), req, maxRetries)
}

func TestDoWithRetry(t *testing.T) {
	tests := []struct {
		name       string
		maxRetries int
		handler    func(n int32, w http.ResponseWriter)
		wantStatus int
		wantCalls  int32
	}{
		{
			name:       "immediate success",
			maxRetries: 5,
			handler:    func(_ int32, w http.ResponseWriter) { w.WriteHeader(http.StatusOK) },
			wantStatus: http.StatusOK,
			wantCalls:  1,
		},
		{
			name:       "429 then success",
			maxRetries: 5,
			handler: func(n int32, w http.ResponseWriter) {
				if n <= 2 {
					w.WriteHeader(http.StatusTooManyRequests)
					return
				}
				w.WriteHeader(http.StatusOK)
			},
			wantStatus: http.StatusOK,
			wantCalls:  3,
		},
		{
			name:       "503 then success",
			maxRetries: 5,
			handler: func(n int32, w http.ResponseWriter) {
				if n == 1 {
					w.WriteHeader(http.StatusServiceUnavailable)
					return
				}
				w.WriteHeader(http.StatusOK)
			},
			wantStatus: http.StatusOK,
			wantCalls:  2,
		},
		{
			name:       "exhausts retries",
			maxRetries: 3,
			handler:    func(_ int32, w http.ResponseWriter) { w.WriteHeader(http.StatusTooManyRequests) },
			wantStatus: http.StatusTooManyRequests,
			wantCalls:  4,
		},
		{
			name:       "default max retries",
			maxRetries: 0,
			handler:    func(_ int32, w http.ResponseWriter) { w.WriteHeader(http.StatusTooManyRequests) },
			wantStatus: http.StatusTooManyRequests,
			wantCalls:  6,
		},
		{
			name:       "other errors pass through",
			maxRetries: 5,
			handler:    func(_ int32, w http.ResponseWriter) { w.WriteHeader(http.StatusInternalServerError) },
			wantStatus: http.StatusInternalServerError,
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, calls := serve(t, tt.handler)
			resp, err := get(t, ts, context.Background(), tt.maxRetries)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(calls))
		})
	}
}

func TestDoWithRetry_RetryAfterHonoured(t *testing.T) {
	old := RetryBaseDelay
	RetryBaseDelay = time.Hour
	defer func() { RetryBaseDelay = old }()

	ts, calls := serve(t, func(n int32, w http.ResponseWriter) {
		if n == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := get(t, ts, ctx, 2)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestDoWithRetry_ContextCancelled(t *testing.T) {
	ts, _ := serve(t, func(_ int32, w http.ResponseWriter) { w.WriteHeader(http.StatusTooManyRequests) })

	old := RetryBaseDelay
	RetryBaseDelay = 500 * time.Millisecond
	defer func() { RetryBaseDelay = old }()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := get(t, ts, ctx, 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBackoff(t *testing.T) {
	old := RetryBaseDelay
	RetryBaseDelay = time.Second
	defer func() { RetryBaseDelay = old }()

	assert.Equal(t, time.Second, backoff(0, ""))
	assert.Equal(t, 4*time.Second, backoff(2, ""))
	assert.Equal(t, 7*time.Second, backoff(3, " 7 "))
	assert.Equal(t, MaxRetryAfter, backoff(0, "86400"))
	assert.Equal(t, 2*time.Second, backoff(1, "Wed, 21 Oct 2026 07:28:00 GMT"), "HTTP dates fall back to exponential backoff")
}
