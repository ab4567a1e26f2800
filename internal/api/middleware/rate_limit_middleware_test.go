package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RoyceAzure/lab/foodorder/internal/constants"
	"github.com/RoyceAzure/lab/foodorder/internal/infra/ratelimit"
	"github.com/stretchr/testify/require"
)

type fakeLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (f *fakeLimiter) Allow(ctx context.Context, key string) (bool, error) {
	f.keys = append(f.keys, key)
	return f.allowed, f.err
}

func serveLimited(limiter *fakeLimiter) *httptest.ResponseRecorder {
	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	var l ratelimit.Limiter
	if limiter != nil {
		l = limiter
	}
	h = CallerIdentityMiddleware(NewRateLimitMiddleware(l, "checkout", nil)(h))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req.Header.Set(constants.HeaderUserID, "user-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitMiddleware(t *testing.T) {
	testCases := []struct {
		name    string
		limiter *fakeLimiter
		status  int
	}{
		{name: "allowed", limiter: &fakeLimiter{allowed: true}, status: http.StatusCreated},
		{name: "limited", limiter: &fakeLimiter{allowed: false}, status: http.StatusTooManyRequests},
		{name: "limiter error lets request through", limiter: &fakeLimiter{err: errors.New("redis down")}, status: http.StatusCreated},
		{name: "disabled", limiter: nil, status: http.StatusCreated},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serveLimited(tc.limiter)
			require.Equal(t, tc.status, rec.Code)
			if tc.limiter != nil {
				require.Equal(t, []string{"ratelimit:checkout:user-1"}, tc.limiter.keys)
			}
		})
	}
}
