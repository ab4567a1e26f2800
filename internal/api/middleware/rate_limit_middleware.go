package middleware

import (
	"fmt"
	"net/http"

	"github.com/RoyceAzure/lab/foodorder/internal/api/response"
	"github.com/RoyceAzure/lab/foodorder/internal/infra/ratelimit"
	"github.com/rs/zerolog"
)

/*
NewRateLimitMiddleware 以呼叫者為單位限流，需放在 CallerIdentityMiddleware 之後
limiter 為 nil 時不限流
redis 錯誤時放行並記 log
*/
func NewRateLimitMiddleware(limiter ratelimit.Limiter, scope string, logger *zerolog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := GetCallerAuth(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := limiter.Allow(r.Context(), fmt.Sprintf("ratelimit:%s:%s", scope, caller.UserID))
			if err != nil {
				logger.Warn().Err(err).
					Str("request_id", GetRequestID(r.Context())).
					Str("user_id", caller.UserID).
					Msg("rate limiter unavailable")
			} else if !allowed {
				response.ErrorJSON(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
