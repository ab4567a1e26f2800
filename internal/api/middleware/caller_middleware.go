package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/RoyceAzure/lab/foodorder/internal/api/response"
	"github.com/RoyceAzure/lab/foodorder/internal/constants"
	"github.com/RoyceAzure/lab/foodorder/internal/domain/model"
)

// CallerIdentityMiddleware 讀取 gateway 驗證後帶入的使用者身分
// 沒有 X-User-ID 時直接回 401
func CallerIdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(constants.HeaderUserID))
		if userID == "" {
			response.ErrorJSON(w, http.StatusUnauthorized, "missing caller identity")
			return
		}

		caller := model.CallerAuth{
			UserID: userID,
			Token:  r.Header.Get(constants.HeaderAuthorization),
		}
		ctx := WithCallerAuth(r.Context(), caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func WithCallerAuth(ctx context.Context, caller model.CallerAuth) context.Context {
	return context.WithValue(ctx, constants.CallerAuthKey, caller)
}

func GetCallerAuth(ctx context.Context) (model.CallerAuth, bool) {
	caller, ok := ctx.Value(constants.CallerAuthKey).(model.CallerAuth)
	return caller, ok
}
