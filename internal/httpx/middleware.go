package httpx

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey int

const userIDKey ctxKey = iota

// Auth: Bearer token -> user id di context. verify dipasok dari auth.TokenIssuer.
func Auth(verify func(token string) (string, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const prefix = "Bearer "
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, prefix) {
				errJSON(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			userID, err := verify(strings.TrimPrefix(h, prefix))
			if err != nil {
				errJSON(w, http.StatusUnauthorized, "invalid token")
				return
			}
			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID: id user hasil middleware Auth; kosong kalau route tanpa auth.
func UserID(ctx context.Context) string {
	s, _ := ctx.Value(userIDKey).(string)
	return s
}
