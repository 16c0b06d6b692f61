package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"incasso-core/internal/repository"
)

type ctxKey string

const (
	UserIDKey   ctxKey = "userID"
	TenantIDKey ctxKey = "tenantID"
)

// TokenMiddleware authenticates requests with a personal access token, from
// the Authorization header or, for websocket upgrades, the token query
// parameter. The authenticated operator and their tenant go into the request
// context.
func TokenMiddleware(tokenRepo *repository.PersonalAccessTokenRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			plainToken := ""

			authHeader := r.Header.Get("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				plainToken = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			}
			if plainToken == "" {
				plainToken = r.URL.Query().Get("token")
			}
			if plainToken == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			pat, err := tokenRepo.FindTokenByPlainToken(r.Context(), plainToken)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if pat.ExpiresAt != nil && pat.ExpiresAt.Before(time.Now()) {
				http.Error(w, "Token expired", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, pat.UserID)
			ctx = context.WithValue(ctx, TenantIDKey, pat.TenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUserID(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	if !ok {
		return 0, errors.New("userID not found in context")
	}
	return userID, nil
}

func GetTenantID(ctx context.Context) (int64, error) {
	tenantID, ok := ctx.Value(TenantIDKey).(int64)
	if !ok {
		return 0, errors.New("tenantID not found in context")
	}
	return tenantID, nil
}
