package middleware

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"smsgateway/internal/auth"
)

type contextKey string

const userIDKey contextKey = "user_id"

const APIKeyHeader = "X-API-Key"

// APIKeyResolver maps an active API key to its owner.
type APIKeyResolver interface {
	ResolveActive(ctx context.Context, key string) (string, error)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Auth accepts a bearer JWT or, when keys is set, an X-API-Key header.
func Auth(secret string, keys APIKeyResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := r.Header.Get(APIKeyHeader); key != "" && keys != nil {
				userID, err := keys.ResolveActive(r.Context(), key)
				if errors.Is(err, sql.ErrNoRows) {
					deny(w, http.StatusUnauthorized, "invalid_api_key", "invalid or inactive api key")
					return
				}
				if err != nil {
					deny(w, http.StatusInternalServerError, "internal_error", "unable to verify api key")
					return
				}
				next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
				return
			}
			header := r.Header.Get("Authorization")
			if header == "" {
				deny(w, http.StatusUnauthorized, "unauthorized", "missing authorization header")
				return
			}
			scheme, token, found := strings.Cut(header, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
				deny(w, http.StatusUnauthorized, "unauthorized", "invalid authorization header")
				return
			}
			claims, err := auth.ParseToken(secret, token)
			if err != nil {
				deny(w, http.StatusUnauthorized, "invalid_token", "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.UserID)))
		})
	}
}
