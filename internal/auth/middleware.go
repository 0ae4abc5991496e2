package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/taskboard/taskboard-be/internal/models"
)

// UserResolver looks up a user account by its email address.
type UserResolver interface {
	GetUserByEmail(email string) (models.User, error)
}

// userContextKey is the context key for the authenticated user.
type contextKey string

const userContextKey = contextKey("authUser")

// UserFromContext returns the authenticated user injected by Authenticator.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userContextKey).(models.User)
	return user, ok
}

// Authenticator creates a middleware for protecting routes. It resolves the
// bearer token, loads the matching user and injects it into the request
// context. All failure modes answer with the same 401 body so that callers
// cannot distinguish a bad token from a missing account.
func Authenticator(tokens *TokenManager, users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenStr string

			authHeader := r.Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.Split(authHeader, "Bearer ")
				if len(parts) == 2 {
					tokenStr = strings.TrimSpace(parts[1])
				}
			}

			if tokenStr == "" {
				unauthorized(w)
				return
			}

			subject, err := tokens.Resolve(tokenStr)
			if err != nil {
				unauthorized(w)
				return
			}

			user, err := users.GetUserByEmail(subject)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "could not validate credentials"})
}
