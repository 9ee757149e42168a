package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/haperhq/haper-auth/internal/token"
)

type contextKey struct{}

var userIDKey = contextKey{}

// UserIDFromContext returns the authenticated user id stored by RequireAuth.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok
}

// RequireAuth guards protected routes: it reads the session cookie, verifies
// the token and stores the user id in the request context, or short-circuits
// with 401.
func RequireAuth(issuer *token.Issuer, cookieName string, logger *zerolog.Logger) func(http.Handler) http.Handler {
	rs := &responder{logger: logger}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()

			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				rs.fail(w, r, started, CodeInvalidAuth, "no token found", nil)
				return
			}

			userID, err := issuer.Verify(cookie.Value)
			if err != nil {
				if errors.Is(err, token.ErrTokenExpired) {
					rs.fail(w, r, started, CodeInvalidAuth, "token has expired", nil)
					return
				}

				rs.fail(w, r, started, CodeInvalidAuth, "invalid token", nil)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
