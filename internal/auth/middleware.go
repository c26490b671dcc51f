package auth

import (
	"context"
	"fmt"
	"net/http"

	"flyerxpress/internal/logger"
	"flyerxpress/internal/models"
	"flyerxpress/internal/utils"
)

type contextKey string

const (
	sessionKey contextKey = "session"
	tokenKey   contextKey = "token"
)

// Revocations reports whether a token was signed out.
type Revocations interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// Middleware authenticates the bearer token and stores the caller's Session in
// the request context. The role comes from roleHeader and defaults to buyer.
func Middleware(verifier TokenVerifier, revocations Revocations, roleHeader string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", err)
				return
			}

			userID, err := verifier.Verify(r.Context(), rawToken)
			if err != nil {
				log.LogSecurity("INVALID_TOKEN", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", ErrUnauthorized)
				return
			}

			if revocations != nil {
				revoked, err := revocations.IsRevoked(r.Context(), rawToken)
				if err != nil {
					log.Error("AUTH", fmt.Sprintf("Revocation check failed: %v", err))
					utils.WriteError(w, http.StatusServiceUnavailable, "Authentication unavailable", nil)
					return
				}
				if revoked {
					log.LogSecurity("REVOKED_TOKEN", fmt.Sprintf("user %s used a signed-out token", userID))
					utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", ErrUnauthorized)
					return
				}
			}

			session := models.Session{
				UserID: userID,
				Role:   models.ParseRole(r.Header.Get(roleHeader)),
			}
			ctx := WithSession(r.Context(), session)
			ctx = context.WithValue(ctx, tokenKey, rawToken)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func WithSession(ctx context.Context, s models.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFrom returns the authenticated caller, if any.
func SessionFrom(ctx context.Context) (models.Session, bool) {
	s, ok := ctx.Value(sessionKey).(models.Session)
	return s, ok && s.UserID != ""
}

func tokenFrom(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey).(string)
	return t
}
