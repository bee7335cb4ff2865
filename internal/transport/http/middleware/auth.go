package middleware

import (
	"context"
	"net/http"
	"strings"

	jwtinfra "github.com/go-otp-auth/internal/infrastructure/jwt"
)

type contextKey string

const SubjectKey contextKey = "subject"

// Auth returns middleware that validates the Bearer credential and injects its subject into context.
func Auth(provider *jwtinfra.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				unauthorized(w, "", "missing or invalid authorization header")
				return
			}
			subject, err := provider.Verify(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				unauthorized(w, "invalid_token", "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), subject)))
		})
	}
}

// WithSubject returns a copy of ctx carrying the authenticated user id.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, SubjectKey, subject)
}

// SubjectFromContext extracts the authenticated user id from the request context.
func SubjectFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(SubjectKey).(string)
	return s, ok && s != ""
}
