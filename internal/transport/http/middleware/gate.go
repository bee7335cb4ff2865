package middleware

import (
	"log/slog"
	"net/http"

	"github.com/go-otp-auth/internal/config"
	jwtinfra "github.com/go-otp-auth/internal/infrastructure/jwt"
)

// Gate redirects unauthenticated requests for protected paths to loginPath.
// See config.IsProtectedPath for the matching rule. Requests to other paths
// pass through untouched.
func Gate(provider *jwtinfra.Provider, prefixes []string, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.IsProtectedPath(r.URL.Path, prefixes) {
				next.ServeHTTP(w, r)
				return
			}
			c, err := r.Cookie(SessionCookieName)
			if err != nil || c.Value == "" {
				slog.Debug("gate redirect", "path", r.URL.Path, "reason", "no credential")
				http.Redirect(w, r, loginPath, http.StatusTemporaryRedirect)
				return
			}
			subject, err := provider.Verify(c.Value)
			if err != nil {
				slog.Debug("gate redirect", "path", r.URL.Path, "reason", "invalid credential")
				http.Redirect(w, r, loginPath, http.StatusTemporaryRedirect)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), subject)))
		})
	}
}
