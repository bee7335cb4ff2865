package middleware

import (
	"net/http"

	"github.com/go-otp-auth/internal/domain"
)

// SessionCookieName is the cookie carrying the credential for browser flows.
const SessionCookieName = "token"

// SetSessionCookie stores cred in an HttpOnly, SameSite=Strict cookie that
// lives exactly as long as the credential.
func SetSessionCookie(w http.ResponseWriter, cred *domain.Credential, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    cred.Token,
		Path:     "/",
		MaxAge:   int(cred.MaxAge().Seconds()),
		Expires:  cred.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearSessionCookie instructs the client to drop the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}
