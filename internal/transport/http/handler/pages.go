package handler

import (
	"net/http"

	"github.com/go-otp-auth/internal/transport/http/middleware"
)

// Dashboard is the sample protected resource behind the access gate.
func Dashboard(w http.ResponseWriter, r *http.Request) {
	subject, ok := middleware.SubjectFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, SubjectEnvelope{UserID: subject})
}

// LoginPage is where the gate sends unauthenticated browsers.
func LoginPage(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "POST /v1/login with email and password to sign in"})
}
