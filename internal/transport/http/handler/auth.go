package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-otp-auth/internal/application/auth"
	"github.com/go-otp-auth/internal/domain"
	"github.com/go-otp-auth/internal/transport/http/middleware"
)

type userFinder interface {
	FindByID(ctx context.Context, userID string) (*domain.User, error)
}

// AuthHandler handles registration, OTP verification, login and logout.
type AuthHandler struct {
	svc          auth.Service
	users        userFinder
	secureCookie bool
}

func NewAuthHandler(svc auth.Service, users userFinder, secureCookie bool) *AuthHandler {
	return &AuthHandler{svc: svc, users: users, secureCookie: secureCookie}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := h.svc.Register(r.Context(), req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageEnvelope{Message: auth.RegisteredMessage})
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cred, err := h.svc.Verify(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	middleware.SetSessionCookie(w, cred, h.secureCookie)
	writeJSON(w, http.StatusOK, TokenEnvelope{Token: cred.Token})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cred, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	middleware.SetSessionCookie(w, cred, h.secureCookie)
	writeJSON(w, http.StatusOK, TokenEnvelope{Token: cred.Token})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	middleware.ClearSessionCookie(w, h.secureCookie)
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "logged out"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	subject, ok := middleware.SubjectFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	u, err := h.users.FindByID(r.Context(), subject)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UserEnvelope{ID: u.UserID, Email: u.Email, Verified: u.Verified})
}
