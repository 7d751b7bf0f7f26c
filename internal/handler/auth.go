package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/kjarisk/athena/internal/auth"
	"github.com/kjarisk/athena/internal/service"
)

// AuthHandler serves registration, login and logout. Sessions are JWTs in
// an HttpOnly cookie; the token is also returned in the body for API
// clients that send it as a bearer header.
type AuthHandler struct {
	svc          *service.AuthService
	tokenTTL     time.Duration
	secureCookie bool
	logger       *slog.Logger
}

func NewAuthHandler(svc *service.AuthService, tokenTTL time.Duration, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, tokenTTL: tokenTTL, secureCookie: secureCookie, logger: logger}
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister serves POST /auth/register.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	h.setSession(w, res.Token)
	writeJSON(w, http.StatusCreated, res)
}

// HandleLogin serves POST /auth/login.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	h.setSession(w, res.Token)
	writeJSON(w, http.StatusOK, res)
}

// HandleLogout serves POST /auth/logout. Tokens are stateless, so logging
// out only deletes the cookie.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe serves GET /api/me.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	user, err := h.svc.Me(r.Context(), userID)
	if err != nil {
		h.logger.Warn("me: user lookup failed", slog.String("userID", userID), slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) setSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
