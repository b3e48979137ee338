// Package handlers provides HTTP handlers for the API.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/fabriclabs/dcdash/internal/api/middleware"
	"github.com/fabriclabs/dcdash/internal/auth"
)

// AuthHandler handles login, logout and session status endpoints.
type AuthHandler struct {
	tokens   *auth.TokenValidator
	sessions *auth.SessionManager
	logger   *slog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(tokens *auth.TokenValidator, sessions *auth.SessionManager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		tokens:   tokens,
		sessions: sessions,
		logger:   logger,
	}
}

// Login validates the admin token file and establishes a session. The token
// is validated only here; the resulting session is trusted until logout or
// process restart.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	claims, err := h.tokens.Validate()
	if err != nil {
		h.logger.Info("login rejected", "error", err)
		WriteUnauthorized(w, err.Error())
		return
	}

	cookieValue, session, err := h.sessions.Create(claims)
	if err != nil {
		h.logger.Error("failed to create session", "error", err)
		WriteInternalError(w, "failed to create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    cookieValue,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user_email":    auth.EmailFromClaims(session.UserData),
	})
}

// Logout clears the session. It always succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(middleware.CookieValue(r))

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
}

// Status reports whether the caller has an active session.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(middleware.CookieValue(r))
	if err != nil {
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user_email":    auth.EmailFromClaims(session.UserData),
	})
}

// Info returns decoded metadata about the admin token file. Requires a
// session.
func (h *AuthHandler) Info(w http.ResponseWriter, r *http.Request) {
	info, err := h.tokens.Info()
	if err != nil {
		if errors.Is(err, auth.ErrTokenFileNotFound) {
			WriteNotFound(w, err.Error())
			return
		}
		h.logger.Error("failed to read token info", "error", err)
		WriteInternalError(w, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, info)
}
