package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fabriclabs/dcdash/internal/auth"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "dcdash_session"

type contextKey string

// sessionKey is the context key for the authenticated session.
const sessionKey contextKey = "session"

// GetSession extracts the authenticated session from the request context.
func GetSession(ctx context.Context) *auth.Session {
	if s, ok := ctx.Value(sessionKey).(*auth.Session); ok {
		return s
	}
	return nil
}

// SessionGate rejects requests that do not carry an active session. The
// token file is not re-validated here: session state, once established, is
// trusted until logout or process restart.
type SessionGate struct {
	sessions *auth.SessionManager
	logger   *slog.Logger
}

// NewSessionGate creates a session gate middleware.
func NewSessionGate(sessions *auth.SessionManager, logger *slog.Logger) *SessionGate {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionGate{sessions: sessions, logger: logger}
}

// Require is a middleware that resolves the session cookie and stores the
// session in the request context, rejecting with 401 when absent.
func (g *SessionGate) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := g.sessions.Get(CookieValue(r))
		if err != nil {
			g.logger.Debug("session check failed", "path", r.URL.Path, "error", err)
			writeUnauthorized(w, "Authentication required")
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CookieValue returns the raw session cookie value, or "" when absent.
func CookieValue(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"code":"unauthorized","message":"` + escapeJSON(message) + `"}`))
}

func escapeJSON(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
