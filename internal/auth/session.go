package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrNoSession is returned when a session cookie does not resolve to an
// active server-side session.
var ErrNoSession = errors.New("no active session")

// Session is the server-side record created on successful login.
type Session struct {
	ID            string
	Authenticated bool
	UserData      jwt.MapClaims
	CreatedAt     time.Time
}

// SessionManager issues signed session cookies backed by an in-memory
// session map. The signing secret is regenerated on every process start, so
// all sessions die with the process.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionManager creates a manager with a fresh random signing secret.
func NewSessionManager(ttl time.Duration, logger *slog.Logger) (*SessionManager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generating session secret: %w", err)
	}

	return &SessionManager{
		secret:   secret,
		ttl:      ttl,
		logger:   logger,
		sessions: make(map[string]*Session),
	}, nil
}

// Create establishes a session carrying the decoded token claims and returns
// the signed cookie value. The session expiry is capped at the admin token's
// own exp claim when one is present, so a session cannot outlive the
// validity window of the token that created it.
func (m *SessionManager) Create(claims jwt.MapClaims) (string, *Session, error) {
	now := time.Now()
	exp := now.Add(m.ttl)
	if tokenExp, err := claims.GetExpirationTime(); err == nil && tokenExp != nil && tokenExp.Before(exp) {
		exp = tokenExp.Time
	}

	session := &Session{
		ID:            uuid.NewString(),
		Authenticated: true,
		UserData:      claims,
		CreatedAt:     now,
	}

	cookie := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid": session.ID,
		"iat": now.Unix(),
		"exp": exp.Unix(),
	})
	signed, err := cookie.SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("signing session cookie: %w", err)
	}

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	m.logger.Info("session created", "session_id", session.ID, "expires_at", exp)
	return signed, session, nil
}

// Get resolves a signed cookie value to its session. Tampered, expired or
// unknown cookies fail with ErrNoSession.
func (m *SessionManager) Get(cookieValue string) (*Session, error) {
	sid, err := m.sessionID(cookieValue)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	session, ok := m.sessions[sid]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNoSession
	}
	return session, nil
}

// Destroy removes the session referenced by the cookie. Unknown cookies are
// a no-op: logout always succeeds.
func (m *SessionManager) Destroy(cookieValue string) {
	sid, err := m.sessionID(cookieValue)
	if err != nil {
		return
	}

	m.mu.Lock()
	delete(m.sessions, sid)
	m.mu.Unlock()
	m.logger.Info("session destroyed", "session_id", sid)
}

func (m *SessionManager) sessionID(cookieValue string) (string, error) {
	if cookieValue == "" {
		return "", ErrNoSession
	}

	token, err := jwt.Parse(cookieValue, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrNoSession
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrNoSession
	}
	sid, ok := mapClaims["sid"].(string)
	if !ok || sid == "" {
		return "", ErrNoSession
	}
	return sid, nil
}
