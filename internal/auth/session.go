package auth

import (
	"clinicstaff/pkg/domain"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL is the lifetime of a bearer token.
const DefaultSessionTTL = 12 * time.Hour

// ErrInvalidCredentials hides whether the username or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Session is an authenticated bearer token.
type Session struct {
	Token     string      `json:"token"`
	UserID    string      `json:"user_id"`
	Username  string      `json:"username"`
	Role      domain.Role `json:"role"`
	DoctorID  *string     `json:"doctor_id,omitempty"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Allows reports whether the session role grants p.
func (s Session) Allows(p domain.Permission) bool { return s.Role.Allows(p) }

// Sessions keeps bearer tokens in memory. Tokens do not survive a restart.
type Sessions struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	tokens map[string]Session
}

// NewSessions creates a token store. ttl <= 0 selects DefaultSessionTTL and
// a nil now uses the wall clock.
func NewSessions(ttl time.Duration, now func() time.Time) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Sessions{ttl: ttl, now: now, tokens: make(map[string]Session)}
}

// Issue creates a session for user.
func (s *Sessions) Issue(user domain.User) Session {
	sess := Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		DoctorID:  user.DoctorID,
		ExpiresAt: s.now().Add(s.ttl),
	}
	s.mu.Lock()
	s.tokens[sess.Token] = sess
	s.mu.Unlock()
	return sess
}

// Lookup returns the live session for token. Expired sessions are dropped.
func (s *Sessions) Lookup(token string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.tokens[token]
	if !ok {
		return Session{}, false
	}
	if !s.now().Before(sess.ExpiresAt) {
		delete(s.tokens, token)
		return Session{}, false
	}
	return sess, true
}

// Revoke deletes token; it reports whether the token existed.
func (s *Sessions) Revoke(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[token]
	delete(s.tokens, token)
	return ok
}

// RevokeUser deletes every session of userID, for example after the user
// was deactivated. It returns the number of revoked tokens.
func (s *Sessions) RevokeUser(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for token, sess := range s.tokens {
		if sess.UserID == userID {
			delete(s.tokens, token)
			n++
		}
	}
	return n
}

// Sweep removes expired sessions and returns how many were dropped.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for token, sess := range s.tokens {
		if !now.Before(sess.ExpiresAt) {
			delete(s.tokens, token)
			n++
		}
	}
	return n
}

// UserFinder resolves users by username; core.Service satisfies it.
type UserFinder interface {
	FindUserByUsername(username string) (domain.User, bool)
}

// Authenticator verifies credentials and issues sessions.
type Authenticator struct {
	Users    UserFinder
	Sessions *Sessions
	Hasher   Hasher
}

// Login checks username and password and issues a session. Inactive users
// and users without a password cannot log in.
func (a Authenticator) Login(username, password string) (Session, domain.User, error) {
	user, ok := a.Users.FindUserByUsername(username)
	if !ok || !user.Active || !a.Hasher.Compare(user.PasswordHash, password) {
		return Session{}, domain.User{}, ErrInvalidCredentials
	}
	return a.Sessions.Issue(user), user, nil
}

type sessionKey struct{}

// WithSession stores sess in ctx.
func WithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFromContext returns the session stored by WithSession.
func SessionFromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(Session)
	return sess, ok
}
