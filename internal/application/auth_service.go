package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

const (
	maxFailedLogins = 5
	lockoutWindow   = time.Minute
)

// AuthService gates organizer operations behind the event's single admin
// password. Issued tokens live in memory only; restarting the service logs
// every organizer out, which is acceptable for a one-day event.
type AuthService struct {
	adminHash      string
	verifyPassword PasswordVerifier
	tokenGenerator func() string
	now            func() time.Time
	sessionTTL     time.Duration
	logger         *slog.Logger

	mu           sync.Mutex
	sessions     map[string]AuthSession
	failedLogins int
	lockedUntil  time.Time
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(adminHash string, verify PasswordVerifier, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration) *AuthService {
	return NewAuthServiceWithLogger(adminHash, verify, tokenGenerator, now, sessionTTL, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(adminHash string, verify PasswordVerifier, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration, logger *slog.Logger) *AuthService {
	if verify == nil {
		verify = VerifyPassword
	}
	if tokenGenerator == nil {
		tokenGenerator = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = 12 * time.Hour
	}
	return &AuthService{
		adminHash:      adminHash,
		verifyPassword: verify,
		tokenGenerator: tokenGenerator,
		now:            now,
		sessionTTL:     sessionTTL,
		logger:         defaultLogger(logger),
		sessions:       make(map[string]AuthSession),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Authenticate validates the admin password and issues a new session token.
// Repeated failures lock authentication for a cooldown window.
func (s *AuthService) Authenticate(ctx context.Context, password string) (session AuthSession, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Authenticate")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("session_id", session.ID).InfoContext(ctx, "authentication succeeded")
	}()

	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Before(s.lockedUntil) {
		err = ErrTooManyAttempts
		return
	}

	if password == "" || s.verifyPassword(s.adminHash, password) != nil {
		s.failedLogins++
		if s.failedLogins >= maxFailedLogins {
			s.lockedUntil = now.Add(lockoutWindow)
			s.failedLogins = 0
		}
		err = ErrInvalidCredentials
		return
	}

	s.failedLogins = 0
	s.lockedUntil = time.Time{}
	s.pruneExpiredLocked(now)

	session = AuthSession{
		ID:        s.tokenGenerator(),
		Token:     s.tokenGenerator(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	s.sessions[session.Token] = session
	return
}

// ValidateSession resolves a token to its principal. Expired tokens are
// dropped and reported as ErrSessionExpired.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (Principal, error) {
	if s == nil {
		return Principal{}, fmt.Errorf("AuthService is nil")
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, ErrInvalidCredentials
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok {
		return Principal{}, ErrNotFound
	}
	if !s.now().Before(session.ExpiresAt) {
		delete(s.sessions, token)
		return Principal{}, ErrSessionExpired
	}

	return Principal{SessionID: session.ID, IsAdmin: true}, nil
}

// RevokeSession invalidates the token. Revoking an unknown token reports
// ErrNotFound so callers can distinguish a stale logout.
func (s *AuthService) RevokeSession(ctx context.Context, token string) error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}

	logger := s.loggerWith(ctx, "RevokeSession")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[strings.TrimSpace(token)]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, strings.TrimSpace(token))
	logger.InfoContext(ctx, "session revoked")
	return nil
}

func (s *AuthService) pruneExpiredLocked(now time.Time) {
	for token, session := range s.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(s.sessions, token)
		}
	}
}
