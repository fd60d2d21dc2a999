package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/barcamp-slotplanner/internal/application"
	"github.com/example/barcamp-slotplanner/internal/testfixtures"
)

const adminPassword = "correct horse battery staple"

func newAuthService(t *testing.T) (*application.AuthService, *testfixtures.Clock) {
	t.Helper()
	hash, err := application.HashPassword(adminPassword)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	tokens := testfixtures.NewIDGenerator("token")
	service := application.NewAuthService(hash, nil, tokens.NextFunc(), clock.NowFunc(), time.Hour)
	return service, clock
}

func TestAuthenticate(t *testing.T) {
	t.Run("correct password issues a session", func(t *testing.T) {
		service, _ := newAuthService(t)

		session, err := service.Authenticate(context.Background(), adminPassword)
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if session.Token == "" {
			t.Fatal("no token issued")
		}
		if !session.ExpiresAt.After(session.CreatedAt) {
			t.Fatalf("expiry %v not after creation %v", session.ExpiresAt, session.CreatedAt)
		}

		principal, err := service.ValidateSession(context.Background(), session.Token)
		if err != nil {
			t.Fatalf("ValidateSession failed: %v", err)
		}
		if !principal.IsAdmin {
			t.Fatal("authenticated principal is not admin")
		}
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		service, _ := newAuthService(t)

		if _, err := service.Authenticate(context.Background(), "nope"); !errors.Is(err, application.ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
		if _, err := service.Authenticate(context.Background(), ""); !errors.Is(err, application.ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials for empty password, got %v", err)
		}
	})

	t.Run("repeated failures lock authentication for a window", func(t *testing.T) {
		service, clock := newAuthService(t)
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			if _, err := service.Authenticate(ctx, "nope"); !errors.Is(err, application.ErrInvalidCredentials) {
				t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
			}
		}

		if _, err := service.Authenticate(ctx, adminPassword); !errors.Is(err, application.ErrTooManyAttempts) {
			t.Fatalf("expected ErrTooManyAttempts during lockout, got %v", err)
		}

		clock.Advance(2 * time.Minute)
		if _, err := service.Authenticate(ctx, adminPassword); err != nil {
			t.Fatalf("Authenticate after lockout window failed: %v", err)
		}
	})
}

func TestValidateSession(t *testing.T) {
	t.Run("unknown token", func(t *testing.T) {
		service, _ := newAuthService(t)
		if _, err := service.ValidateSession(context.Background(), "bogus"); !errors.Is(err, application.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("empty token", func(t *testing.T) {
		service, _ := newAuthService(t)
		if _, err := service.ValidateSession(context.Background(), "  "); !errors.Is(err, application.ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		service, clock := newAuthService(t)
		ctx := context.Background()

		session, err := service.Authenticate(ctx, adminPassword)
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}

		clock.Advance(2 * time.Hour)
		if _, err := service.ValidateSession(ctx, session.Token); !errors.Is(err, application.ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired, got %v", err)
		}

		// The expired token is dropped; a second check reports not found.
		if _, err := service.ValidateSession(ctx, session.Token); !errors.Is(err, application.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after expiry cleanup, got %v", err)
		}
	})
}

func TestRevokeSession(t *testing.T) {
	service, _ := newAuthService(t)
	ctx := context.Background()

	session, err := service.Authenticate(ctx, adminPassword)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	if err := service.RevokeSession(ctx, session.Token); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if _, err := service.ValidateSession(ctx, session.Token); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after revocation, got %v", err)
	}
	if err := service.RevokeSession(ctx, session.Token); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected ErrNotFound revoking twice, got %v", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		hash, err := application.HashPassword("secret")
		if err != nil {
			t.Fatalf("HashPassword failed: %v", err)
		}
		if err := application.VerifyPassword(hash, "secret"); err != nil {
			t.Fatalf("VerifyPassword failed: %v", err)
		}
		if err := application.VerifyPassword(hash, "other"); !errors.Is(err, application.ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("malformed hash", func(t *testing.T) {
		if err := application.VerifyPassword("not-a-hash", "secret"); !errors.Is(err, application.ErrInvalidPasswordHash) {
			t.Fatalf("expected ErrInvalidPasswordHash, got %v", err)
		}
	})
}
