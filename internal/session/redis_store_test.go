package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	return store, s
}

func TestNewRedisStore(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	defer store.Close()

	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestIssueAndValidate(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	token, err := store.Issue(ctx, User{Username: "legal-team"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if token == "" {
		t.Fatal("Issue returned an empty token")
	}

	user, err := store.Validate(ctx, token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if user.Username != "legal-team" {
		t.Errorf("username = %q, want legal-team", user.Username)
	}
}

func TestValidateExpiredSession(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	token, err := store.Issue(ctx, User{Username: "legal-team"}, time.Millisecond)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	s.FastForward(2 * time.Millisecond)

	if _, err := store.Validate(ctx, token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("Validate after expiry error = %v, want ErrInvalidSession", err)
	}
}

func TestRevoke(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	token, err := store.Issue(ctx, User{Username: "legal-team"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if err := store.Revoke(ctx, token); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if _, err := store.Validate(ctx, token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("Validate after revoke error = %v, want ErrInvalidSession", err)
	}
}

func TestValidateUnknownToken(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	if _, err := store.Validate(context.Background(), "never-issued"); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("Validate error = %v, want ErrInvalidSession", err)
	}
}
