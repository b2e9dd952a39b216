package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	token, err := store.Issue(ctx, User{Username: "legal-team"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	user, err := store.Validate(ctx, token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if user.Username != "legal-team" {
		t.Errorf("username = %q, want legal-team", user.Username)
	}

	if err := store.Revoke(ctx, token); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if _, err := store.Validate(ctx, token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("Validate() after revoke error = %v, want ErrInvalidSession", err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	token, err := store.Issue(ctx, User{Username: "legal-team"}, -time.Second)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := store.Validate(ctx, token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("Validate() of expired session error = %v, want ErrInvalidSession", err)
	}
}

func TestTokensAreUnique(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	a, _ := store.Issue(ctx, User{Username: "a"}, time.Hour)
	b, _ := store.Issue(ctx, User{Username: "b"}, time.Hour)
	if a == b {
		t.Error("two issued tokens are identical")
	}
}
