package session

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryDirectoryIssueLookupRevoke(t *testing.T) {
	ctx := context.Background()
	dir := NewMemoryDirectory()

	token, err := dir.Issue(ctx, 42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if token == "" {
		t.Fatal("issued empty token")
	}

	userID, err := dir.Lookup(ctx, token)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if userID != 42 {
		t.Fatalf("lookup = %d, want 42", userID)
	}

	if err := dir.Revoke(ctx, token); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := dir.Lookup(ctx, token); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("lookup after revoke = %v, want ErrTokenNotFound", err)
	}
}

func TestMemoryDirectoryRevokeUnknownToken(t *testing.T) {
	dir := NewMemoryDirectory()
	if err := dir.Revoke(context.Background(), "never-issued"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("revoke unknown = %v, want ErrTokenNotFound", err)
	}
}

func TestMemoryDirectoryConcurrentSessions(t *testing.T) {
	ctx := context.Background()
	dir := NewMemoryDirectory()

	first, err := dir.Issue(ctx, 7)
	if err != nil {
		t.Fatalf("issue first: %v", err)
	}
	second, err := dir.Issue(ctx, 7)
	if err != nil {
		t.Fatalf("issue second: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct tokens per login")
	}

	// Issuing a second session must not invalidate the first.
	if _, err := dir.Lookup(ctx, first); err != nil {
		t.Fatalf("first token lookup: %v", err)
	}
	if _, err := dir.Lookup(ctx, second); err != nil {
		t.Fatalf("second token lookup: %v", err)
	}
}
