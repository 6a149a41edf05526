package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/fresh-tomatoes/catalog-api/internal/domain"
	"github.com/fresh-tomatoes/catalog-api/internal/repository"
	"github.com/fresh-tomatoes/catalog-api/internal/session"
)

type stubUsers struct {
	users map[int64]domain.User
}

func (s stubUsers) GetByID(ctx context.Context, id int64) (domain.User, error) {
	user, ok := s.users[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return user, nil
}

func newTestGuard(t *testing.T) (*Guard, session.Directory) {
	t.Helper()
	dir := session.NewMemoryDirectory()
	users := stubUsers{users: map[int64]domain.User{
		1: {ID: 1, Username: "alice", Staff: false},
		2: {ID: 2, Username: "bob", Staff: true},
	}}
	return NewGuard(dir, users), dir
}

func TestGuardResolve(t *testing.T) {
	ctx := context.Background()
	guard, dir := newTestGuard(t)

	token, err := dir.Issue(ctx, 1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	identity, err := guard.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if identity.UserID != 1 || identity.Username != "alice" || identity.Staff {
		t.Fatalf("identity = %+v", identity)
	}
}

func TestGuardResolveFailures(t *testing.T) {
	ctx := context.Background()
	guard, dir := newTestGuard(t)

	if _, err := guard.Resolve(ctx, ""); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("empty token: %v, want ErrUnauthenticated", err)
	}
	if _, err := guard.Resolve(ctx, "bogus"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("unknown token: %v, want ErrUnauthenticated", err)
	}

	// Token bound to a deleted user is unauthenticated, not forbidden.
	token, err := dir.Issue(ctx, 99)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := guard.Resolve(ctx, token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("orphan token: %v, want ErrUnauthenticated", err)
	}
}

func TestGuardResolveStaff(t *testing.T) {
	ctx := context.Background()
	guard, dir := newTestGuard(t)

	userToken, _ := dir.Issue(ctx, 1)
	staffToken, _ := dir.Issue(ctx, 2)

	if _, err := guard.ResolveStaff(ctx, userToken); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-staff: %v, want ErrForbidden", err)
	}
	identity, err := guard.ResolveStaff(ctx, staffToken)
	if err != nil {
		t.Fatalf("staff resolve: %v", err)
	}
	if !identity.Staff {
		t.Fatal("staff flag lost")
	}
	// Authentication failure outranks the role check.
	if _, err := guard.ResolveStaff(ctx, "bogus"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("unknown token: %v, want ErrUnauthenticated", err)
	}
}

func TestOwnershipChecks(t *testing.T) {
	owner := domain.Identity{UserID: 1}
	staff := domain.Identity{UserID: 2, Staff: true}
	other := domain.Identity{UserID: 3}

	if err := RequireOwner(owner, 1); err != nil {
		t.Fatalf("owner rejected: %v", err)
	}
	if err := RequireOwner(staff, 1); !errors.Is(err, ErrForbidden) {
		t.Fatalf("staff bypassed ownership: %v", err)
	}
	if err := RequireOwnerOrStaff(staff, 1); err != nil {
		t.Fatalf("staff rejected: %v", err)
	}
	if err := RequireOwnerOrStaff(other, 1); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger admitted: %v", err)
	}
}
