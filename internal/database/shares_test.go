package database

import (
	"context"
	"errors"
	"testing"
)

func TestAddShare(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateUser(ctx, "alice", "password"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := db.CreateUser(ctx, "bob", "password"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if err := db.AddShare(ctx, "alice", "bob"); err != nil {
		t.Fatalf("AddShare: %v", err)
	}

	shared, err := db.IsShared(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("IsShared: %v", err)
	}
	if !shared {
		t.Error("edge (alice, bob) should exist after AddShare")
	}

	// The relation is directed: bob has not shared with alice.
	reverse, err := db.IsShared(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("IsShared: %v", err)
	}
	if reverse {
		t.Error("edge (bob, alice) should not exist")
	}
}

func TestAddShareViolations(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateUser(ctx, "alice", "password"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := db.CreateUser(ctx, "bob", "password"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := db.AddShare(ctx, "alice", "bob"); err != nil {
		t.Fatalf("AddShare: %v", err)
	}

	tests := []struct {
		name    string
		owner   string
		grantee string
		want    error
	}{
		{"self share", "alice", "alice", ErrSelfShare},
		{"duplicate edge", "alice", "bob", ErrAlreadyShared},
		{"unknown grantee", "alice", "mallory", ErrUnknownUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := db.AddShare(ctx, tt.owner, tt.grantee); !errors.Is(err, tt.want) {
				t.Errorf("AddShare(%s, %s) = %v, want %v", tt.owner, tt.grantee, err, tt.want)
			}
		})
	}
}

func TestOperatorIsValidGrantee(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateUser(ctx, "alice", "password"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	// The operator has no users row but is still a known principal.
	if err := db.AddShare(ctx, "alice", testOperator); err != nil {
		t.Errorf("sharing with the operator should succeed, got %v", err)
	}
}

func TestRemoveShare(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateUser(ctx, "alice", "password"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := db.CreateUser(ctx, "bob", "password"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if err := db.RemoveShare(ctx, "alice", "bob"); !errors.Is(err, ErrNotShared) {
		t.Errorf("removing a missing edge: got %v, want ErrNotShared", err)
	}

	if err := db.AddShare(ctx, "alice", "bob"); err != nil {
		t.Fatalf("AddShare: %v", err)
	}
	if err := db.RemoveShare(ctx, "alice", "bob"); err != nil {
		t.Fatalf("RemoveShare: %v", err)
	}

	// Revocation is immediately visible.
	shared, err := db.IsShared(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("IsShared: %v", err)
	}
	if shared {
		t.Error("edge should be gone after RemoveShare")
	}
}

func TestSharedWith(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	for _, u := range []string{"alice", "bob", "carol"} {
		if _, err := db.CreateUser(ctx, u, "password"); err != nil {
			t.Fatalf("CreateUser(%s): %v", u, err)
		}
	}

	if err := db.AddShare(ctx, "alice", "carol"); err != nil {
		t.Fatalf("AddShare: %v", err)
	}
	if err := db.AddShare(ctx, "bob", "carol"); err != nil {
		t.Fatalf("AddShare: %v", err)
	}
	// Sharing is not transitive: alice->carol does not expose alice to bob.
	owners, err := db.SharedWith(ctx, "bob")
	if err != nil {
		t.Fatalf("SharedWith: %v", err)
	}
	if len(owners) != 0 {
		t.Errorf("bob should have no incoming shares, got %v", owners)
	}

	owners, err = db.SharedWith(ctx, "carol")
	if err != nil {
		t.Fatalf("SharedWith: %v", err)
	}
	if len(owners) != 2 || owners[0] != "alice" || owners[1] != "bob" {
		t.Errorf("SharedWith(carol) = %v, want [alice bob]", owners)
	}
}
