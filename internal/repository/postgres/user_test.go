package postgres

import (
	"context"
	"testing"

	"github.com/venuepulse/venuepulse/internal/domain/identity"
	"github.com/venuepulse/venuepulse/internal/pkg/errors"
	"github.com/venuepulse/venuepulse/internal/testutil"
)

func int64Ptr(v int64) *int64 { return &v }

func TestUserRepositoryCreateAndGet(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := &identity.User{
		Email:        "owner@venue.com",
		PasswordHash: "hash",
		Role:         identity.RoleMaster,
	}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if u.ID == 0 {
		t.Fatal("Create() did not assign an ID")
	}

	got, err := repo.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Email != u.Email || got.Role != identity.RoleMaster {
		t.Errorf("GetByID() = %+v, want email/role of created user", got)
	}
	if got.DirectAccountID != nil {
		t.Errorf("DirectAccountID = %v, want nil", *got.DirectAccountID)
	}
	if got.LastLoginAt != nil {
		t.Error("LastLoginAt set on fresh user")
	}

	byEmail, err := repo.GetByEmail(ctx, "owner@venue.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if byEmail.ID != u.ID {
		t.Errorf("GetByEmail() ID = %d, want %d", byEmail.ID, u.ID)
	}

	if _, err := repo.GetByID(ctx, 9999); !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("GetByID(missing) error = %v, want not found", err)
	}
}

func TestUserRepositoryUpdateLastLogin(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := &identity.User{Email: "a@x.com", PasswordHash: "h", Role: identity.RoleManager}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.UpdateLastLogin(ctx, u.ID); err != nil {
		t.Fatalf("UpdateLastLogin() error = %v", err)
	}

	got, err := repo.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.LastLoginAt == nil {
		t.Error("LastLoginAt not recorded")
	}
}

func TestFirstStaffAccountLink(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	mustExec := func(query string, args ...interface{}) {
		t.Helper()
		if _, err := db.Exec(query, args...); err != nil {
			t.Fatalf("exec %q: %v", query, err)
		}
	}

	mustExec(`INSERT INTO accounts (id, name) VALUES (1, 'First'), (2, 'Second')`)
	mustExec(`INSERT INTO venues (id, account_id, name) VALUES (10, 1, 'Cafe'), (20, 2, 'Bar')`)

	u := &identity.User{Email: "m@x.com", PasswordHash: "h", Role: identity.RoleManager}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// No links yet.
	if _, err := repo.FirstStaffAccountLink(ctx, u.ID); !errors.HasCode(err, errors.ErrCodeNoAccountLinked) {
		t.Fatalf("FirstStaffAccountLink() error = %v, want no account linked", err)
	}

	// Two links with distinct creation times. The earlier one must win,
	// and keep winning across repeated calls.
	mustExec(`INSERT INTO staff_members (user_id, venue_id, created_at) VALUES ($1, 20, '2026-01-02 00:00:00')`, u.ID)
	mustExec(`INSERT INTO staff_members (user_id, venue_id, created_at) VALUES ($1, 10, '2026-01-01 00:00:00')`, u.ID)

	for i := 0; i < 3; i++ {
		accountID, err := repo.FirstStaffAccountLink(ctx, u.ID)
		if err != nil {
			t.Fatalf("FirstStaffAccountLink() error = %v", err)
		}
		if accountID != 1 {
			t.Fatalf("FirstStaffAccountLink() = %d, want 1 (earliest link)", accountID)
		}
	}
}

func TestFirstStaffAccountLinkTiebreak(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	if _, err := db.Exec(`INSERT INTO accounts (id, name) VALUES (1, 'A'), (2, 'B')`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO venues (id, account_id, name) VALUES (10, 2, 'X'), (20, 1, 'Y')`); err != nil {
		t.Fatal(err)
	}

	u := &identity.User{Email: "m@x.com", PasswordHash: "h", Role: identity.RoleManager}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatal(err)
	}

	// Identical created_at: the lower staff_members id breaks the tie.
	same := "2026-01-01 00:00:00"
	if _, err := db.Exec(`INSERT INTO staff_members (id, user_id, venue_id, created_at) VALUES (100, $1, 10, $2), (200, $1, 20, $2)`, u.ID, same); err != nil {
		t.Fatal(err)
	}

	accountID, err := repo.FirstStaffAccountLink(ctx, u.ID)
	if err != nil {
		t.Fatalf("FirstStaffAccountLink() error = %v", err)
	}
	if accountID != 2 {
		t.Errorf("FirstStaffAccountLink() = %d, want 2 (lower link id)", accountID)
	}
}
