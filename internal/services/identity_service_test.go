package services

import (
	"context"
	"testing"

	"github.com/venuepulse/venuepulse/internal/domain/identity"
	"github.com/venuepulse/venuepulse/internal/pkg/errors"
	"github.com/venuepulse/venuepulse/internal/testutil"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(repo *testutil.MockIdentityRepository)
		userID      int64
		wantAccount *int64
		wantRole    identity.Role
		wantErrCode string
	}{
		{
			name: "admin needs no account",
			setup: func(repo *testutil.MockIdentityRepository) {
				repo.AddUser(&identity.User{ID: 1, Email: "a@x.com", Role: identity.RoleAdmin})
			},
			userID:   1,
			wantRole: identity.RoleAdmin,
		},
		{
			name: "direct link wins",
			setup: func(repo *testutil.MockIdentityRepository) {
				repo.AddUser(&identity.User{ID: 1, Email: "a@x.com", Role: identity.RoleMaster, DirectAccountID: int64Ptr(3)})
				repo.StaffLinks[1] = []int64{9}
			},
			userID:      1,
			wantRole:    identity.RoleMaster,
			wantAccount: int64Ptr(3),
		},
		{
			name: "manager falls back to staff chain",
			setup: func(repo *testutil.MockIdentityRepository) {
				repo.AddUser(&identity.User{ID: 1, Email: "a@x.com", Role: identity.RoleManager})
				repo.StaffLinks[1] = []int64{7}
			},
			userID:      1,
			wantRole:    identity.RoleManager,
			wantAccount: int64Ptr(7),
		},
		{
			name: "manager with no chain has no account",
			setup: func(repo *testutil.MockIdentityRepository) {
				repo.AddUser(&identity.User{ID: 1, Email: "a@x.com", Role: identity.RoleManager})
			},
			userID:      1,
			wantErrCode: errors.ErrCodeNoAccountLinked,
		},
		{
			name: "staff without direct link has no account",
			setup: func(repo *testutil.MockIdentityRepository) {
				repo.AddUser(&identity.User{ID: 1, Email: "a@x.com", Role: identity.RoleStaff})
			},
			userID:      1,
			wantErrCode: errors.ErrCodeNoAccountLinked,
		},
		{
			name:        "unknown user",
			setup:       func(repo *testutil.MockIdentityRepository) {},
			userID:      42,
			wantErrCode: errors.ErrCodeUserNotFound,
		},
		{
			name:        "zero user id is unauthenticated",
			setup:       func(repo *testutil.MockIdentityRepository) {},
			userID:      0,
			wantErrCode: errors.ErrCodeUnauthorized,
		},
		{
			name: "store failure surfaces as lookup failure",
			setup: func(repo *testutil.MockIdentityRepository) {
				repo.GetError = errors.DatabaseError("connection reset", nil)
			},
			userID:      1,
			wantErrCode: errors.ErrCodeUpstreamLookupFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := testutil.NewMockIdentityRepository()
			tt.setup(repo)
			svc := NewIdentityService(repo, testLogger())

			p, err := svc.Resolve(context.Background(), tt.userID)

			if tt.wantErrCode != "" {
				if !errors.HasCode(err, tt.wantErrCode) {
					t.Fatalf("Resolve() error = %v, want code %s", err, tt.wantErrCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if p.Role != tt.wantRole {
				t.Errorf("Role = %q, want %q", p.Role, tt.wantRole)
			}
			if tt.wantAccount == nil {
				if p.AccountID != nil {
					t.Errorf("AccountID = %v, want nil", *p.AccountID)
				}
			} else {
				if p.AccountID == nil || *p.AccountID != *tt.wantAccount {
					t.Errorf("AccountID = %v, want %d", p.AccountID, *tt.wantAccount)
				}
			}
		})
	}
}
