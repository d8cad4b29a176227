package services

import (
	"context"
	"testing"
	"time"

	"github.com/venuepulse/venuepulse/internal/auth"
	"github.com/venuepulse/venuepulse/internal/domain/account"
	"github.com/venuepulse/venuepulse/internal/domain/entitlement"
	"github.com/venuepulse/venuepulse/internal/domain/identity"
	"github.com/venuepulse/venuepulse/internal/pkg/errors"
	"github.com/venuepulse/venuepulse/internal/pkg/logger"
	"github.com/venuepulse/venuepulse/internal/testutil"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

type fixture struct {
	users    *testutil.MockIdentityRepository
	accounts *testutil.MockAccountRepository
	cache    *testutil.FakeCache
	svc      *EntitlementService
}

func newFixture(t *testing.T, failMode entitlement.FailMode) *fixture {
	t.Helper()
	users := testutil.NewMockIdentityRepository()
	accounts := testutil.NewMockAccountRepository()
	cache := testutil.NewFakeCache()
	log := testLogger()

	svc := NewEntitlementService(
		NewIdentityService(users, log),
		accounts,
		cache,
		failMode,
		15*time.Second,
		log,
	)
	svc.now = func() time.Time { return testNow }

	return &fixture{users: users, accounts: accounts, cache: cache, svc: svc}
}

func (f *fixture) addUser(id int64, role identity.Role, accountID *int64) {
	f.users.AddUser(&identity.User{
		ID:              id,
		Email:           "user@example.com",
		Role:            role,
		DirectAccountID: accountID,
	})
}

func int64Ptr(v int64) *int64 { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func TestEvaluateDecisionMatrix(t *testing.T) {
	tests := []struct {
		name        string
		role        identity.Role
		snap        *account.Snapshot
		wantAllowed bool
		wantReason  entitlement.Reason
	}{
		{
			name:        "demo account always allowed",
			role:        identity.RoleMaster,
			snap:        &account.Snapshot{Type: account.TypeDemo, SubscriptionStatus: account.SubscriptionCanceled},
			wantAllowed: true,
			wantReason:  entitlement.ReasonDemoAccount,
		},
		{
			name: "demo wins over expired trial",
			role: identity.RoleMaster,
			snap: &account.Snapshot{
				Type:        account.TypeDemo,
				TrialEndsAt: timePtr(testNow.Add(-24 * time.Hour)),
			},
			wantAllowed: true,
			wantReason:  entitlement.ReasonDemoAccount,
		},
		{
			name: "paid with active subscription",
			role: identity.RoleMaster,
			snap: &account.Snapshot{
				Type:               account.TypePaid,
				SubscriptionStatus: account.SubscriptionActive,
			},
			wantAllowed: true,
			wantReason:  entitlement.ReasonActiveSubscription,
		},
		{
			name: "test account with active subscription",
			role: identity.RoleMaster,
			snap: &account.Snapshot{
				Type:               account.TypeTest,
				SubscriptionStatus: account.SubscriptionActive,
			},
			wantAllowed: true,
			wantReason:  entitlement.ReasonActiveSubscription,
		},
		{
			name: "paid with past due subscription and no trial denied",
			role: identity.RoleMaster,
			snap: &account.Snapshot{
				Type:               account.TypePaid,
				SubscriptionStatus: account.SubscriptionPastDue,
			},
			wantAllowed: false,
			wantReason:  entitlement.ReasonSubscriptionInactive,
		},
		{
			name: "trial one second before expiry allowed",
			role: identity.RoleMaster,
			snap: &account.Snapshot{
				Type:        account.TypeTrial,
				TrialEndsAt: timePtr(testNow.Add(time.Second)),
			},
			wantAllowed: true,
			wantReason:  entitlement.ReasonActiveTrial,
		},
		{
			name: "trial at exact expiry instant denied",
			role: identity.RoleMaster,
			snap: &account.Snapshot{
				Type:        account.TypeTrial,
				TrialEndsAt: timePtr(testNow),
			},
			wantAllowed: false,
			wantReason:  entitlement.ReasonTrialExpired,
		},
		{
			name: "trial one second after expiry denied",
			role: identity.RoleMaster,
			snap: &account.Snapshot{
				Type:        account.TypeTrial,
				TrialEndsAt: timePtr(testNow.Add(-time.Second)),
			},
			wantAllowed: false,
			wantReason:  entitlement.ReasonTrialExpired,
		},
		{
			name: "lapsed trial with active subscription allowed",
			role: identity.RoleMaster,
			snap: &account.Snapshot{
				Type:               account.TypeTrial,
				SubscriptionStatus: account.SubscriptionActive,
				TrialEndsAt:        timePtr(testNow.Add(-24 * time.Hour)),
			},
			wantAllowed: true,
			wantReason:  entitlement.ReasonActiveSubscription,
		},
		{
			name: "legacy paid flag allowed",
			role: identity.RoleMaster,
			snap: &account.Snapshot{
				Type:       account.TypeUnset,
				PaidLegacy: true,
			},
			wantAllowed: true,
			wantReason:  entitlement.ReasonActiveSubscription,
		},
		{
			name: "legacy demo flag allowed",
			role: identity.RoleMaster,
			snap: &account.Snapshot{
				Type:       account.TypeUnset,
				DemoLegacy: true,
			},
			wantAllowed: true,
			wantReason:  entitlement.ReasonDemoAccount,
		},
		{
			name: "legacy trial window allowed",
			role: identity.RoleMaster,
			snap: &account.Snapshot{
				Type:        account.TypeUnset,
				TrialEndsAt: timePtr(testNow.Add(48 * time.Hour)),
			},
			wantAllowed: true,
			wantReason:  entitlement.ReasonActiveTrial,
		},
		{
			name: "legacy row with nothing set denied",
			role: identity.RoleMaster,
			snap: &account.Snapshot{
				Type: account.TypeUnset,
			},
			wantAllowed: false,
			wantReason:  entitlement.ReasonSubscriptionInactive,
		},
		{
			name: "legacy expired trial denied as trial expired",
			role: identity.RoleMaster,
			snap: &account.Snapshot{
				Type:        account.TypeUnset,
				TrialEndsAt: timePtr(testNow.Add(-time.Hour)),
			},
			wantAllowed: false,
			wantReason:  entitlement.ReasonTrialExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, entitlement.FailOpen)
			tt.snap.ID = 1
			f.accounts.Accounts[1] = tt.snap
			f.addUser(10, tt.role, int64Ptr(1))

			d, err := f.svc.Evaluate(context.Background(), 10)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if d.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v", d.Allowed, tt.wantAllowed)
			}
			if d.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", d.Reason, tt.wantReason)
			}
			if !d.EvaluatedAt.Equal(testNow) {
				t.Errorf("EvaluatedAt = %v, want %v", d.EvaluatedAt, testNow)
			}
		})
	}
}

func TestEvaluateAdminBypass(t *testing.T) {
	f := newFixture(t, entitlement.FailOpen)
	// No account row at all: the bypass must not depend on account state.
	f.addUser(1, identity.RoleAdmin, nil)

	d, err := f.svc.Evaluate(context.Background(), 1)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !d.Allowed || d.Reason != entitlement.ReasonAdminBypass {
		t.Errorf("got (%v, %q), want admin bypass", d.Allowed, d.Reason)
	}
}

func TestEvaluateAdminBypassWinsOverExpiredAccount(t *testing.T) {
	f := newFixture(t, entitlement.FailOpen)
	f.accounts.Accounts[1] = &account.Snapshot{
		ID:          1,
		Type:        account.TypeTrial,
		TrialEndsAt: timePtr(testNow.Add(-time.Hour)),
	}
	f.addUser(1, identity.RoleAdmin, int64Ptr(1))

	d, err := f.svc.Evaluate(context.Background(), 1)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !d.Allowed || d.Reason != entitlement.ReasonAdminBypass {
		t.Errorf("got (%v, %q), want admin bypass", d.Allowed, d.Reason)
	}
}

func TestEvaluateNoAccountLinked(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture)
	}{
		{
			name: "staff user with no link",
			setup: func(f *fixture) {
				f.addUser(1, identity.RoleStaff, nil)
			},
		},
		{
			name: "manager with no staff chain",
			setup: func(f *fixture) {
				f.addUser(1, identity.RoleManager, nil)
			},
		},
		{
			name: "dangling account link",
			setup: func(f *fixture) {
				// Account 99 does not exist.
				f.addUser(1, identity.RoleMaster, int64Ptr(99))
			},
		},
		{
			name:  "user row missing entirely",
			setup: func(f *fixture) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, entitlement.FailOpen)
			tt.setup(f)

			d, err := f.svc.Evaluate(context.Background(), 1)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if !d.Allowed || d.Reason != entitlement.ReasonNoAccountLinked {
				t.Errorf("got (%v, %q), want allowed no_account_linked", d.Allowed, d.Reason)
			}
		})
	}
}

func TestEvaluateManagerStaffChain(t *testing.T) {
	f := newFixture(t, entitlement.FailOpen)
	f.accounts.Accounts[7] = &account.Snapshot{
		ID:                 7,
		Type:               account.TypePaid,
		SubscriptionStatus: account.SubscriptionActive,
	}
	f.addUser(1, identity.RoleManager, nil)
	// Two links: the earliest-created one (account 7) must win every time.
	f.users.StaffLinks[1] = []int64{7, 8}

	for i := 0; i < 3; i++ {
		d, err := f.svc.Evaluate(context.Background(), 1)
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		if !d.Allowed || d.Reason != entitlement.ReasonActiveSubscription {
			t.Errorf("got (%v, %q), want active subscription via staff chain", d.Allowed, d.Reason)
		}
		f.cache.Invalidate(context.Background(), "entitlement:1")
	}
}

func TestEvaluateUnauthenticated(t *testing.T) {
	f := newFixture(t, entitlement.FailOpen)

	_, err := f.svc.Evaluate(context.Background(), 0)
	if !errors.HasCode(err, errors.ErrCodeUnauthorized) {
		t.Errorf("Evaluate(0) error = %v, want unauthorized", err)
	}
}

func TestEvaluateLookupFailureFailOpen(t *testing.T) {
	f := newFixture(t, entitlement.FailOpen)
	f.users.GetError = errors.DatabaseError("connection reset", nil)

	d, err := f.svc.Evaluate(context.Background(), 1)
	if err != nil {
		t.Fatalf("Evaluate() error = %v, want nil in fail-open mode", err)
	}
	if !d.Allowed || d.Reason != entitlement.ReasonNoAccountLinked {
		t.Errorf("got (%v, %q), want allowed no_account_linked", d.Allowed, d.Reason)
	}
}

func TestEvaluateLookupFailureFailClosed(t *testing.T) {
	f := newFixture(t, entitlement.FailClosed)
	f.users.GetError = errors.DatabaseError("connection reset", nil)

	d, err := f.svc.Evaluate(context.Background(), 1)
	if err == nil {
		t.Fatal("Evaluate() error = nil, want diagnostic error in fail-closed mode")
	}
	if d.Allowed || d.Reason != entitlement.ReasonLookupFailed {
		t.Errorf("got (%v, %q), want denied lookup_failed", d.Allowed, d.Reason)
	}
}

func TestEvaluateFailClosedStillOpenForMissingUser(t *testing.T) {
	// Fail-closed only tightens unknown failures. A user the store
	// definitively does not have still fails open.
	f := newFixture(t, entitlement.FailClosed)

	d, err := f.svc.Evaluate(context.Background(), 42)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !d.Allowed || d.Reason != entitlement.ReasonNoAccountLinked {
		t.Errorf("got (%v, %q), want allowed no_account_linked", d.Allowed, d.Reason)
	}
}

func TestEvaluateImpersonationGrant(t *testing.T) {
	grant := &auth.Grant{
		AccountID: 5,
		GrantedBy: 1,
		ExpiresAt: testNow.Add(10 * time.Minute),
	}

	tests := []struct {
		name       string
		grant      *auth.Grant
		accountID  int64
		wantReason entitlement.Reason
	}{
		{
			name:       "valid grant for the resolved account bypasses",
			grant:      grant,
			accountID:  5,
			wantReason: entitlement.ReasonImpersonationBypass,
		},
		{
			name:       "grant for a different account is ignored",
			grant:      grant,
			accountID:  6,
			wantReason: entitlement.ReasonTrialExpired,
		},
		{
			name: "expired grant is ignored",
			grant: &auth.Grant{
				AccountID: 5,
				GrantedBy: 1,
				ExpiresAt: testNow.Add(-time.Minute),
			},
			accountID:  5,
			wantReason: entitlement.ReasonTrialExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, entitlement.FailOpen)
			f.accounts.Accounts[tt.accountID] = &account.Snapshot{
				ID:          tt.accountID,
				Type:        account.TypeTrial,
				TrialEndsAt: timePtr(testNow.Add(-time.Hour)),
			}
			f.addUser(2, identity.RoleMaster, int64Ptr(tt.accountID))

			ctx := auth.WithGrant(context.Background(), tt.grant)
			d, err := f.svc.Evaluate(ctx, 2)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if d.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", d.Reason, tt.wantReason)
			}
		})
	}
}

func TestEvaluateGrantOutranksLookupFailure(t *testing.T) {
	f := newFixture(t, entitlement.FailClosed)
	f.users.GetError = errors.DatabaseError("connection reset", nil)

	ctx := auth.WithGrant(context.Background(), &auth.Grant{
		AccountID: 5,
		GrantedBy: 1,
		ExpiresAt: testNow.Add(10 * time.Minute),
	})

	d, err := f.svc.Evaluate(ctx, 2)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !d.Allowed || d.Reason != entitlement.ReasonImpersonationBypass {
		t.Errorf("got (%v, %q), want impersonation bypass over fail-closed", d.Allowed, d.Reason)
	}
}

func TestEvaluateCaching(t *testing.T) {
	f := newFixture(t, entitlement.FailOpen)
	f.accounts.Accounts[1] = &account.Snapshot{
		ID:                 1,
		Type:               account.TypePaid,
		SubscriptionStatus: account.SubscriptionActive,
	}
	f.addUser(1, identity.RoleMaster, int64Ptr(1))

	d1, err := f.svc.Evaluate(context.Background(), 1)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(f.cache.Entries) != 1 {
		t.Fatalf("cache entries = %d, want 1", len(f.cache.Entries))
	}
	if ttl := f.cache.TTLs["entitlement:1"]; ttl != 15*time.Second {
		t.Errorf("cache TTL = %v, want 15s", ttl)
	}

	// Flip the stored account; the cached decision must be served until
	// invalidation.
	f.accounts.Accounts[1].SubscriptionStatus = account.SubscriptionCanceled

	d2, err := f.svc.Evaluate(context.Background(), 1)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if d2.Reason != d1.Reason || !d2.Allowed {
		t.Errorf("cached decision = (%v, %q), want original (%v, %q)", d2.Allowed, d2.Reason, d1.Allowed, d1.Reason)
	}

	if err := f.svc.Invalidate(context.Background(), 1); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}

	d3, err := f.svc.Evaluate(context.Background(), 1)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if d3.Allowed {
		t.Errorf("post-invalidation decision allowed = true, want fresh deny")
	}
}

func TestEvaluateBypassDecisionsNotCached(t *testing.T) {
	f := newFixture(t, entitlement.FailOpen)
	f.addUser(1, identity.RoleAdmin, nil)

	if _, err := f.svc.Evaluate(context.Background(), 1); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(f.cache.Entries) != 0 {
		t.Errorf("admin bypass was cached: %d entries", len(f.cache.Entries))
	}

	// Grant-scoped evaluations skip the cache in both directions.
	f.accounts.Accounts[5] = &account.Snapshot{
		ID:   5,
		Type: account.TypeDemo,
	}
	f.addUser(2, identity.RoleMaster, int64Ptr(5))
	ctx := auth.WithGrant(context.Background(), &auth.Grant{
		AccountID: 5,
		GrantedBy: 1,
		ExpiresAt: testNow.Add(time.Minute),
	})
	if _, err := f.svc.Evaluate(ctx, 2); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(f.cache.Entries) != 0 {
		t.Errorf("grant-scoped decision was cached: %d entries", len(f.cache.Entries))
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	f := newFixture(t, entitlement.FailOpen)
	f.svc.cache = nil
	f.accounts.Accounts[1] = &account.Snapshot{
		ID:          1,
		Type:        account.TypeTrial,
		TrialEndsAt: timePtr(testNow.Add(72 * time.Hour)),
	}
	f.addUser(1, identity.RoleMaster, int64Ptr(1))

	first, err := f.svc.Evaluate(context.Background(), 1)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		d, err := f.svc.Evaluate(context.Background(), 1)
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		if d != first {
			t.Fatalf("evaluation %d = %+v, want %+v", i, d, first)
		}
	}
}

func TestTrialStatus(t *testing.T) {
	tests := []struct {
		name     string
		snap     *account.Snapshot
		wantStat string
		wantDays int
	}{
		{
			name: "active trial rounds days up",
			snap: &account.Snapshot{
				ID:          1,
				Type:        account.TypeTrial,
				TrialEndsAt: timePtr(testNow.Add(49 * time.Hour)),
			},
			wantStat: "active",
			wantDays: 3,
		},
		{
			name: "expired trial",
			snap: &account.Snapshot{
				ID:          1,
				Type:        account.TypeTrial,
				TrialEndsAt: timePtr(testNow.Add(-time.Hour)),
			},
			wantStat: "expired",
		},
		{
			name: "no trial window",
			snap: &account.Snapshot{
				ID:                 1,
				Type:               account.TypePaid,
				SubscriptionStatus: account.SubscriptionActive,
			},
			wantStat: "none",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, entitlement.FailOpen)
			f.accounts.Accounts[1] = tt.snap
			f.addUser(1, identity.RoleMaster, int64Ptr(1))

			status, err := f.svc.TrialStatus(context.Background(), 1)
			if err != nil {
				t.Fatalf("TrialStatus() error = %v", err)
			}
			if status.Status != tt.wantStat {
				t.Errorf("Status = %q, want %q", status.Status, tt.wantStat)
			}
			if status.DaysRemaining != tt.wantDays {
				t.Errorf("DaysRemaining = %d, want %d", status.DaysRemaining, tt.wantDays)
			}
		})
	}
}

func TestTrialStatusNoAccount(t *testing.T) {
	f := newFixture(t, entitlement.FailOpen)
	f.addUser(1, identity.RoleStaff, nil)

	status, err := f.svc.TrialStatus(context.Background(), 1)
	if err != nil {
		t.Fatalf("TrialStatus() error = %v", err)
	}
	if status.Status != "none" {
		t.Errorf("Status = %q, want none", status.Status)
	}
}
