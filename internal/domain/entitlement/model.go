package entitlement

import "time"

// Reason explains an entitlement decision. The set is closed; guards and
// banners switch on it.
type Reason string

const (
	ReasonAdminBypass          Reason = "admin_bypass"
	ReasonImpersonationBypass  Reason = "impersonation_bypass"
	ReasonNoAccountLinked      Reason = "no_account_linked"
	ReasonDemoAccount          Reason = "demo_account"
	ReasonActiveSubscription   Reason = "active_subscription"
	ReasonActiveTrial          Reason = "active_trial"
	ReasonTrialExpired         Reason = "trial_expired"
	ReasonSubscriptionInactive Reason = "subscription_inactive"
	// ReasonLookupFailed is produced only in fail-closed mode, when an
	// upstream lookup error denies access instead of falling open.
	ReasonLookupFailed Reason = "lookup_failed"
)

// Decision is the result of one entitlement evaluation. Decisions are
// immutable; a change in account state is reflected by a fresh evaluation,
// never by mutating an existing decision.
type Decision struct {
	Allowed     bool      `json:"allowed"`
	Reason      Reason    `json:"reason"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// TrialStatus is the countdown-banner read model derived from a snapshot.
type TrialStatus struct {
	Status        string     `json:"status"`
	DaysRemaining int        `json:"days_remaining"`
	EndsAt        *time.Time `json:"ends_at,omitempty"`
}

// FailMode selects how lookup failures are converted into decisions.
type FailMode string

const (
	// FailOpen grants access when the account state cannot be determined.
	// This is the historical behavior: a billing outage must not lock
	// paying venues out of their dashboards.
	FailOpen FailMode = "open"
	// FailClosed denies on unknown errors while still failing open for the
	// known "no account linked" case.
	FailClosed FailMode = "closed"
)
