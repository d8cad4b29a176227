package account

import "time"

// Type classifies an account under the current billing schema.
type Type string

const (
	TypeDemo  Type = "demo"
	TypeTrial Type = "trial"
	TypePaid  Type = "paid"
	TypeTest  Type = "test"
	// TypeUnset marks rows created before the account_type column existed.
	// For those rows only the legacy flags are authoritative.
	TypeUnset Type = ""
)

// SubscriptionStatus mirrors the billing processor's subscription state.
type SubscriptionStatus string

const (
	SubscriptionActive     SubscriptionStatus = "active"
	SubscriptionPastDue    SubscriptionStatus = "past_due"
	SubscriptionCanceled   SubscriptionStatus = "canceled"
	SubscriptionIncomplete SubscriptionStatus = "incomplete"
	SubscriptionNone       SubscriptionStatus = "none"
)

// Snapshot is the read model of an account at a single evaluation.
// It is never written by this service; admin tooling mutates the
// underlying row and the change is picked up on the next fetch.
//
// Exactly one schema is authoritative at a time: when Type is TypeUnset
// the row predates the account_type column and only the legacy flags
// (PaidLegacy, DemoLegacy) carry meaning. Schema() returns the variant
// so callers can switch exhaustively instead of probing fields.
type Snapshot struct {
	ID                 int64              `json:"id"`
	Type               Type               `json:"account_type"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`
	TrialEndsAt        *time.Time         `json:"trial_ends_at,omitempty"`

	// Legacy pair, meaningful only when Type == TypeUnset.
	PaidLegacy bool `json:"is_paid"`
	DemoLegacy bool `json:"is_demo"`
}

// Schema identifies which of the two account schemas is authoritative.
type Schema int

const (
	// SchemaCurrent means account_type is set and the legacy flags are ignored.
	SchemaCurrent Schema = iota
	// SchemaLegacy means the row predates account_type and only the
	// boolean/date flags are read.
	SchemaLegacy
)

// Schema returns the authoritative schema variant for this snapshot.
func (s *Snapshot) Schema() Schema {
	if s.Type == TypeUnset {
		return SchemaLegacy
	}
	return SchemaCurrent
}

// TrialActive reports whether the snapshot carries a trial window that has
// not ended at the given instant. The boundary is strict: the exact expiry
// instant counts as ended.
func (s *Snapshot) TrialActive(now time.Time) bool {
	return s.TrialEndsAt != nil && now.Before(*s.TrialEndsAt)
}
