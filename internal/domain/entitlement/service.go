package entitlement

import "context"

// Service is the single public entry point for entitlement decisions.
// Every guard, banner, and status widget calls Evaluate instead of
// re-deriving access rules locally.
type Service interface {
	// Evaluate resolves the identity context for userID, fetches the account
	// snapshot, and returns the access decision. The error return is non-nil
	// only in fail-closed mode for upstream lookup failures; in fail-open
	// mode every failure is converted into an allowed decision with a
	// distinguishing reason.
	Evaluate(ctx context.Context, userID int64) (Decision, error)

	// TrialStatus returns the trial countdown for the caller's account.
	TrialStatus(ctx context.Context, userID int64) (TrialStatus, error)

	// Invalidate drops any cached decision for the user, e.g. on sign-out.
	Invalidate(ctx context.Context, userID int64) error
}
