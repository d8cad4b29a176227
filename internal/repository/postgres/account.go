package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/venuepulse/venuepulse/internal/domain/account"
	"github.com/venuepulse/venuepulse/internal/pkg/errors"
)

// AccountRepository implements account.Repository. It is a read-only
// adapter: account rows are mutated by admin tooling and the billing
// webhook service, never by this process.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *sql.DB) account.Repository {
	return &AccountRepository{db: db}
}

// GetByID retrieves an account snapshot by ID
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*account.Snapshot, error) {
	query := `
		SELECT id, account_type, subscription_status, trial_ends_at, is_paid, is_demo
		FROM accounts WHERE id = $1
	`

	var snap account.Snapshot
	var accountType, subStatus sql.NullString
	var trialEnds sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&snap.ID, &accountType, &subStatus, &trialEnds, &snap.PaidLegacy, &snap.DemoLegacy,
	)
	if err == sql.ErrNoRows {
		return nil, errors.AccountNotFound(id)
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get account", err)
	}

	// A NULL account_type marks a row from before the column existed; the
	// zero value TypeUnset keeps the legacy flags authoritative.
	if accountType.Valid {
		snap.Type = account.Type(accountType.String)
	}
	if subStatus.Valid {
		snap.SubscriptionStatus = account.SubscriptionStatus(subStatus.String)
	} else {
		snap.SubscriptionStatus = account.SubscriptionNone
	}
	if trialEnds.Valid {
		t := trialEnds.Time.UTC()
		snap.TrialEndsAt = &t
	}

	return &snap, nil
}

// CountTrialsExpiringBefore counts accounts whose trial window ends between
// now and the deadline. Used by the trial watcher; read-only.
func (r *AccountRepository) CountTrialsExpiringBefore(ctx context.Context, deadline time.Time) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM accounts
		WHERE trial_ends_at IS NOT NULL
		  AND trial_ends_at > $1
		  AND trial_ends_at <= $2
	`

	var count int64
	if err := r.db.QueryRowContext(ctx, query, time.Now(), deadline).Scan(&count); err != nil {
		return 0, errors.DatabaseError("Failed to count expiring trials", err)
	}
	return count, nil
}
