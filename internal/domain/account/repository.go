package account

import (
	"context"
	"time"
)

// Repository defines the read-only interface for account data access
type Repository interface {
	// GetByID retrieves an account snapshot by ID
	GetByID(ctx context.Context, id int64) (*Snapshot, error)

	// CountTrialsExpiringBefore counts accounts whose trial ends after now
	// and on or before the deadline
	CountTrialsExpiringBefore(ctx context.Context, deadline time.Time) (int64, error)
}
