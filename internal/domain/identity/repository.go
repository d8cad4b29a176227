package identity

import "context"

// Repository defines the interface for user and staff-link data access
type Repository interface {
	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Create creates a new user (session-provider surface, not used by the resolver)
	Create(ctx context.Context, u *User) error

	// UpdateLastLogin records a successful login
	UpdateLastLogin(ctx context.Context, userID int64) error

	// FirstStaffAccountLink resolves the staff -> venue -> account chain for a
	// user and returns the account ID of the earliest-created link. When a user
	// belongs to several venues on different accounts the ordering makes the
	// choice deterministic across evaluations.
	FirstStaffAccountLink(ctx context.Context, userID int64) (int64, error)
}
