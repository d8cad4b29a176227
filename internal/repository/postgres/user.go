package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/venuepulse/venuepulse/internal/domain/identity"
	"github.com/venuepulse/venuepulse/internal/pkg/errors"
)

// UserRepository implements identity.Repository
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) identity.Repository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, u *identity.User) error {
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	query := `
		INSERT INTO users (email, password_hash, role, account_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		u.Email, u.PasswordHash, string(u.Role), u.DirectAccountID, now, now,
	).Scan(&u.ID)
	if err != nil {
		return errors.DatabaseError("Failed to create user", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*identity.User, error) {
	query := `
		SELECT id, email, password_hash, role, account_id, created_at, updated_at, last_login_at
		FROM users WHERE id = $1
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	query := `
		SELECT id, email, password_hash, role, account_id, created_at, updated_at, last_login_at
		FROM users WHERE email = $1
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) scanUser(row *sql.Row) (*identity.User, error) {
	var u identity.User
	var role string
	var accountID sql.NullInt64
	var lastLogin sql.NullTime

	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &role, &accountID,
		&u.CreatedAt, &u.UpdatedAt, &lastLogin,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("User")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get user", err)
	}

	u.Role = identity.Role(role)
	if accountID.Valid {
		u.DirectAccountID = &accountID.Int64
	}
	if lastLogin.Valid {
		u.LastLoginAt = &lastLogin.Time
	}

	return &u, nil
}

// UpdateLastLogin records a successful login
func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID int64) error {
	query := `UPDATE users SET last_login_at = $1, updated_at = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, time.Now(), userID); err != nil {
		return errors.DatabaseError("Failed to update last login", err)
	}
	return nil
}

// FirstStaffAccountLink resolves the staff -> venue -> account chain and
// returns the account of the earliest-created link. Ordering by creation
// time then id keeps the choice stable when a user is staffed at venues
// on different accounts.
func (r *UserRepository) FirstStaffAccountLink(ctx context.Context, userID int64) (int64, error) {
	query := `
		SELECT v.account_id
		FROM staff_members sm
		JOIN venues v ON v.id = sm.venue_id
		WHERE sm.user_id = $1
		ORDER BY sm.created_at, sm.id
		LIMIT 1
	`

	var accountID int64
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&accountID)
	if err == sql.ErrNoRows {
		return 0, errors.NoAccountLinked(userID)
	}
	if err != nil {
		return 0, errors.DatabaseError("Failed to resolve staff account link", err)
	}

	return accountID, nil
}
