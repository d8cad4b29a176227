package identity

import "time"

// Role is a staff role within a venue account.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleMaster  Role = "master"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
)

// User is a row from the users table as the resolver sees it.
type User struct {
	ID              int64      `json:"id"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	Role            Role       `json:"role"`
	DirectAccountID *int64     `json:"account_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
}

// Principal is the resolved identity context an entitlement evaluation
// runs against. AccountID is nil for admins (no account required) and for
// users with no direct or chained account link.
type Principal struct {
	UserID    int64  `json:"user_id"`
	Role      Role   `json:"role"`
	AccountID *int64 `json:"account_id,omitempty"`
}

// IsAdmin reports whether the principal bypasses account resolution.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
