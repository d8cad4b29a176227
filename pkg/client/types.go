package client

import "time"

// User represents an authenticated user
type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	AccountID *int64 `json:"accountId,omitempty"`
}

// AuthResponse carries a token pair and the user it belongs to
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user,omitempty"`
}

// Entitlement is an access decision for the authenticated user
type Entitlement struct {
	Allowed     bool      `json:"allowed"`
	Reason      string    `json:"reason"`
	EvaluatedAt time.Time `json:"evaluatedAt"`
}

// TrialStatus is the trial countdown for the caller's account
type TrialStatus struct {
	Status        string     `json:"status"`
	DaysRemaining int        `json:"daysRemaining"`
	EndsAt        *time.Time `json:"endsAt,omitempty"`
}

// ImpersonationGrant is a signed grant scoping admin access to one account
type ImpersonationGrant struct {
	Grant     string    `json:"grant"`
	AccountID int64     `json:"accountId"`
	ExpiresAt time.Time `json:"expiresAt"`
}
