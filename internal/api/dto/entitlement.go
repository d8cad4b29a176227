package dto

import "time"

// EntitlementDTO represents an entitlement decision in API responses
type EntitlementDTO struct {
	Allowed     bool      `json:"allowed"`
	Reason      string    `json:"reason"`
	EvaluatedAt time.Time `json:"evaluatedAt"`
}

// TrialStatusDTO represents trial countdown information
type TrialStatusDTO struct {
	Status        string     `json:"status"`
	DaysRemaining int        `json:"daysRemaining"`
	EndsAt        *time.Time `json:"endsAt,omitempty"`
}

// ImpersonateRequest asks for an impersonation grant for one account
type ImpersonateRequest struct {
	AccountID int64 `json:"accountId" validate:"required,gt=0"`
}

// ImpersonateResponse carries the signed grant token
type ImpersonateResponse struct {
	Grant     string    `json:"grant"`
	AccountID int64     `json:"accountId"`
	ExpiresAt time.Time `json:"expiresAt"`
}
