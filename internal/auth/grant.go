package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Grant is an explicit, time-boxed permission for support tooling to
// evaluate entitlement as if the session belonged to a specific account.
// It replaces the old browser-local impersonation flag: a grant is signed,
// expires on its own, and is scoped to exactly one account. It travels
// through the request context, never ambient storage.
type Grant struct {
	ID        string    `json:"id"`
	AccountID int64     `json:"account_id"`
	GrantedBy int64     `json:"granted_by"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Scoped reports whether the grant covers the given account and is still
// within its validity window.
func (g *Grant) Scoped(accountID int64, now time.Time) bool {
	if g == nil {
		return false
	}
	return g.AccountID == accountID && now.Before(g.ExpiresAt)
}

type grantClaims struct {
	ActAsAccount int64 `json:"act_as_account"`
	GrantedBy    int64 `json:"granted_by"`
	jwt.RegisteredClaims
}

// MintGrant issues a signed impersonation grant for one account.
func MintGrant(accountID, grantedBy int64, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, grantClaims{
		ActAsAccount: accountID,
		GrantedBy:    grantedBy,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	return token.SignedString([]byte(secret))
}

// ParseGrant verifies a grant token's signature and expiry and returns the
// typed grant. Expired or malformed tokens return an error, never a grant.
func ParseGrant(tokenStr, secret string) (*Grant, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &grantClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	c, ok := t.Claims.(*grantClaims)
	if !ok || !t.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return &Grant{
		ID:        c.ID,
		AccountID: c.ActAsAccount,
		GrantedBy: c.GrantedBy,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
