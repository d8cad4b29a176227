package services

import (
	"context"

	"github.com/venuepulse/venuepulse/internal/domain/identity"
	"github.com/venuepulse/venuepulse/internal/pkg/errors"
	"github.com/venuepulse/venuepulse/internal/pkg/logger"
)

// IdentityService resolves an authenticated user ID into the principal an
// entitlement evaluation runs against, including the indirect
// manager -> venue -> account path.
type IdentityService struct {
	repo   identity.Repository
	logger *logger.Logger
}

// NewIdentityService creates a new identity service
func NewIdentityService(repo identity.Repository, log *logger.Logger) *IdentityService {
	return &IdentityService{
		repo:   repo,
		logger: log,
	}
}

// Resolve determines the role and account context for a user.
//
// Resolution order: admins need no account; a direct account link wins over
// any staff chain; managers without a direct link fall back to the
// earliest-created staff -> venue -> account chain. Everyone else without a
// link resolves to NoAccountLinked.
func (s *IdentityService) Resolve(ctx context.Context, userID int64) (identity.Principal, error) {
	if userID == 0 {
		return identity.Principal{}, errors.Unauthorized("Not authenticated")
	}

	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeNotFound) {
			return identity.Principal{}, errors.UserNotFound(userID)
		}
		return identity.Principal{}, errors.UpstreamLookupFailure(err)
	}

	p := identity.Principal{UserID: u.ID, Role: u.Role}

	if p.IsAdmin() {
		return p, nil
	}

	if u.DirectAccountID != nil {
		p.AccountID = u.DirectAccountID
		return p, nil
	}

	if u.Role == identity.RoleManager {
		accountID, err := s.repo.FirstStaffAccountLink(ctx, userID)
		if err != nil {
			if errors.HasCode(err, errors.ErrCodeNoAccountLinked) {
				return identity.Principal{}, err
			}
			return identity.Principal{}, errors.UpstreamLookupFailure(err)
		}
		p.AccountID = &accountID
		return p, nil
	}

	return identity.Principal{}, errors.NoAccountLinked(userID)
}
