package services

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/venuepulse/venuepulse/internal/domain/identity"
	"github.com/venuepulse/venuepulse/internal/pkg/errors"
	"github.com/venuepulse/venuepulse/internal/pkg/logger"
)

// AuthService is the thin session-provider surface: it authenticates
// credentials and registers users. Account provisioning (venues, billing)
// happens in external admin tooling.
type AuthService struct {
	repo       identity.Repository
	bcryptCost int
	logger     *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(repo identity.Repository, bcryptCost int, log *logger.Logger) *AuthService {
	return &AuthService{
		repo:       repo,
		bcryptCost: bcryptCost,
		logger:     log,
	}
}

// Authenticate verifies email and password and returns the user
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*identity.User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeNotFound) {
			return nil, errors.Unauthorized("Invalid credentials")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, errors.Unauthorized("Invalid credentials")
	}

	if err := s.repo.UpdateLastLogin(ctx, u.ID); err != nil {
		// Login still succeeds; the timestamp is best-effort.
		s.logger.WithError(err).Warn("Failed to record last login")
	}

	return u, nil
}

// Register creates a new user with a hashed password
func (s *AuthService) Register(ctx context.Context, email, password string, role identity.Role, accountID *int64) (*identity.User, error) {
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, errors.Conflict("Email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, errors.Internal("Failed to hash password", err)
	}

	u := &identity.User{
		Email:           email,
		PasswordHash:    string(hash),
		Role:            role,
		DirectAccountID: accountID,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		s.logger.ErrorWithErr(err, "Failed to create user")
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id": u.ID,
		"role":    u.Role,
	}).Info("User registered")

	return u, nil
}

// User retrieves a user by ID
func (s *AuthService) User(ctx context.Context, userID int64) (*identity.User, error) {
	return s.repo.GetByID(ctx, userID)
}
