package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/venuepulse/venuepulse/internal/api/dto"
	"github.com/venuepulse/venuepulse/internal/api/middleware"
	"github.com/venuepulse/venuepulse/internal/auth"
	"github.com/venuepulse/venuepulse/internal/config"
	"github.com/venuepulse/venuepulse/internal/domain/entitlement"
	"github.com/venuepulse/venuepulse/internal/domain/identity"
	"github.com/venuepulse/venuepulse/internal/pkg/errors"
	"github.com/venuepulse/venuepulse/internal/pkg/logger"
	"github.com/venuepulse/venuepulse/internal/pkg/utils"
	"github.com/venuepulse/venuepulse/internal/pkg/validator"
	"github.com/venuepulse/venuepulse/internal/services"
)

// EntitlementHandler exposes entitlement decisions over HTTP
type EntitlementHandler struct {
	entitlements entitlement.Service
	authService  *services.AuthService
	config       *config.Config
	logger       *logger.Logger
	validator    *validator.Validator
}

// NewEntitlementHandler creates a new entitlement handler
func NewEntitlementHandler(
	entitlements entitlement.Service,
	authService *services.AuthService,
	cfg *config.Config,
	log *logger.Logger,
	val *validator.Validator,
) *EntitlementHandler {
	return &EntitlementHandler{
		entitlements: entitlements,
		authService:  authService,
		config:       cfg,
		logger:       log,
		validator:    val,
	}
}

// Get returns the caller's entitlement decision
// @Summary Get entitlement
// @Description Evaluate the authenticated user's access to paid features
// @Tags Entitlement
// @Produce json
// @Success 200 {object} dto.EntitlementDTO "Current decision"
// @Failure 401 {object} utils.ErrorResponse "Not authenticated"
// @Failure 502 {object} utils.ErrorResponse "Lookup failure in fail-closed mode"
// @Router /entitlement [get]
func (h *EntitlementHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		utils.WriteError(w, errors.Unauthorized("Not authenticated"))
		return
	}

	decision, err := h.entitlements.Evaluate(r.Context(), userID)
	if err != nil {
		h.logger.WithError(err).With("user_id", userID).Error("Entitlement evaluation failed")
		utils.WriteError(w, errors.UpstreamLookupFailure(err))
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.EntitlementDTO{
		Allowed:     decision.Allowed,
		Reason:      string(decision.Reason),
		EvaluatedAt: decision.EvaluatedAt,
	})
}

// Trial returns trial countdown information
// @Summary Trial status
// @Description Get the remaining-days countdown for the caller's trial
// @Tags Entitlement
// @Produce json
// @Success 200 {object} dto.TrialStatusDTO "Trial status"
// @Failure 401 {object} utils.ErrorResponse "Not authenticated"
// @Router /entitlement/trial [get]
func (h *EntitlementHandler) Trial(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		utils.WriteError(w, errors.Unauthorized("Not authenticated"))
		return
	}

	status, err := h.entitlements.TrialStatus(r.Context(), userID)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			utils.WriteError(w, appErr)
		} else {
			utils.WriteError(w, errors.Internal("Failed to resolve trial status", err))
		}
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.TrialStatusDTO{
		Status:        status.Status,
		DaysRemaining: status.DaysRemaining,
		EndsAt:        status.EndsAt,
	})
}

// Impersonate mints an impersonation grant for support sessions
// @Summary Impersonate account
// @Description Mint a short-lived grant that scopes admin access to one account
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body dto.ImpersonateRequest true "Target account"
// @Success 200 {object} dto.ImpersonateResponse "Signed grant"
// @Failure 400 {object} utils.ErrorResponse "Invalid request"
// @Failure 403 {object} utils.ErrorResponse "Admin role required"
// @Router /admin/impersonate [post]
func (h *EntitlementHandler) Impersonate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		utils.WriteError(w, errors.Unauthorized("Not authenticated"))
		return
	}

	u, err := h.authService.User(r.Context(), userID)
	if err != nil {
		utils.WriteError(w, errors.Unauthorized("Unknown user"))
		return
	}
	if u.Role != identity.RoleAdmin {
		utils.WriteError(w, errors.Forbidden("Admin role required"))
		return
	}

	var req dto.ImpersonateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}
	if validationErrs := h.validator.Validate(req); len(validationErrs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", validationErrs))
		return
	}

	ttl := h.config.Entitlement.GrantTTL
	grant, err := auth.MintGrant(req.AccountID, userID, h.config.Auth.JWTSecret, ttl)
	if err != nil {
		h.logger.ErrorWithErr(err, "Failed to mint impersonation grant")
		utils.WriteError(w, errors.Internal("Failed to mint grant", err))
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"admin_id":   userID,
		"account_id": req.AccountID,
	}).Info("Impersonation grant minted")

	utils.WriteSuccess(w, http.StatusOK, dto.ImpersonateResponse{
		Grant:     grant,
		AccountID: req.AccountID,
		ExpiresAt: time.Now().Add(ttl),
	})
}
