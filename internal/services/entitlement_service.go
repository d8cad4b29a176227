package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/venuepulse/venuepulse/internal/auth"
	"github.com/venuepulse/venuepulse/internal/domain/account"
	"github.com/venuepulse/venuepulse/internal/domain/entitlement"
	"github.com/venuepulse/venuepulse/internal/domain/identity"
	"github.com/venuepulse/venuepulse/internal/pkg/errors"
	"github.com/venuepulse/venuepulse/internal/pkg/logger"
	"github.com/venuepulse/venuepulse/internal/pkg/metrics"
)

// Cache describes the short-lived decision cache. A nil Cache disables
// caching entirely.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// EntitlementService implements entitlement.Service. It is the single
// place access rules live; guards, banners, and the CLI all call Evaluate.
type EntitlementService struct {
	identity *IdentityService
	accounts account.Repository
	cache    Cache
	failMode entitlement.FailMode
	cacheTTL time.Duration
	now      func() time.Time
	logger   *logger.Logger
}

// NewEntitlementService creates a new entitlement service. cache may be nil.
func NewEntitlementService(
	identitySvc *IdentityService,
	accounts account.Repository,
	cache Cache,
	failMode entitlement.FailMode,
	cacheTTL time.Duration,
	log *logger.Logger,
) *EntitlementService {
	return &EntitlementService{
		identity: identitySvc,
		accounts: accounts,
		cache:    cache,
		failMode: failMode,
		cacheTTL: cacheTTL,
		now:      time.Now,
		logger:   log,
	}
}

func cacheKey(userID int64) string {
	return fmt.Sprintf("entitlement:%d", userID)
}

// Evaluate resolves the identity context, fetches the account snapshot, and
// produces the access decision. Lookup failures are converted according to
// the configured fail mode; only fail-closed mode surfaces an error.
func (s *EntitlementService) Evaluate(ctx context.Context, userID int64) (entitlement.Decision, error) {
	start := time.Now()
	grant := auth.GrantFromContext(ctx)

	// Elevated sessions skip the cache: a bypass must never be served to a
	// later non-elevated request for the same user.
	if s.cache != nil && grant == nil {
		var cached entitlement.Decision
		found, err := s.cache.Get(ctx, cacheKey(userID), &cached)
		if err != nil {
			s.logger.WithError(err).Warn("Decision cache read failed")
		}
		if found {
			metrics.RecordCacheHit()
			return cached, nil
		}
		metrics.RecordCacheMiss()
	}

	principal, err := s.identity.Resolve(ctx, userID)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeUnauthorized) {
			return entitlement.Decision{}, err
		}
		return s.convertFailure(ctx, userID, err, start)
	}

	var snap *account.Snapshot
	if principal.AccountID != nil {
		snap, err = s.accounts.GetByID(ctx, *principal.AccountID)
		if err != nil {
			if errors.HasCode(err, errors.ErrCodeAccountNotFound) {
				// A dangling link behaves like no link at all.
				snap = nil
			} else {
				return s.convertFailure(ctx, userID, errors.UpstreamLookupFailure(err), start)
			}
		}
	}

	decision := s.decide(principal, snap, grant)
	s.finish(ctx, userID, decision, grant, start)
	return decision, nil
}

// decide is the pure decision core. Rules apply in strict precedence; the
// first match wins. now comes from the service clock at call time, never
// from a previous evaluation.
func (s *EntitlementService) decide(p identity.Principal, snap *account.Snapshot, grant *auth.Grant) entitlement.Decision {
	now := s.now()
	d := func(allowed bool, reason entitlement.Reason) entitlement.Decision {
		return entitlement.Decision{Allowed: allowed, Reason: reason, EvaluatedAt: now}
	}

	// 1. Admins bypass account state entirely.
	if p.IsAdmin() {
		return d(true, entitlement.ReasonAdminBypass)
	}

	// 2. A valid impersonation grant bypasses, but only for the account it
	// names. A principal with no resolved account is the support-tooling
	// case: the grant itself supplies the account scope.
	if grant != nil && now.Before(grant.ExpiresAt) {
		if p.AccountID == nil || grant.AccountID == *p.AccountID {
			return d(true, entitlement.ReasonImpersonationBypass)
		}
	}

	// 3. No account resolved: fail open.
	if snap == nil {
		return d(true, entitlement.ReasonNoAccountLinked)
	}

	// Exactly one schema is authoritative per snapshot.
	switch snap.Schema() {
	case account.SchemaLegacy:
		// 4. Legacy demo flag grants unconditionally.
		if snap.DemoLegacy {
			return d(true, entitlement.ReasonDemoAccount)
		}
		// 5. Legacy paid flag stands in for an active subscription.
		if snap.PaidLegacy {
			return d(true, entitlement.ReasonActiveSubscription)
		}
		// 6. Trial window, strict boundary.
		if snap.TrialActive(now) {
			return d(true, entitlement.ReasonActiveTrial)
		}

	case account.SchemaCurrent:
		// 4. Demo accounts grant unconditionally.
		if snap.Type == account.TypeDemo {
			return d(true, entitlement.ReasonDemoAccount)
		}
		// 5. Paid and test accounts with a live subscription.
		if (snap.Type == account.TypePaid || snap.Type == account.TypeTest) &&
			snap.SubscriptionStatus == account.SubscriptionActive {
			return d(true, entitlement.ReasonActiveSubscription)
		}
		// 6. Trial window, strict boundary.
		if snap.TrialActive(now) {
			return d(true, entitlement.ReasonActiveTrial)
		}
		// 7/8. A lapsed trial does not deny yet: an account whose trial
		// ended but whose subscription went active in the meantime passes.
		if snap.SubscriptionStatus == account.SubscriptionActive {
			return d(true, entitlement.ReasonActiveSubscription)
		}
	}

	// 9. Denied.
	if snap.TrialEndsAt != nil {
		return d(false, entitlement.ReasonTrialExpired)
	}
	return d(false, entitlement.ReasonSubscriptionInactive)
}

// convertFailure applies the fail-mode policy to a resolution error.
func (s *EntitlementService) convertFailure(ctx context.Context, userID int64, err error, start time.Time) (entitlement.Decision, error) {
	now := s.now()

	// An elevated session outranks the failure policy: the grant names its
	// own account scope, so a broken lookup cannot lock support out.
	if grant := auth.GrantFromContext(ctx); grant != nil && now.Before(grant.ExpiresAt) {
		decision := entitlement.Decision{Allowed: true, Reason: entitlement.ReasonImpersonationBypass, EvaluatedAt: now}
		metrics.RecordDecision(string(decision.Reason), decision.Allowed, time.Since(start))
		return decision, nil
	}

	if errors.HasCode(err, errors.ErrCodeUpstreamLookupFailure) ||
		errors.HasCode(err, errors.ErrCodeDatabase) {
		metrics.RecordLookupFailure(string(s.failMode))
		s.logger.WithFields(map[string]interface{}{
			"user_id":   userID,
			"fail_mode": s.failMode,
		}).WithError(err).Warn("Entitlement lookup failed")

		if s.failMode == entitlement.FailClosed {
			decision := entitlement.Decision{Allowed: false, Reason: entitlement.ReasonLookupFailed, EvaluatedAt: now}
			metrics.RecordDecision(string(decision.Reason), decision.Allowed, time.Since(start))
			return decision, err
		}
		// Fail open: "we don't know" is treated like "no account linked".
		decision := entitlement.Decision{Allowed: true, Reason: entitlement.ReasonNoAccountLinked, EvaluatedAt: now}
		metrics.RecordDecision(string(decision.Reason), decision.Allowed, time.Since(start))
		return decision, nil
	}

	// UserNotFound, AccountNotFound, NoAccountLinked: the store answered and
	// there is no account to bill. Fails open in both modes.
	decision := entitlement.Decision{Allowed: true, Reason: entitlement.ReasonNoAccountLinked, EvaluatedAt: now}
	metrics.RecordDecision(string(decision.Reason), decision.Allowed, time.Since(start))
	return decision, nil
}

// finish records metrics and caches decisions that are safe to reuse.
func (s *EntitlementService) finish(ctx context.Context, userID int64, d entitlement.Decision, grant *auth.Grant, start time.Time) {
	metrics.RecordDecision(string(d.Reason), d.Allowed, time.Since(start))

	s.logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"allowed": d.Allowed,
		"reason":  d.Reason,
	}).Debug("Entitlement evaluated")

	// Bypass decisions are never cached.
	if s.cache == nil || grant != nil ||
		d.Reason == entitlement.ReasonAdminBypass ||
		d.Reason == entitlement.ReasonImpersonationBypass {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(userID), d, s.cacheTTL); err != nil {
		s.logger.WithError(err).Warn("Decision cache write failed")
	}
}

// TrialStatus returns the trial countdown for the caller's account.
func (s *EntitlementService) TrialStatus(ctx context.Context, userID int64) (entitlement.TrialStatus, error) {
	principal, err := s.identity.Resolve(ctx, userID)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeUnauthorized) {
			return entitlement.TrialStatus{}, err
		}
		return entitlement.TrialStatus{Status: "none"}, nil
	}
	if principal.AccountID == nil {
		return entitlement.TrialStatus{Status: "none"}, nil
	}

	snap, err := s.accounts.GetByID(ctx, *principal.AccountID)
	if err != nil {
		return entitlement.TrialStatus{Status: "none"}, nil
	}
	if snap.TrialEndsAt == nil {
		return entitlement.TrialStatus{Status: "none"}, nil
	}

	now := s.now()
	if !snap.TrialActive(now) {
		return entitlement.TrialStatus{Status: "expired", EndsAt: snap.TrialEndsAt}, nil
	}

	days := int(math.Ceil(snap.TrialEndsAt.Sub(now).Hours() / 24))
	return entitlement.TrialStatus{
		Status:        "active",
		DaysRemaining: days,
		EndsAt:        snap.TrialEndsAt,
	}, nil
}

// Invalidate drops the cached decision for a user, e.g. on sign-out.
func (s *EntitlementService) Invalidate(ctx context.Context, userID int64) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, cacheKey(userID))
}
