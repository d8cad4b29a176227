package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/venuepulse/venuepulse/internal/domain/entitlement"
	"github.com/venuepulse/venuepulse/internal/pkg/errors"
	"github.com/venuepulse/venuepulse/internal/pkg/logger"
	"github.com/venuepulse/venuepulse/internal/pkg/utils"
)

// DecisionKey is the context key under which the guard stores the
// entitlement decision for downstream handlers and banners.
const DecisionKey ContextKey = "entitlementDecision"

// GuardConfig holds the access guard's redirect targets. These are host
// configuration, not behavior.
type GuardConfig struct {
	SignInURL  string
	BillingURL string
}

// EntitlementGuard gates the paid application area. Every request through
// it gets a fresh evaluation (or a short-lived cached one); the guard never
// re-derives access rules itself.
//
// Browser navigations are redirected to the sign-in or billing target with
// the originally requested path preserved in a next parameter; API-style
// requests get 401/402 JSON instead. If the client disconnects while the
// evaluation is in flight, the guard writes nothing.
func EntitlementGuard(svc entitlement.Service, cfg GuardConfig, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserID(r)
			if !ok {
				unauthenticated(w, r, cfg)
				return
			}

			decision, err := svc.Evaluate(r.Context(), userID)

			// The guard instance for this navigation is gone; the result
			// must not be acted on.
			if r.Context().Err() != nil {
				return
			}

			if err != nil {
				if errors.HasCode(err, errors.ErrCodeUnauthorized) {
					unauthenticated(w, r, cfg)
					return
				}
				// Fail-closed lookup failure: the decision carries the
				// deny, the error is the diagnostic.
				log.WithFields(map[string]interface{}{
					"user_id": userID,
					"path":    r.URL.Path,
				}).WithError(err).Error("Entitlement evaluation failed")
			}

			if !decision.Allowed {
				denied(w, r, cfg, decision)
				return
			}

			ctx := context.WithValue(r.Context(), DecisionKey, decision)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthenticated(w http.ResponseWriter, r *http.Request, cfg GuardConfig) {
	if wantsJSON(r) {
		utils.WriteError(w, errors.Unauthorized("Authentication required"))
		return
	}
	redirectWithNext(w, r, cfg.SignInURL)
}

func denied(w http.ResponseWriter, r *http.Request, cfg GuardConfig, d entitlement.Decision) {
	if wantsJSON(r) {
		utils.WriteError(w, errors.PaymentRequired("Subscription required").WithDetails(map[string]interface{}{
			"reason": d.Reason,
		}))
		return
	}
	redirectWithNext(w, r, cfg.BillingURL)
}

// redirectWithNext captures the originally requested path so the user can
// be returned to it after signing in or fixing billing.
func redirectWithNext(w http.ResponseWriter, r *http.Request, target string) {
	dest := target + "?next=" + url.QueryEscape(r.URL.RequestURI())
	http.Redirect(w, r, dest, http.StatusFound)
}

func wantsJSON(r *http.Request) bool {
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json")
}

// GetDecision extracts the guard's entitlement decision from the request
// context. The boolean is false on routes outside the guard.
func GetDecision(r *http.Request) (entitlement.Decision, bool) {
	d, ok := r.Context().Value(DecisionKey).(entitlement.Decision)
	return d, ok
}
