package handlers

import (
	"net/http"

	"github.com/venuepulse/venuepulse/internal/api/middleware"
	"github.com/venuepulse/venuepulse/internal/pkg/utils"
)

// Dashboard is the entry point for the paid feedback dashboard. It sits
// behind the entitlement guard, so reaching it at all means access was
// granted; the decision is exposed so the frontend can render the
// right banner (trial countdown, demo badge, impersonation warning).
func Dashboard(w http.ResponseWriter, r *http.Request) {
	decision, _ := middleware.GetDecision(r)
	utils.WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"reason":      string(decision.Reason),
		"evaluatedAt": decision.EvaluatedAt,
	})
}
