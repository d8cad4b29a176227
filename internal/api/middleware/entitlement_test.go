package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/venuepulse/venuepulse/internal/domain/entitlement"
	"github.com/venuepulse/venuepulse/internal/pkg/logger"
)

// stubEntitlements returns a canned decision for every Evaluate call.
type stubEntitlements struct {
	decision entitlement.Decision
	err      error
	delay    time.Duration
}

func (s *stubEntitlements) Evaluate(ctx context.Context, userID int64) (entitlement.Decision, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return entitlement.Decision{}, ctx.Err()
		}
	}
	return s.decision, s.err
}

func (s *stubEntitlements) TrialStatus(ctx context.Context, userID int64) (entitlement.TrialStatus, error) {
	return entitlement.TrialStatus{}, nil
}

func (s *stubEntitlements) Invalidate(ctx context.Context, userID int64) error {
	return nil
}

var guardCfg = GuardConfig{
	SignInURL:  "/sign-in",
	BillingURL: "/billing",
}

func guardTestLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

func authedRequest(t *testing.T, target string, userID int64) *http.Request {
	t.Helper()
	r := httptest.NewRequest("GET", target, nil)
	ctx := context.WithValue(r.Context(), UserIDKey, userID)
	return r.WithContext(ctx)
}

func runGuard(svc entitlement.Service, r *http.Request) (*httptest.ResponseRecorder, bool) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	w := httptest.NewRecorder()
	EntitlementGuard(svc, guardCfg, guardTestLogger())(next).ServeHTTP(w, r)
	return w, called
}

func TestGuardAllowed(t *testing.T) {
	svc := &stubEntitlements{decision: entitlement.Decision{
		Allowed:     true,
		Reason:      entitlement.ReasonActiveTrial,
		EvaluatedAt: time.Now(),
	}}

	var got entitlement.Decision
	var ok bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = GetDecision(r)
		w.WriteHeader(http.StatusOK)
	})

	w := httptest.NewRecorder()
	EntitlementGuard(svc, guardCfg, guardTestLogger())(next).ServeHTTP(w, authedRequest(t, "/dashboard", 1))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !ok {
		t.Fatal("decision not placed in request context")
	}
	if got.Reason != entitlement.ReasonActiveTrial {
		t.Errorf("decision reason = %q, want active_trial", got.Reason)
	}
}

func TestGuardUnauthenticatedBrowser(t *testing.T) {
	svc := &stubEntitlements{}
	r := httptest.NewRequest("GET", "/dashboard/reports?week=12", nil)

	w, called := runGuard(svc, r)

	if called {
		t.Error("next handler ran for unauthenticated request")
	}
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	loc := w.Header().Get("Location")
	if !strings.HasPrefix(loc, "/sign-in?next=") {
		t.Fatalf("Location = %q, want sign-in redirect", loc)
	}
	next, err := url.QueryUnescape(strings.TrimPrefix(loc, "/sign-in?next="))
	if err != nil {
		t.Fatalf("next param unescape: %v", err)
	}
	if next != "/dashboard/reports?week=12" {
		t.Errorf("next = %q, want original path with query", next)
	}
}

func TestGuardUnauthenticatedXHR(t *testing.T) {
	svc := &stubEntitlements{}
	r := httptest.NewRequest("GET", "/dashboard", nil)
	r.Header.Set("X-Requested-With", "XMLHttpRequest")

	w, called := runGuard(svc, r)

	if called {
		t.Error("next handler ran for unauthenticated request")
	}
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestGuardDeniedBrowser(t *testing.T) {
	svc := &stubEntitlements{decision: entitlement.Decision{
		Allowed: false,
		Reason:  entitlement.ReasonTrialExpired,
	}}

	w, called := runGuard(svc, authedRequest(t, "/dashboard", 1))

	if called {
		t.Error("next handler ran for denied request")
	}
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); !strings.HasPrefix(loc, "/billing?next=") {
		t.Errorf("Location = %q, want billing redirect", loc)
	}
}

func TestGuardDeniedJSON(t *testing.T) {
	svc := &stubEntitlements{decision: entitlement.Decision{
		Allowed: false,
		Reason:  entitlement.ReasonSubscriptionInactive,
	}}

	r := authedRequest(t, "/dashboard", 1)
	r.Header.Set("Accept", "application/json")

	w, called := runGuard(svc, r)

	if called {
		t.Error("next handler ran for denied request")
	}
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", w.Code)
	}

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string `json:"code"`
			Details struct {
				Reason string `json:"reason"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error.Details.Reason != string(entitlement.ReasonSubscriptionInactive) {
		t.Errorf("reason detail = %q, want subscription_inactive", body.Error.Details.Reason)
	}
}

func TestGuardFailClosedError(t *testing.T) {
	svc := &stubEntitlements{
		decision: entitlement.Decision{Allowed: false, Reason: entitlement.ReasonLookupFailed},
		err:      context.DeadlineExceeded,
	}

	r := authedRequest(t, "/dashboard", 1)
	r.Header.Set("Accept", "application/json")

	w, called := runGuard(svc, r)

	if called {
		t.Error("next handler ran despite fail-closed denial")
	}
	if w.Code != http.StatusPaymentRequired {
		t.Errorf("status = %d, want 402", w.Code)
	}
}

func TestGuardClientDisconnect(t *testing.T) {
	svc := &stubEntitlements{
		decision: entitlement.Decision{Allowed: true, Reason: entitlement.ReasonActiveTrial},
		delay:    50 * time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := httptest.NewRequest("GET", "/dashboard", nil)
	ctx = context.WithValue(ctx, UserIDKey, int64(1))
	r = r.WithContext(ctx)

	// Simulate the client going away mid-evaluation.
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	w, called := runGuard(svc, r)

	if called {
		t.Error("next handler ran after client disconnect")
	}
	if w.Body.Len() != 0 {
		t.Errorf("guard wrote %d bytes after disconnect, want none", w.Body.Len())
	}
	if w.Code != http.StatusOK {
		// httptest's default code means no explicit WriteHeader happened.
		t.Errorf("status = %d, want untouched recorder", w.Code)
	}
}
