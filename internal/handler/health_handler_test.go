package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// mockHealthChecker はHealthCheckerのモック実装。
type mockHealthChecker struct {
	checks map[string]bool
}

func (m *mockHealthChecker) Check(ctx context.Context) map[string]bool {
	return m.checks
}

var _ HealthChecker = (*mockHealthChecker)(nil)

func TestHealthHandler_AllChecksPass(t *testing.T) {
	h := NewHealthHandler(&mockHealthChecker{checks: map[string]bool{"database": true}})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	h.Health(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body healthResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if !body.OK {
		t.Error("ok = false, want true")
	}
	if !body.Checks["database"] {
		t.Error("database check should pass")
	}
	if body.Ts.IsZero() {
		t.Error("ts should be set")
	}
}

func TestHealthHandler_FailedCheckReturns503(t *testing.T) {
	h := NewHealthHandler(&mockHealthChecker{checks: map[string]bool{"database": false}})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	h.Health(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}

	var body healthResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.OK {
		t.Error("ok = true, want false")
	}
}
