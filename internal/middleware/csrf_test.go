package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// TestCSRFMiddleware_SafeMethodSetsCookie はGETリクエストが検証なしで通過し、
// トークンCookieが設定されることを検証する。
func TestCSRFMiddleware_SafeMethodSetsCookie(t *testing.T) {
	mw := NewCSRFMiddleware(CSRFConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/integrations/status", nil)
	rec := httptest.NewRecorder()

	mw(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "csrf_token" && c.Value != "" {
			found = true
			if c.HttpOnly {
				t.Error("CSRF cookie should not be HttpOnly")
			}
			if c.SameSite != http.SameSiteLaxMode {
				t.Errorf("SameSite = %v, want Lax", c.SameSite)
			}
		}
	}
	if !found {
		t.Error("csrf_token cookie not set on safe method")
	}
}

// TestCSRFMiddleware_SafeMethodKeepsExistingCookie は既にCookieがある場合に
// 再設定しないことを検証する。
func TestCSRFMiddleware_SafeMethodKeepsExistingCookie(t *testing.T) {
	mw := NewCSRFMiddleware(CSRFConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/integrations/status", nil)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "existing-token"})
	rec := httptest.NewRecorder()

	mw(okHandler()).ServeHTTP(rec, req)

	if len(rec.Result().Cookies()) != 0 {
		t.Errorf("expected no Set-Cookie when token already present, got %d", len(rec.Result().Cookies()))
	}
}

// TestCSRFMiddleware_PostWithoutToken はトークンなしのPOSTが403になることを検証する。
func TestCSRFMiddleware_PostWithoutToken(t *testing.T) {
	mw := NewCSRFMiddleware(CSRFConfig{})

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/billing/cancel", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body.Code != "CSRF_VALIDATION_FAILED" {
		t.Errorf("error code = %q, want CSRF_VALIDATION_FAILED", body.Code)
	}
}

// TestCSRFMiddleware_PostMissingHeader はCookieのみでヘッダーがないPOSTの403を検証する。
func TestCSRFMiddleware_PostMissingHeader(t *testing.T) {
	mw := NewCSRFMiddleware(CSRFConfig{})

	req := httptest.NewRequest(http.MethodPost, "/api/events/booster", nil)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "token-value"})
	rec := httptest.NewRecorder()

	mw(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

// TestCSRFMiddleware_PostTokenMismatch はCookieとヘッダーのトークン不一致の403を検証する。
func TestCSRFMiddleware_PostTokenMismatch(t *testing.T) {
	mw := NewCSRFMiddleware(CSRFConfig{})

	req := httptest.NewRequest(http.MethodPost, "/api/events/booster", nil)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "token-a"})
	req.Header.Set("X-CSRF-Token", "token-b")
	rec := httptest.NewRecorder()

	mw(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

// TestCSRFMiddleware_PostMatchingTokens はダブルサブミットの一致でPOSTが通過することを検証する。
func TestCSRFMiddleware_PostMatchingTokens(t *testing.T) {
	mw := NewCSRFMiddleware(CSRFConfig{})

	req := httptest.NewRequest(http.MethodPost, "/api/events/booster", nil)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "token-shared"})
	req.Header.Set("X-CSRF-Token", "token-shared")
	rec := httptest.NewRecorder()

	mw(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

// TestCSRFTokenHandler_NewToken はトークンエンドポイントが新規トークンを生成・返却することを検証する。
func TestCSRFTokenHandler_NewToken(t *testing.T) {
	handler := NewCSRFTokenHandler(CSRFConfig{CookieSecure: true})

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["token"] == "" {
		t.Error("token should not be empty")
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "csrf_token" {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("csrf_token cookie not set")
	}
	if cookie.Value != body["token"] {
		t.Error("cookie token and response token should match")
	}
	if !cookie.Secure {
		t.Error("cookie should be Secure when configured")
	}
}

// TestCSRFTokenHandler_ExistingToken は既存トークンがそのまま返却されることを検証する。
func TestCSRFTokenHandler_ExistingToken(t *testing.T) {
	handler := NewCSRFTokenHandler(CSRFConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "existing-token"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["token"] != "existing-token" {
		t.Errorf("token = %q, want existing-token", body["token"])
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("expected no Set-Cookie when token already present")
	}
}
