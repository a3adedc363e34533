package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Inrcyteam/inrcy-app-sub002/internal/mailaccount"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/model"
)

// mockMailAccountService はMailAccountServiceInterfaceのモック実装。
type mockMailAccountService struct {
	createFn func(ctx context.Context, userID string, input mailaccount.CreateInput) (*mailaccount.AccountView, error)
	listFn   func(ctx context.Context, userID string) ([]*mailaccount.AccountView, error)
	deleteFn func(ctx context.Context, userID, id string) error
}

func (m *mockMailAccountService) Create(ctx context.Context, userID string, input mailaccount.CreateInput) (*mailaccount.AccountView, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, input)
	}
	return nil, nil
}

func (m *mockMailAccountService) List(ctx context.Context, userID string) ([]*mailaccount.AccountView, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return []*mailaccount.AccountView{}, nil
}

func (m *mockMailAccountService) Delete(ctx context.Context, userID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, id)
	}
	return nil
}

var _ MailAccountServiceInterface = (*mockMailAccountService)(nil)

// --- POST /api/mail/accounts テスト ---

func TestMailAccountHandler_Create_Success(t *testing.T) {
	svc := &mockMailAccountService{
		createFn: func(ctx context.Context, userID string, input mailaccount.CreateInput) (*mailaccount.AccountView, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q, want user-1", userID)
			}
			if input.Kind != "imap" || input.Address != "info@example.com" {
				t.Errorf("input = %+v", input)
			}
			return &mailaccount.AccountView{
				ID:        "mail-1",
				Kind:      input.Kind,
				Address:   input.Address,
				Host:      input.Host,
				Port:      input.Port,
				Username:  input.Username,
				CreatedAt: time.Now(),
			}, nil
		},
	}
	h := NewMailAccountHandler(svc)

	body := `{"kind": "imap", "address": "info@example.com", "host": "mail.example.com", "port": 993, "username": "info", "password": "secret"}`
	req := httptest.NewRequest(http.MethodPost, "/api/mail/accounts", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}

	var view mailaccount.AccountView
	if err := json.NewDecoder(w.Body).Decode(&view); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if view.ID != "mail-1" || view.Address != "info@example.com" {
		t.Errorf("view = %+v", view)
	}
	// パスワードがレスポンスに漏れない
	if bytes.Contains(w.Body.Bytes(), []byte("secret")) {
		t.Error("password should not appear in the response")
	}
}

func TestMailAccountHandler_Create_ValidationError(t *testing.T) {
	svc := &mockMailAccountService{
		createFn: func(ctx context.Context, userID string, input mailaccount.CreateInput) (*mailaccount.AccountView, error) {
			return nil, model.NewInvalidMailAccountError("address is invalid")
		},
	}
	h := NewMailAccountHandler(svc)

	body := `{"kind": "imap", "address": "not-an-address"}`
	req := httptest.NewRequest(http.MethodPost, "/api/mail/accounts", bytes.NewBufferString(body))
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if resp := parseAPIErrorResponse(t, w); resp["code"] != model.ErrCodeInvalidMailAccount {
		t.Errorf("code = %q, want %q", resp["code"], model.ErrCodeInvalidMailAccount)
	}
}

func TestMailAccountHandler_Create_MalformedBody(t *testing.T) {
	h := NewMailAccountHandler(&mockMailAccountService{})

	req := httptest.NewRequest(http.MethodPost, "/api/mail/accounts", bytes.NewBufferString("{broken"))
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

// --- GET /api/mail/accounts テスト ---

func TestMailAccountHandler_List(t *testing.T) {
	svc := &mockMailAccountService{
		listFn: func(ctx context.Context, userID string) ([]*mailaccount.AccountView, error) {
			return []*mailaccount.AccountView{
				{ID: "mail-1", Kind: "gmail", Address: "a@example.com"},
				{ID: "mail-2", Kind: "imap", Address: "b@example.com", Host: "mail.example.com", Port: 993},
			}, nil
		},
	}
	h := NewMailAccountHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/mail/accounts", nil)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body map[string][]*mailaccount.AccountView
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(body["accounts"]) != 2 {
		t.Errorf("accounts count = %d, want 2", len(body["accounts"]))
	}
}

// --- DELETE /api/mail/accounts/{id} テスト ---

func TestMailAccountHandler_Delete(t *testing.T) {
	var gotID string
	svc := &mockMailAccountService{
		deleteFn: func(ctx context.Context, userID, id string) error {
			if userID != "user-1" {
				t.Errorf("userID = %q, want user-1", userID)
			}
			gotID = id
			return nil
		},
	}
	h := NewMailAccountHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/mail/accounts/mail-1", nil)
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "id", "mail-1")
	w := httptest.NewRecorder()

	h.Delete(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if gotID != "mail-1" {
		t.Errorf("id = %q, want mail-1", gotID)
	}
}

func TestMailAccountHandler_Delete_Unauthenticated(t *testing.T) {
	h := NewMailAccountHandler(&mockMailAccountService{})

	req := httptest.NewRequest(http.MethodDelete, "/api/mail/accounts/mail-1", nil)
	req = withChiURLParam(req, "id", "mail-1")
	w := httptest.NewRecorder()

	h.Delete(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
