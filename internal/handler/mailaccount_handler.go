package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Inrcyteam/inrcy-app-sub002/internal/mailaccount"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/middleware"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/model"
)

// MailAccountServiceInterface はメールアカウントハンドラーが必要とするサービスインターフェース。
type MailAccountServiceInterface interface {
	Create(ctx context.Context, userID string, input mailaccount.CreateInput) (*mailaccount.AccountView, error)
	List(ctx context.Context, userID string) ([]*mailaccount.AccountView, error)
	Delete(ctx context.Context, userID, id string) error
}

// MailAccountHandler はメールアカウント関連のHTTPハンドラー。
type MailAccountHandler struct {
	service MailAccountServiceInterface
}

// NewMailAccountHandler はMailAccountHandlerを生成する。
func NewMailAccountHandler(service MailAccountServiceInterface) *MailAccountHandler {
	return &MailAccountHandler{service: service}
}

// Create はメールアカウントを登録する。
// POST /api/mail/accounts
func (h *MailAccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var input mailaccount.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeInvalidRequest,
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	view, err := h.service.Create(r.Context(), userID, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(view)
}

// List はメールアカウント一覧を返す。
// GET /api/mail/accounts
func (h *MailAccountHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	views, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"accounts": views,
	})
}

// Delete はメールアカウントを削除する。対象ゼロ件も204を返す（冪等）。
// DELETE /api/mail/accounts/{id}
func (h *MailAccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
