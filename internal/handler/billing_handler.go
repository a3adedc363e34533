package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/Inrcyteam/inrcy-app-sub002/internal/billing"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/middleware"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/model"
)

// stripeWebhookMaxBytes はWebhookペイロードの上限サイズ。
const stripeWebhookMaxBytes = 64 * 1024

// BillingServiceInterface は課金ハンドラーが必要とするサービスインターフェース。
type BillingServiceInterface interface {
	Cancel(ctx context.Context, userID string) (*billing.CancelResult, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// BillingHandler は課金関連のHTTPハンドラー。
type BillingHandler struct {
	service BillingServiceInterface
}

// NewBillingHandler はBillingHandlerを生成する。
func NewBillingHandler(service BillingServiceInterface) *BillingHandler {
	return &BillingHandler{service: service}
}

// Cancel はサブスクリプションの期間末解約をStripeへ中継する。
// POST /api/billing/cancel
// ローカルの状態は変更せず、Stripeが返した結果をそのまま返す。
func (h *BillingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	result, err := h.service.Cancel(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// Webhook はStripe Webhookを受け取り、検証してローカルの写しへ反映する。
// POST /webhooks/stripe
// 署名検証を持つため、セッション・CSRFミドルウェアの外に配置する。
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, stripeWebhookMaxBytes))
	if err != nil {
		slog.Error("failed to read webhook payload", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if err := h.service.HandleWebhook(r.Context(), payload, signature); err != nil {
		slog.Warn("stripe webhook rejected", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
}
