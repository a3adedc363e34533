package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Inrcyteam/inrcy-app-sub002/internal/event"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/metrics"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/middleware"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/model"
)

// EventServiceInterface はイベントハンドラーが必要とするサービスインターフェース。
type EventServiceInterface interface {
	Record(ctx context.Context, userID, stream string, input event.RecordInput) (*model.DashboardEvent, error)
}

// EventHandler はダッシュボードイベント関連のHTTPハンドラー。
type EventHandler struct {
	service   EventServiceInterface
	collector metrics.MetricsCollector
}

// NewEventHandler はEventHandlerを生成する。
func NewEventHandler(service EventServiceInterface, collector metrics.MetricsCollector) *EventHandler {
	return &EventHandler{service: service, collector: collector}
}

// Record はダッシュボードイベントを記録する。
// POST /api/events/{stream}
// streamはboosterまたはfideliser。種別は許可リストで検証する。
func (h *EventHandler) Record(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var input event.RecordInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeInvalidRequest,
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	stream := chi.URLParam(r, "stream")

	if _, err := h.service.Record(r.Context(), userID, stream, input); err != nil {
		handleServiceError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordEventRecorded(stream)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}
