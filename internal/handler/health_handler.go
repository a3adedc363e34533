package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthChecker はヘルスチェックの実行インターフェース。
// 依存コンポーネント名と成否のマップを返す。
type HealthChecker interface {
	Check(ctx context.Context) map[string]bool
}

// healthResponse はヘルスチェックのレスポンス形式。
type healthResponse struct {
	OK     bool            `json:"ok"`
	Checks map[string]bool `json:"checks"`
	Ts     time.Time       `json:"ts"`
}

// HealthHandler はヘルスチェックのHTTPハンドラー。
type HealthHandler struct {
	checker HealthChecker
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Health はヘルスチェックを実行する。
// GET /health
// すべてのチェックが成功した場合のみ200、1つでも失敗があれば503を返す。
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := h.checker.Check(ctx)

	ok := true
	for _, passed := range checks {
		if !passed {
			ok = false
			break
		}
	}

	statusCode := http.StatusOK
	if !ok {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(healthResponse{
		OK:     ok,
		Checks: checks,
		Ts:     time.Now().UTC(),
	})
}
