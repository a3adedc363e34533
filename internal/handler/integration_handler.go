package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/Inrcyteam/inrcy-app-sub002/internal/integration"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/metrics"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/middleware"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/model"
)

// integrationNonceCookie はOAuthコールバックまでnonceを保持するCookieの名前。
// stateに埋めたnonceと突き合わせ、別ブラウザで開始されたフローを拒否する。
const integrationNonceCookie = "integration_nonce"

// IntegrationServiceInterface は連携ハンドラーが必要とするサービスインターフェース。
type IntegrationServiceInterface interface {
	StartOAuth(ctx context.Context, slug, returnTo string) (*integration.StartResult, error)
	HandleCallback(ctx context.Context, userID, slug, code, state, nonce string) (string, error)
	Disconnect(ctx context.Context, userID, slug, accountID string) error
	Status(ctx context.Context, userID string) (map[string]integration.StatusEntry, error)
	SlugStatus(ctx context.Context, userID, slug string) (*integration.StatusEntry, error)
	ListCalendarAccounts(ctx context.Context, userID string) ([]integration.CalendarAccount, error)
	CalendarConnected(ctx context.Context, userID string) (bool, error)
}

// IntegrationHandler は連携ライフサイクル関連のHTTPハンドラー。
type IntegrationHandler struct {
	service      IntegrationServiceInterface
	collector    metrics.MetricsCollector
	cookieSecure bool
}

// NewIntegrationHandler はIntegrationHandlerを生成する。
func NewIntegrationHandler(service IntegrationServiceInterface, collector metrics.MetricsCollector, cookieSecure bool) *IntegrationHandler {
	return &IntegrationHandler{
		service:      service,
		collector:    collector,
		cookieSecure: cookieSecure,
	}
}

// Connect は連携先への認可リダイレクトを開始する。
// GET /api/integrations/{slug}/connect?return_to=/dashboard
// 未知のスラッグや未設定の連携先ではリダイレクトせずJSONエラーを返す。
func (h *IntegrationHandler) Connect(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	result, err := h.service.StartOAuth(r.Context(), slug, r.URL.Query().Get("return_to"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordOAuthStart(slug)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     integrationNonceCookie,
		Value:    result.Nonce,
		Path:     "/",
		MaxAge:   600, // stateの有効期間と同じ10分
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, result.RedirectURL, http.StatusTemporaryRedirect)
}

// Callback は連携先からのOAuthコールバックを処理する。
// GET /api/integrations/{slug}/callback?code=xxx&state=yyy
// 連携先でエラーになった場合はダッシュボードへエラーパラメータ付きでリダイレクトする。
func (h *IntegrationHandler) Callback(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	nonce := ""
	if cookie, err := r.Cookie(integrationNonceCookie); err == nil {
		nonce = cookie.Value
	}

	// nonceは使い捨て
	http.SetCookie(w, &http.Cookie{
		Name:     integrationNonceCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 連携先での拒否やエラーはダッシュボードへ戻す
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		slog.Warn("oauth callback returned error",
			slog.String("slug", slug),
			slog.String("error", errParam),
		)
		h.recordCallback(slug, "error")
		http.Redirect(w, r, "/?integration_error="+url.QueryEscape(errParam), http.StatusTemporaryRedirect)
		return
	}

	returnTo, err := h.service.HandleCallback(r.Context(), userID, slug,
		r.URL.Query().Get("code"), r.URL.Query().Get("state"), nonce)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			if apiErr.Code == model.ErrCodeInvalidState {
				h.recordCallback(slug, "invalid_state")
			} else {
				h.recordCallback(slug, "error")
			}
			handleServiceError(w, err)
			return
		}

		// stateは正当だがトークン交換以降で失敗: ダッシュボードへ戻す
		slog.Error("oauth callback failed",
			slog.String("slug", slug),
			slog.String("error", err.Error()),
		)
		h.recordCallback(slug, "error")
		if returnTo == "" {
			returnTo = "/"
		}
		http.Redirect(w, r, returnTo+"?integration_error=exchange_failed", http.StatusTemporaryRedirect)
		return
	}

	h.recordCallback(slug, "success")
	http.Redirect(w, r, returnTo, http.StatusTemporaryRedirect)
}

// disconnectRequest は連携解除リクエストのボディ。
type disconnectRequest struct {
	AccountID string `json:"accountId"`
}

// Disconnect は連携を解除する。
// POST /api/integrations/{slug}/disconnect
// accountIdはクエリパラメータまたはJSONボディで指定する。
// 複数アカウント型の連携先では必須。対象ゼロ件も{ok:true}を返す（冪等）。
func (h *IntegrationHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	accountID := r.URL.Query().Get("accountId")
	if accountID == "" && r.Body != nil {
		var req disconnectRequest
		// ボディが空でも解除は続行する
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			accountID = req.AccountID
		}
	}

	if err := h.service.Disconnect(r.Context(), userID, slug, accountID); err != nil {
		handleServiceError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordDisconnect(slug)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// Status は全連携先の接続状態を返す。
// GET /api/integrations/status
// 対応する全スラッグがレスポンスに必ず含まれる。
func (h *IntegrationHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	status, err := h.service.Status(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// SlugStatus は1連携先の接続状態を返す。
// GET /api/integrations/{slug}/status
// 未認証のリクエストでも接続済みでなければ200で{connected:false}を返す。
func (h *IntegrationHandler) SlugStatus(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	userID, _ := middleware.UserIDFromContext(r.Context())

	entry, err := h.service.SlugStatus(r.Context(), userID, slug)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

// ListCalendarAccounts は接続済みカレンダーアカウント一覧を返す。
// GET /api/calendar/account
// accountには先頭の1件（未接続ならnull）、accountsには全件を載せる。
func (h *IntegrationHandler) ListCalendarAccounts(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	accounts, err := h.service.ListCalendarAccounts(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if accounts == nil {
		accounts = []integration.CalendarAccount{}
	}

	var first *integration.CalendarAccount
	if len(accounts) > 0 {
		first = &accounts[0]
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"account":  first,
		"accounts": accounts,
	})
}

// CalendarStatus はカレンダー連携の接続状態を返す。
// GET /api/calendar/status
func (h *IntegrationHandler) CalendarStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	connected, err := h.service.CalendarConnected(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{
		"connected": connected,
	})
}

// recordCallback はOAuthコールバックの結果メトリクスを記録する。
func (h *IntegrationHandler) recordCallback(slug, result string) {
	if h.collector != nil {
		h.collector.RecordOAuthCallback(slug, result)
	}
}
