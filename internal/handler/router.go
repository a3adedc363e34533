package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Inrcyteam/inrcy-app-sub002/internal/metrics"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger
	Collector         metrics.MetricsCollector
	HSTS              bool
	CookieSecure      bool

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ドメインサービス
	IntegrationService IntegrationServiceInterface
	BillingService     BillingServiceInterface
	MailAccountService MailAccountServiceInterface
	EventService       EventServiceInterface
	UserService        UserServiceInterface

	// ヘルスチェック
	HealthChecker HealthChecker

	// Prometheusメトリクスエンドポイント（nilの場合は公開しない）
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Recovery → Logging →
//	（認証ルートのみ）Session → CSRF → RateLimit(General)
//
// /health、/auth/*、/webhooks/stripe はミドルウェアチェーンの外に配置する。
// Stripe Webhookは署名検証、認証ルートはstate Cookieが同等の防御を担う。
// /api/integrations/{slug}/status はセッションを任意扱いとし、未認証でも応答する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.HSTS))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Collector))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	integrationHandler := NewIntegrationHandler(deps.IntegrationService, deps.Collector, deps.CookieSecure)
	billingHandler := NewBillingHandler(deps.BillingService)
	mailHandler := NewMailAccountHandler(deps.MailAccountService)
	eventHandler := NewEventHandler(deps.EventService, deps.Collector)
	userHandler := NewUserHandler(deps.UserService)
	healthHandler := NewHealthHandler(deps.HealthChecker)

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler.Health)

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", authHandler.Login)
		r.Get("/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// Stripe Webhook（署名検証で保護）
	r.Post("/webhooks/stripe", billingHandler.Webhook)

	// CSRFトークン取得
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// 外部プラットフォーム連携。{slug}/statusのみ未認証でも応答する。
	r.Route("/api/integrations", func(r chi.Router) {
		r.With(middleware.NewOptionalSessionMiddleware(deps.SessionFinder)).
			Get("/{slug}/status", integrationHandler.SlugStatus)

		r.Group(func(r chi.Router) {
			r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
			r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
			r.Use(deps.RateLimiter.GeneralMiddleware())

			r.Get("/status", integrationHandler.Status)
			// OAuth開始には専用レート制限を追加
			r.With(deps.RateLimiter.OAuthStartMiddleware()).Get("/{slug}/connect", integrationHandler.Connect)
			r.Get("/{slug}/callback", integrationHandler.Callback)
			r.Post("/{slug}/disconnect", integrationHandler.Disconnect)
		})
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// カレンダー
		r.Route("/api/calendar", func(r chi.Router) {
			r.Get("/account", integrationHandler.ListCalendarAccounts)
			r.Get("/status", integrationHandler.CalendarStatus)
		})

		// 課金
		r.Post("/api/billing/cancel", billingHandler.Cancel)

		// メールアカウント
		r.Route("/api/mail/accounts", func(r chi.Router) {
			r.Post("/", mailHandler.Create)
			r.Get("/", mailHandler.List)
			r.Delete("/{id}", mailHandler.Delete)
		})

		// ダッシュボードイベント
		r.Post("/api/events/{stream}", eventHandler.Record)

		// ユーザー管理
		r.Delete("/api/users/me", userHandler.Withdraw)
	})

	return r
}
