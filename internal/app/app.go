package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/Inrcyteam/inrcy-app-sub002/internal/auth"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/billing"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/config"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/database"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/event"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/handler"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/integration"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/logger"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/mailaccount"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/metrics"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/middleware"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/provider"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/repository"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/security"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/user"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// appHealthChecker は設定の充足とDB疎通をヘルスチェック項目として報告する。
type appHealthChecker struct {
	db                *sql.DB
	billingConfigured bool
}

// Check は各チェック項目の結果を返す。
// configは起動時検証を通過していれば常にtrue。
func (c *appHealthChecker) Check(ctx context.Context) map[string]bool {
	return map[string]bool{
		"config":   true,
		"billing":  c.billingConfigured,
		"database": c.db.PingContext(ctx) == nil,
	}
}

// loginDescriptor はログイン認証用のGoogle IdP定義を返す。
// 連携機能のレジストリとは独立しており、トークンは保存しない。
func loginDescriptor() provider.Descriptor {
	return provider.Descriptor{
		Slug:        "google-login",
		Provider:    "google",
		Category:    "login",
		AuthURL:     "https://accounts.google.com/o/oauth2/auth",
		TokenURL:    "https://oauth2.googleapis.com/token",
		UserInfoURL: "https://www.googleapis.com/oauth2/v3/userinfo",
		Scopes:      []string{"openid", "email", "profile"},
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	identRepo := repository.NewPostgresIdentityRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	integrationRepo := repository.NewPostgresIntegrationRepo(db)
	subscriptionRepo := repository.NewPostgresSubscriptionRepo(db)
	mailRepo := repository.NewPostgresMailAccountRepo(db)
	eventRepo := repository.NewPostgresEventRepo(db)

	// 3. セキュリティサービスの初期化
	urlGuard := security.NewURLGuard()
	sanitizer := security.NewLabelSanitizer()
	signer := security.NewStateSigner(cfg.StateSigningSecret)
	cipher, err := security.NewTokenCipher(cfg.TokenEncryptionKey)
	if err != nil {
		return fmt.Errorf("failed to initialize token cipher: %w", err)
	}

	// 連携先へのHTTPリクエストはすべてSSRF防止クライアントを経由する
	safeClient := urlGuard.NewSafeClient(15 * time.Second)

	// 4. ドメインサービスの初期化
	loginConnector := provider.NewOAuthClient(loginDescriptor(), provider.Credentials{
		ClientID:     cfg.GoogleLoginClientID,
		ClientSecret: cfg.GoogleLoginClientSecret,
		RedirectURI:  cfg.GoogleLoginRedirectURI,
	}, safeClient)
	authService := auth.NewService(
		loginConnector, userRepo, identRepo, sessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)

	// 資格情報が設定済みの連携先のみコネクタを組み立てる
	connectors := make(map[string]provider.Connector)
	for _, desc := range provider.All() {
		creds := cfg.Provider(desc.Slug)
		if !creds.Configured() {
			slog.Warn("integration provider not configured, OAuth start will fail closed",
				slog.String("slug", desc.Slug),
			)
			continue
		}
		connectors[desc.Slug] = provider.NewOAuthClient(desc, provider.Credentials{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURI:  creds.RedirectURI,
		}, safeClient)
	}

	integrationService := integration.NewService(
		connectors, integrationRepo, signer, cipher, sanitizer, urlGuard, userRepo,
	)

	var stripeClient billing.StripeClient
	if cfg.StripeSecretKey != "" {
		stripeClient = billing.NewStripeClient(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	} else {
		slog.Warn("stripe is not configured, billing cancel will fail closed")
	}
	billingService := billing.NewService(stripeClient, subscriptionRepo)

	mailService := mailaccount.NewService(mailRepo, cipher)
	eventService := event.NewService(eventRepo)
	userService := user.NewService(userRepo, sessionRepo, integrationRepo, mailRepo, eventRepo)

	// 5. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 6. レートリミッターの構築（configはreq/min単位、rate.Limitはreq/sec単位）
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.OAuthStartRate = rate.Limit(float64(cfg.RateLimitOAuthStart) / 60.0)
	rateLimiterCfg.OAuthStartBurst = cfg.RateLimitOAuthStart
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	// 7. ルーターの構築
	deps := &handler.RouterDeps{
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Logger:       slog.Default(),
		Collector:    collector,
		HSTS:         cfg.CookieSecure,
		CookieSecure: cfg.CookieSecure,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		IntegrationService: integrationService,
		BillingService:     billingService,
		MailAccountService: mailService,
		EventService:       eventService,
		UserService:        userService,

		HealthChecker: &appHealthChecker{
			db:                db,
			billingConfigured: cfg.StripeSecretKey != "" && cfg.StripeWebhookSecret != "",
		},
		MetricsHandler: metrics.SetupMetricsRoute(registry),
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションと保持期間超過イベントの削除を日次で実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(db, slog.Default())
	cleanupJob.EventRetentionDays = cfg.EventRetentionDays

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Int("event_retention_days", cfg.EventRetentionDays),
	)

	// 起動直後に1回実行し、以降は日次で実行する
	if err := cleanupJob.Run(ctx); err != nil {
		slog.Error("cleanup job failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped gracefully")
			return nil
		case <-ticker.C:
			if err := cleanupJob.Run(ctx); err != nil {
				slog.Error("cleanup job failed", slog.String("error", err.Error()))
			}
		}
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
