// Package config は環境変数からのアプリケーション設定の読み込みを提供する。
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ProviderCredentials は1つのOAuth連携先の認証情報を保持する。
// 連携先ごとに任意設定: 未設定の連携先は起動を妨げず、
// OAuth開始リクエスト時にfail closedで500を返す。
type ProviderCredentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Configured はOAuthフローに必要な値がすべて揃っているかを返す。
func (c ProviderCredentials) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURI != ""
}

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Session
	SessionSecret string
	SessionMaxAge int

	// ログイン認証（Google IdP）
	GoogleLoginClientID     string
	GoogleLoginClientSecret string
	GoogleLoginRedirectURI  string

	// OAuth state署名・トークン暗号化
	StateSigningSecret string
	TokenEncryptionKey []byte // 32バイト（AES-256-GCM）

	// 連携先ごとのOAuth認証情報（任意設定）
	Providers map[string]ProviderCredentials

	// Billing (Stripe)
	StripeSecretKey     string
	StripeWebhookSecret string

	// SMTP（存在チェックのみ。メール送信は本レイヤーの対象外）
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string

	// Rate Limit
	RateLimitGeneral    int
	RateLimitOAuthStart int

	// ダッシュボードイベントの保持日数
	EventRetentionDays int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// providerEnvPrefixes は連携先スラッグと環境変数プレフィックスの対応表。
// 例: google-calendar → GOOGLE_CALENDAR_CLIENT_ID 等
var providerEnvPrefixes = map[string]string{
	"google-calendar": "GOOGLE_CALENDAR",
	"google-business": "GOOGLE_BUSINESS",
	"instagram":       "INSTAGRAM",
	"messenger":       "MESSENGER",
	"linkedin":        "LINKEDIN",
	"microsoft":       "MICROSOFT",
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返し、プロセスは起動しない。
// 連携先ごとのOAuth認証情報とStripe/SMTP設定は任意。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.StateSigningSecret = os.Getenv("STATE_SIGNING_SECRET")
	if cfg.StateSigningSecret == "" {
		missing = append(missing, "STATE_SIGNING_SECRET")
	}

	tokenKeyHex := os.Getenv("TOKEN_ENCRYPTION_KEY")
	if tokenKeyHex == "" {
		missing = append(missing, "TOKEN_ENCRYPTION_KEY")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	cfg.GoogleLoginClientID = os.Getenv("GOOGLE_LOGIN_CLIENT_ID")
	if cfg.GoogleLoginClientID == "" {
		missing = append(missing, "GOOGLE_LOGIN_CLIENT_ID")
	}

	cfg.GoogleLoginClientSecret = os.Getenv("GOOGLE_LOGIN_CLIENT_SECRET")
	if cfg.GoogleLoginClientSecret == "" {
		missing = append(missing, "GOOGLE_LOGIN_CLIENT_SECRET")
	}

	cfg.GoogleLoginRedirectURI = os.Getenv("GOOGLE_LOGIN_REDIRECT_URI")
	if cfg.GoogleLoginRedirectURI == "" {
		missing = append(missing, "GOOGLE_LOGIN_REDIRECT_URI")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// トークン暗号化キーは32バイトのhex文字列であること
	key, err := hex.DecodeString(tokenKeyHex)
	if err != nil {
		return nil, fmt.Errorf("TOKEN_ENCRYPTION_KEY must be a hex string: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("TOKEN_ENCRYPTION_KEY must decode to 32 bytes, got %d bytes", len(key))
	}
	cfg.TokenEncryptionKey = key

	// 連携先ごとのOAuth認証情報
	cfg.Providers = make(map[string]ProviderCredentials, len(providerEnvPrefixes))
	for slug, prefix := range providerEnvPrefixes {
		cfg.Providers[slug] = ProviderCredentials{
			ClientID:     os.Getenv(prefix + "_CLIENT_ID"),
			ClientSecret: os.Getenv(prefix + "_CLIENT_SECRET"),
			RedirectURI:  os.Getenv(prefix + "_REDIRECT_URI"),
		}
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.StripeSecretKey = os.Getenv("STRIPE_SECRET_KEY")
	cfg.StripeWebhookSecret = os.Getenv("STRIPE_WEBHOOK_SECRET")
	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	cfg.SMTPPort = os.Getenv("SMTP_PORT")
	cfg.SMTPUsername = os.Getenv("SMTP_USERNAME")
	cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitOAuthStart = getEnvInt("RATE_LIMIT_OAUTH_START", 10)
	cfg.EventRetentionDays = getEnvInt("EVENT_RETENTION_DAYS", 90)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// Provider は指定スラッグの連携先認証情報を返す。
// 未知のスラッグの場合はゼロ値を返す（Configured()はfalseになる）。
func (c *Config) Provider(slug string) ProviderCredentials {
	return c.Providers[slug]
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}
