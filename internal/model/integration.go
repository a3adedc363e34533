package model

import "time"

// IntegrationStatus は連携レコードの状態を表す。
type IntegrationStatus string

const (
	// IntegrationConnected は連携中の状態。
	IntegrationConnected IntegrationStatus = "connected"
	// IntegrationDisconnected は連携解除済みの状態。
	// ソフト切断する連携先のみこの状態のレコードが残る。
	IntegrationDisconnected IntegrationStatus = "disconnected"
)

// Integration はユーザーと外部プラットフォームの連携1件を表す。
// (user_id, provider, category) にユニーク制約は設けず、
// 読み取り時に updated_at DESC, created_at DESC の先頭レコードを有効とする。
// アクセストークンはAES-GCMで暗号化して保存し、レスポンスには含めない。
type Integration struct {
	ID             string
	UserID         string
	Provider       string // "google", "facebook", "instagram", "linkedin", "microsoft"
	Category       string // 同一providerの連携種別を区別する: "calendar", "stats" 等
	Status         IntegrationStatus
	Label          string // ダッシュボード表示用の名前（サニタイズ済み）
	ExternalID     string // 連携先でのアカウント/リソース識別子
	ProfileURL     string
	Metadata       map[string]string
	AccessTokenEnc []byte
	TokenExpiresAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Connected は連携中かどうかを返す。
func (i *Integration) Connected() bool {
	return i != nil && i.Status == IntegrationConnected
}

// BillingSubscription はStripe上の課金サブスクリプションのローカル写しを表す。
// 状態遷移の正はStripe Webhookで、解約APIはリクエストを中継するだけ。
type BillingSubscription struct {
	ID                   string
	UserID               string
	StripeCustomerID     string
	StripeSubscriptionID string
	Plan                 string
	Status               string
	CurrentPeriodEnd     time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// MailAccountKind はメールアカウントの種別を表す。
type MailAccountKind string

const (
	// MailAccountIMAP は汎用IMAPアカウント。
	MailAccountIMAP MailAccountKind = "imap"
	// MailAccountGmail はGmailアカウント。
	MailAccountGmail MailAccountKind = "gmail"
)

// MailAccount はユーザーが接続したメールアカウントを表す。
// パスワードは暗号化して保存し、レスポンスには含めない。
type MailAccount struct {
	ID          string
	UserID      string
	Kind        MailAccountKind
	Address     string
	Host        string
	Port        int
	Username    string
	PasswordEnc []byte
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DashboardEvent はダッシュボード機能（booster/fideliser）のイベント1件を表す。
type DashboardEvent struct {
	ID        string
	UserID    string
	Stream    string // "booster" | "fideliser"
	EventType string
	Payload   []byte // JSONのまま保存する
	CreatedAt time.Time
}
