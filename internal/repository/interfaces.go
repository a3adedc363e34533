// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/Inrcyteam/inrcy-app-sub002/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するidentities、sessions、integrations等はCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error

	// SetIntegrationFlag は非正規化settingsの連携フラグを更新する。
	SetIntegrationFlag(ctx context.Context, userID, slug string, connected bool) error
}

// IdentityRepository はログイン用IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// IntegrationFilter は連携レコードの絞り込み条件。
// UserIDは必須: クライアント入力のみで絞り込むクエリはテナント分離を壊すため
// 発行してはならない。AccountIDが空の場合は(user, provider, category)の全行が対象。
// AccountIDはクライアントに公開している外部アカウントID（external_id列）と照合する。
type IntegrationFilter struct {
	UserID    string
	Provider  string
	Category  string
	AccountID string
}

// IntegrationRepository は連携レコードの永続化インターフェース。
type IntegrationRepository interface {
	// Create は連携レコードを作成する。
	// (user_id, provider, category) の重複は許容される。
	Create(ctx context.Context, integration *model.Integration) error

	// FindLatest は条件に一致する最新の連携レコードを取得する。
	// 並び順は updated_at DESC, created_at DESC。見つからない場合はnilを返す。
	FindLatest(ctx context.Context, userID, provider, category string) (*model.Integration, error)

	// ListByUserAndProvider は条件に一致する連携レコード一覧を新しい順で返す。
	// 複数アカウントを持てる連携先（カレンダー等）のアカウント一覧に使用する。
	ListByUserAndProvider(ctx context.Context, userID, provider, category string) ([]*model.Integration, error)

	// DeleteMatching は条件に一致する連携レコードを削除し、削除行数を返す。
	// 一致ゼロ件はエラーではない（冪等な解除のため）。
	DeleteMatching(ctx context.Context, filter IntegrationFilter) (int64, error)

	// DisableMatching は条件に一致する連携レコードのstatusをdisconnectedへ更新し、
	// 更新行数を返す。一致ゼロ件はエラーではない。
	DisableMatching(ctx context.Context, filter IntegrationFilter) (int64, error)

	// DeleteByUserID はユーザーの全連携レコードを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// BillingSubscriptionRepository は課金サブスクリプションの永続化インターフェース。
type BillingSubscriptionRepository interface {
	// FindByUserID はユーザーの最新のサブスクリプションを取得する。
	// 見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.BillingSubscription, error)

	// UpdateStatusByStripeSubscriptionID はStripe Webhookが運んできた状態を
	// ローカルの写しに反映する。対象が存在しない場合はエラーではなくゼロ件更新。
	UpdateStatusByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID, status string, currentPeriodEnd time.Time) error
}

// MailAccountRepository はメールアカウントの永続化インターフェース。
type MailAccountRepository interface {
	// Create はメールアカウントを作成する。
	Create(ctx context.Context, account *model.MailAccount) error

	// ListByUserID はユーザーのメールアカウント一覧を作成順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.MailAccount, error)

	// DeleteByUserAndID はユーザーIDとアカウントIDで削除し、削除行数を返す。
	// 一致ゼロ件はエラーではない（冪等な解除のため）。
	DeleteByUserAndID(ctx context.Context, userID, id string) (int64, error)

	// DeleteByUserID はユーザーの全メールアカウントを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// DashboardEventRepository はダッシュボードイベントの永続化インターフェース。
type DashboardEventRepository interface {
	// Create はイベントを作成する。
	Create(ctx context.Context, event *model.DashboardEvent) error

	// DeleteByUserID はユーザーの全イベントを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}
