package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Inrcyteam/inrcy-app-sub002/internal/model"
)

// PostgresSubscriptionRepo はPostgreSQLを使用した課金サブスクリプションリポジトリ。
type PostgresSubscriptionRepo struct {
	db *sql.DB
}

// NewPostgresSubscriptionRepo はPostgresSubscriptionRepoを生成する。
func NewPostgresSubscriptionRepo(db *sql.DB) *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{db: db}
}

// FindByUserID はユーザーの最新のサブスクリプションを取得する。見つからない場合はnilを返す。
func (r *PostgresSubscriptionRepo) FindByUserID(ctx context.Context, userID string) (*model.BillingSubscription, error) {
	sub := &model.BillingSubscription{}
	var periodEnd sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, stripe_customer_id, stripe_subscription_id, plan, status,
		        current_period_end, created_at, updated_at
		 FROM subscriptions
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1`,
		userID,
	).Scan(
		&sub.ID, &sub.UserID, &sub.StripeCustomerID, &sub.StripeSubscriptionID,
		&sub.Plan, &sub.Status, &periodEnd, &sub.CreatedAt, &sub.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("サブスクリプションの取得に失敗しました: %w", err)
	}

	if periodEnd.Valid {
		sub.CurrentPeriodEnd = periodEnd.Time
	}

	return sub, nil
}

// UpdateStatusByStripeSubscriptionID はWebhookが運んできた状態をローカルの写しへ反映する。
// 対象が存在しない場合はゼロ件更新として成功する（Webhookの順序は保証されないため）。
func (r *PostgresSubscriptionRepo) UpdateStatusByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID, status string, currentPeriodEnd time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE subscriptions
		 SET status = $2, current_period_end = $3, updated_at = now()
		 WHERE stripe_subscription_id = $1`,
		stripeSubscriptionID, status, currentPeriodEnd,
	)
	if err != nil {
		return fmt.Errorf("サブスクリプション状態の更新に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ BillingSubscriptionRepository = (*PostgresSubscriptionRepo)(nil)
