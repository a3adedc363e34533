package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v81"

	"github.com/Inrcyteam/inrcy-app-sub002/internal/model"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/repository"
)

// CancelResult は解約予約の結果。Stripeが返した状態をそのまま伝える。
type CancelResult struct {
	OK                bool      `json:"ok"`
	Status            string    `json:"status"`
	CancelAtPeriodEnd bool      `json:"cancel_at_period_end"`
	CurrentPeriodEnd  time.Time `json:"current_period_end"`
}

// Service は課金に関するビジネスロジックを提供する。
type Service struct {
	client StripeClient
	repo   repository.BillingSubscriptionRepository
}

// NewService はServiceを生成する。
// Stripeキーが未設定の環境ではclientにnilを渡し、全操作がエラーで閉じる。
func NewService(client StripeClient, repo repository.BillingSubscriptionRepository) *Service {
	return &Service{client: client, repo: repo}
}

// Cancel はユーザーのサブスクリプションの期間末解約をStripeへ中継する。
// ローカルの写しは更新しない。解約後の状態はWebhookで反映される。
// 既に解約予約済みの場合もStripeへの中継は成功し、同じ結果が返る（冪等）。
func (s *Service) Cancel(ctx context.Context, userID string) (*CancelResult, error) {
	if s.client == nil {
		return nil, model.NewBillingNotConfiguredError()
	}

	sub, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	if sub == nil || sub.StripeSubscriptionID == "" {
		return nil, model.NewNoSubscriptionError()
	}

	updated, err := s.client.CancelSubscription(ctx, sub.StripeSubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel subscription: %w", err)
	}

	slog.Info("subscription cancellation scheduled",
		slog.String("user_id", userID),
		slog.String("stripe_subscription_id", sub.StripeSubscriptionID),
	)

	return &CancelResult{
		OK:                true,
		Status:            string(updated.Status),
		CancelAtPeriodEnd: updated.CancelAtPeriodEnd,
		CurrentPeriodEnd:  time.Unix(updated.CurrentPeriodEnd, 0),
	}, nil
}

// HandleWebhook はStripe Webhookを検証し、サブスクリプション状態を
// ローカルの写しへ反映する。興味のないイベント種別は無視して成功を返す。
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.client == nil {
		return model.NewBillingNotConfiguredError()
	}

	event, err := s.client.VerifyWebhook(payload, signature)
	if err != nil {
		return fmt.Errorf("failed to verify webhook: %w", err)
	}

	switch string(event.Type) {
	case "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("failed to parse subscription event: %w", err)
		}

		periodEnd := time.Unix(sub.CurrentPeriodEnd, 0)
		if err := s.repo.UpdateStatusByStripeSubscriptionID(ctx, sub.ID, string(sub.Status), periodEnd); err != nil {
			return fmt.Errorf("failed to apply subscription status: %w", err)
		}

		slog.Info("subscription status applied from webhook",
			slog.String("stripe_subscription_id", sub.ID),
			slog.String("status", string(sub.Status)),
		)
	default:
		slog.Debug("ignoring webhook event", slog.String("type", string(event.Type)))
	}

	return nil
}
