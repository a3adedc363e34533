// Package billing はStripeサブスクリプションの解約中継とWebhook反映を提供する。
//
// サブスクリプション状態の正はStripe側にあり、解約APIはStripeへの
// リクエスト中継のみを行う。ローカルの写しはWebhook経由でのみ更新する。
package billing

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/subscription"
	"github.com/stripe/stripe-go/v81/webhook"
)

// StripeClient はStripe APIの操作インターフェース。
// テストではモック実装に差し替える。
type StripeClient interface {
	// CancelSubscription は期間末解約を予約する。即時解約はしない。
	CancelSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
	// GetSubscription はサブスクリプションの現在の状態を取得する。
	GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
	// VerifyWebhook はWebhookペイロードの署名を検証しイベントを返す。
	VerifyWebhook(payload []byte, signature string) (*stripe.Event, error)
}

// stripeClient はStripeClientの実装。
type stripeClient struct {
	webhookSecret string
}

// NewStripeClient はStripeClientを生成する。
// stripe-goのAPIキーはプロセス全体で共有されるため生成時に設定する。
func NewStripeClient(apiKey, webhookSecret string) StripeClient {
	stripe.Key = apiKey
	return &stripeClient{webhookSecret: webhookSecret}
}

func (c *stripeClient) CancelSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	params.Context = ctx

	sub, err := subscription.Update(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("サブスクリプションの解約予約に失敗しました: %w", err)
	}
	return sub, nil
}

func (c *stripeClient) GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := subscription.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("サブスクリプションの取得に失敗しました: %w", err)
	}
	return sub, nil
}

func (c *stripeClient) VerifyWebhook(payload []byte, signature string) (*stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("Webhook署名の検証に失敗しました: %w", err)
	}
	return &event, nil
}

// compile-time interface check
var _ StripeClient = (*stripeClient)(nil)
