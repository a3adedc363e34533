// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, integration, billing, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeInvalidRequest        = "INVALID_REQUEST"
	ErrCodeUnknownProvider       = "UNKNOWN_PROVIDER"
	ErrCodeProviderNotConfigured = "PROVIDER_NOT_CONFIGURED"
	ErrCodeInvalidState          = "INVALID_STATE"
	ErrCodeMissingAccountID      = "MISSING_ACCOUNT_ID"
	ErrCodeNoSubscription        = "NO_SUBSCRIPTION"
	ErrCodeBillingNotConfigured  = "BILLING_NOT_CONFIGURED"
	ErrCodeInvalidEventType      = "INVALID_EVENT_TYPE"
	ErrCodeInvalidEventStream    = "INVALID_EVENT_STREAM"
	ErrCodeInvalidMailAccount    = "INVALID_MAIL_ACCOUNT"
	ErrCodeUserNotFound          = "USER_NOT_FOUND"
)

// NewUnauthorizedError は認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewUnknownProviderError は未知の連携先エラーを生成する。
func NewUnknownProviderError(slug string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownProvider,
		Message:  fmt.Sprintf("未知の連携先です: %s", slug),
		Category: "integration",
		Action:   "連携先の指定を確認してください。",
	}
}

// NewProviderNotConfiguredError は連携先の設定不足エラーを生成する。
// OAuth開始時にclient-idやredirect-URIが未設定の場合、
// リダイレクトせずこのエラーで閉じる。
func NewProviderNotConfiguredError(slug string) *APIError {
	return &APIError{
		Code:     ErrCodeProviderNotConfigured,
		Message:  fmt.Sprintf("連携先が設定されていません: %s", slug),
		Category: "system",
		Action:   "管理者に連絡してください。",
	}
}

// NewInvalidStateError はOAuth stateの検証失敗エラーを生成する。
func NewInvalidStateError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidState,
		Message:  "認可フローの検証に失敗しました。",
		Category: "auth",
		Action:   "連携をやり直してください。",
	}
}

// NewMissingAccountIDError はアカウントID未指定エラーを生成する。
// 複数アカウントを持てる連携先の解除時に必須となる。
func NewMissingAccountIDError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingAccountID,
		Message:  "Missing accountId",
		Category: "validation",
		Action:   "解除するアカウントのIDを指定してください。",
	}
}

// NewNoSubscriptionError は解約対象のサブスクリプションが存在しないエラーを生成する。
func NewNoSubscriptionError() *APIError {
	return &APIError{
		Code:     ErrCodeNoSubscription,
		Message:  "解約対象のサブスクリプションがありません。",
		Category: "billing",
		Action:   "契約状況を確認してください。",
	}
}

// NewBillingNotConfiguredError は課金機能の設定不足エラーを生成する。
func NewBillingNotConfiguredError() *APIError {
	return &APIError{
		Code:     ErrCodeBillingNotConfigured,
		Message:  "課金機能が設定されていません。",
		Category: "system",
		Action:   "管理者に連絡してください。",
	}
}

// NewInvalidEventStreamError は未知のイベントストリームエラーを生成する。
func NewInvalidEventStreamError(stream string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEventStream,
		Message:  fmt.Sprintf("未知のイベントストリームです: %s", stream),
		Category: "validation",
		Action:   "booster または fideliser を指定してください。",
	}
}

// NewInvalidEventTypeError は許可されていないイベント種別エラーを生成する。
func NewInvalidEventTypeError(eventType string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEventType,
		Message:  fmt.Sprintf("許可されていないイベント種別です: %s", eventType),
		Category: "validation",
		Action:   "イベント種別を確認してください。",
	}
}

// NewInvalidMailAccountError はメールアカウントの入力不備エラーを生成する。
func NewInvalidMailAccountError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidMailAccount,
		Message:  fmt.Sprintf("メールアカウントの入力が不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
