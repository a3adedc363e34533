package security

import "github.com/microcosm-cc/bluemonday"

// LabelSanitizerService は連携先から取得した表示名のサニタイズ機能の
// インターフェースを定義する。保存前に使用する。
type LabelSanitizerService interface {
	// Sanitize は表示名からすべてのHTMLタグを除去したプレーンテキストを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// labelSanitizer はLabelSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type labelSanitizer struct {
	policy *bluemonday.Policy
}

// NewLabelSanitizer はLabelSanitizerServiceの新しいインスタンスを生成する。
// 表示名はダッシュボードにテキストとして表示するだけのため、
// タグを一切許可しないStrictPolicyを使用する。
func NewLabelSanitizer() *labelSanitizer {
	return &labelSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は表示名からHTMLタグとイベント属性をすべて除去する。
func (s *labelSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	return s.policy.Sanitize(raw)
}

// compile-time interface check
var _ LabelSanitizerService = (*labelSanitizer)(nil)
