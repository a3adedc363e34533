package security

import (
	"strings"
	"testing"
)

// TestSanitize_StripsAllTags はすべてのHTMLタグが除去されることをテストする。
func TestSanitize_StripsAllTags(t *testing.T) {
	sanitizer := NewLabelSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "scriptタグが除去される",
			input: `<script>alert("xss")</script>店舗A`,
			want:  "店舗A",
		},
		{
			name:  "imgタグとイベント属性が除去される",
			input: `<img src=x onerror=alert(1)>My Page`,
			want:  "My Page",
		},
		{
			name:  "太字タグも除去される（表示名はプレーンテキストのみ）",
			input: "<b>Inrcy</b> Cafe",
			want:  "Inrcy Cafe",
		},
		{
			name:  "プレーンテキストはそのまま通過する",
			input: "山田太郎のカレンダー",
			want:  "山田太郎のカレンダー",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestSanitize_EmptyInput は空文字列の扱いをテストする。
func TestSanitize_EmptyInput(t *testing.T) {
	sanitizer := NewLabelSanitizer()
	if got := sanitizer.Sanitize(""); got != "" {
		t.Errorf("Sanitize(\"\") = %q, want empty string", got)
	}
}

// TestSanitize_Idempotent は同一入力に対する出力の安定性をテストする。
func TestSanitize_Idempotent(t *testing.T) {
	sanitizer := NewLabelSanitizer()

	input := `<a href="javascript:alert(1)">Click</a> Account`
	first := sanitizer.Sanitize(input)
	second := sanitizer.Sanitize(first)

	if first != second {
		t.Errorf("sanitization is not idempotent: first=%q second=%q", first, second)
	}
	if strings.Contains(first, "<") {
		t.Errorf("sanitized output should not contain tags: %q", first)
	}
}
