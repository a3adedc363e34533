// Package provider は外部プラットフォーム連携の定義とOAuthクライアントを提供する。
//
// 連携先ごとの差異（エンドポイント、スコープ、複数アカウント可否、
// 解除方式）はすべてDescriptorに宣言し、ハンドラー側の分岐を排除する。
package provider

// DisconnectMode は連携解除時のレコードの扱いを表す。
type DisconnectMode string

const (
	// DisconnectDelete はレコードを物理削除する。
	// 複数アカウント型の連携先（カレンダー等）で使用する。
	DisconnectDelete DisconnectMode = "delete"
	// DisconnectDisable はstatusをdisconnectedへ更新しレコードを残す。
	// ダッシュボード履歴のためメタデータを保持したい連携先で使用する。
	DisconnectDisable DisconnectMode = "disable"
)

// Descriptor は1つの連携先の宣言的な定義。
type Descriptor struct {
	// Slug はルーティングと設定で使う連携先識別子（例: "google-calendar"）。
	Slug string
	// Provider はプラットフォーム名（例: "google"）。integrationsのprovider列に入る。
	Provider string
	// Category は同一プラットフォーム内の連携種別（例: "calendar" / "stats"）。
	Category string

	// OAuthエンドポイント。テストではhttptestのURLに差し替える。
	AuthURL     string
	TokenURL    string
	UserInfoURL string

	// Scopes は認可リクエストに載せる固定スコープ。
	Scopes []string

	// MultiAccount は同時に複数アカウントを接続できるか。
	// trueの連携先はdisconnect時にaccountIdが必須となる。
	MultiAccount bool

	// DisconnectModeは解除時の挙動。連携先ごとの方針として明示する。
	DisconnectMode DisconnectMode
}

// descriptors は対応する全連携先の定義。
var descriptors = []Descriptor{
	{
		Slug:           "google-calendar",
		Provider:       "google",
		Category:       "calendar",
		AuthURL:        "https://accounts.google.com/o/oauth2/auth",
		TokenURL:       "https://oauth2.googleapis.com/token",
		UserInfoURL:    "https://www.googleapis.com/oauth2/v3/userinfo",
		Scopes:         []string{"openid", "email", "profile", "https://www.googleapis.com/auth/calendar.readonly"},
		MultiAccount:   true,
		DisconnectMode: DisconnectDelete,
	},
	{
		Slug:           "google-business",
		Provider:       "google",
		Category:       "stats",
		AuthURL:        "https://accounts.google.com/o/oauth2/auth",
		TokenURL:       "https://oauth2.googleapis.com/token",
		UserInfoURL:    "https://www.googleapis.com/oauth2/v3/userinfo",
		Scopes:         []string{"openid", "email", "profile", "https://www.googleapis.com/auth/business.manage"},
		MultiAccount:   false,
		DisconnectMode: DisconnectDisable,
	},
	{
		Slug:           "instagram",
		Provider:       "instagram",
		Category:       "social",
		AuthURL:        "https://api.instagram.com/oauth/authorize",
		TokenURL:       "https://api.instagram.com/oauth/access_token",
		UserInfoURL:    "https://graph.instagram.com/me?fields=id,username",
		Scopes:         []string{"user_profile", "user_media"},
		MultiAccount:   false,
		DisconnectMode: DisconnectDisable,
	},
	{
		Slug:           "messenger",
		Provider:       "facebook",
		Category:       "messaging",
		AuthURL:        "https://www.facebook.com/v19.0/dialog/oauth",
		TokenURL:       "https://graph.facebook.com/v19.0/oauth/access_token",
		UserInfoURL:    "https://graph.facebook.com/v19.0/me?fields=id,name",
		Scopes:         []string{"pages_messaging", "pages_show_list"},
		MultiAccount:   false,
		DisconnectMode: DisconnectDisable,
	},
	{
		Slug:           "linkedin",
		Provider:       "linkedin",
		Category:       "social",
		AuthURL:        "https://www.linkedin.com/oauth/v2/authorization",
		TokenURL:       "https://www.linkedin.com/oauth/v2/accessToken",
		UserInfoURL:    "https://api.linkedin.com/v2/userinfo",
		Scopes:         []string{"openid", "profile", "email", "w_member_social"},
		MultiAccount:   false,
		DisconnectMode: DisconnectDisable,
	},
	{
		Slug:           "microsoft",
		Provider:       "microsoft",
		Category:       "calendar",
		AuthURL:        "https://login.microsoftonline.com/common/oauth2/v2.0/authorize",
		TokenURL:       "https://login.microsoftonline.com/common/oauth2/v2.0/token",
		UserInfoURL:    "https://graph.microsoft.com/v1.0/me",
		Scopes:         []string{"openid", "email", "profile", "offline_access", "Calendars.Read"},
		MultiAccount:   true,
		DisconnectMode: DisconnectDelete,
	},
}

// Lookup はスラッグからDescriptorを検索する。
func Lookup(slug string) (Descriptor, bool) {
	for _, d := range descriptors {
		if d.Slug == slug {
			return d, true
		}
	}
	return Descriptor{}, false
}

// All は対応する全連携先の定義を返す。
// 返り値のスライスはコピーであり、変更してもレジストリに影響しない。
func All() []Descriptor {
	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors)
	for i := range out {
		out[i].Scopes = append([]string(nil), out[i].Scopes...)
	}
	return out
}
