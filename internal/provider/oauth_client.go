package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Token はトークンエンドポイントの交換結果。
type Token struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// Account は連携先から取得した接続アカウントの情報。
type Account struct {
	// ExternalID は連携先でのアカウント識別子。
	ExternalID string
	// Label はダッシュボードに表示するアカウント名。
	Label string
	// Email は取得できた場合のメールアドレス（任意）。
	Email string
	// ProfileURL はアカウントのプロフィールページまたはアイコン（任意）。
	ProfileURL string
}

// Credentials は連携先ごとのOAuthクライアント資格情報。
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Connector は1つの連携先に対するOAuthフローの操作。
type Connector interface {
	Descriptor() Descriptor
	AuthorizationURL(state string) string
	Exchange(ctx context.Context, code string) (*Token, error)
	FetchAccount(ctx context.Context, accessToken string) (*Account, error)
}

// OAuthClient はDescriptorに基づくConnectorの実装。
// httpClientは外部から注入する。本番ではSSRFガード付きクライアントを渡す。
type OAuthClient struct {
	desc       Descriptor
	creds      Credentials
	httpClient *http.Client
}

// NewOAuthClient はOAuthClientを生成する。
func NewOAuthClient(desc Descriptor, creds Credentials, httpClient *http.Client) *OAuthClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OAuthClient{desc: desc, creds: creds, httpClient: httpClient}
}

// Descriptor はこのクライアントが扱う連携先の定義を返す。
func (c *OAuthClient) Descriptor() Descriptor {
	return c.desc
}

// AuthorizationURL は認可リクエストのリダイレクト先URLを生成する。
func (c *OAuthClient) AuthorizationURL(state string) string {
	params := url.Values{
		"client_id":     {c.creds.ClientID},
		"redirect_uri":  {c.creds.RedirectURI},
		"response_type": {"code"},
		"scope":         {strings.Join(c.desc.Scopes, " ")},
		"state":         {state},
	}
	if c.desc.Provider == "google" || c.desc.Provider == "microsoft" {
		params.Set("access_type", "offline")
	}
	sep := "?"
	if strings.Contains(c.desc.AuthURL, "?") {
		sep = "&"
	}
	return c.desc.AuthURL + sep + params.Encode()
}

// Exchange は認可コードをアクセストークンに交換する。
func (c *OAuthClient) Exchange(ctx context.Context, code string) (*Token, error) {
	data := url.Values{
		"code":          {code},
		"client_id":     {c.creds.ClientID},
		"client_secret": {c.creds.ClientSecret},
		"redirect_uri":  {c.creds.RedirectURI},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.desc.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var token Token
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if token.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}

	return &token, nil
}

// FetchAccount はアクセストークンで接続アカウントの情報を取得する。
// レスポンスの形式は連携先ごとに異なるため、Providerで分岐して共通形式へ変換する。
func (c *OAuthClient) FetchAccount(ctx context.Context, accessToken string) (*Account, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.desc.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create account request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("account request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read account response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("account fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	account, err := parseAccount(c.desc.Provider, body)
	if err != nil {
		return nil, err
	}
	if account.ExternalID == "" {
		return nil, fmt.Errorf("empty account id in response")
	}
	return account, nil
}

// oidcUserInfo はOpenID Connect userinfoエンドポイントのレスポンス。
// GoogleとLinkedIn、Microsoft以外のIDトークン系で共通。
type oidcUserInfo struct {
	Sub     string `json:"sub"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// graphUserInfo はFacebook系Graph APIのレスポンス。
type graphUserInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// msGraphUserInfo はMicrosoft Graphの/meレスポンス。
type msGraphUserInfo struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// parseAccount はプラットフォームごとのレスポンスを共通のAccountへ変換する。
func parseAccount(providerName string, body []byte) (*Account, error) {
	switch providerName {
	case "google", "linkedin":
		var info oidcUserInfo
		if err := json.Unmarshal(body, &info); err != nil {
			return nil, fmt.Errorf("failed to parse account response: %w", err)
		}
		label := info.Name
		if label == "" {
			label = info.Email
		}
		return &Account{
			ExternalID: info.Sub,
			Label:      label,
			Email:      info.Email,
			ProfileURL: info.Picture,
		}, nil
	case "facebook":
		var info graphUserInfo
		if err := json.Unmarshal(body, &info); err != nil {
			return nil, fmt.Errorf("failed to parse account response: %w", err)
		}
		return &Account{
			ExternalID: info.ID,
			Label:      info.Name,
			ProfileURL: "https://www.facebook.com/" + info.ID,
		}, nil
	case "instagram":
		var info graphUserInfo
		if err := json.Unmarshal(body, &info); err != nil {
			return nil, fmt.Errorf("failed to parse account response: %w", err)
		}
		label := info.Username
		if label == "" {
			label = info.Name
		}
		profileURL := ""
		if info.Username != "" {
			profileURL = "https://www.instagram.com/" + info.Username
		}
		return &Account{
			ExternalID: info.ID,
			Label:      label,
			ProfileURL: profileURL,
		}, nil
	case "microsoft":
		var info msGraphUserInfo
		if err := json.Unmarshal(body, &info); err != nil {
			return nil, fmt.Errorf("failed to parse account response: %w", err)
		}
		label := info.DisplayName
		if label == "" {
			label = info.UserPrincipalName
		}
		email := info.Mail
		if email == "" {
			email = info.UserPrincipalName
		}
		return &Account{
			ExternalID: info.ID,
			Label:      label,
			Email:      email,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", providerName)
	}
}

// compile-time interface check
var _ Connector = (*OAuthClient)(nil)
