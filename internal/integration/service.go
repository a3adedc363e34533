// Package integration は外部プラットフォーム連携のライフサイクル
// （接続開始、コールバック、解除、状態取得）を提供する。
package integration

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Inrcyteam/inrcy-app-sub002/internal/model"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/provider"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/repository"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/security"
)

// StatusEntry は1連携先の接続状態。
// AccountConnectedは外部アカウントIDまで取得済みかを示す。
type StatusEntry struct {
	Connected        bool   `json:"connected"`
	AccountConnected bool   `json:"account_connected"`
	DisplayName      string `json:"display_name,omitempty"`
	ProfileURL       string `json:"profile_url,omitempty"`
	AccountID        string `json:"account_id,omitempty"`
}

// CalendarAccount は接続済みカレンダーアカウント1件の表示用情報。
type CalendarAccount struct {
	AccountID   string    `json:"account_id"`
	Label       string    `json:"label"`
	Slug        string    `json:"slug"`
	ConnectedAt time.Time `json:"connected_at"`
}

// StartResult はOAuth開始の結果。
// Nonceはコールバックまでの間ブラウザのCookieに保持する。
type StartResult struct {
	RedirectURL string
	Nonce       string
}

// SettingsSyncer はユーザーの非正規化settingsへ連携フラグを書き込むインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type SettingsSyncer interface {
	SetIntegrationFlag(ctx context.Context, userID, slug string, connected bool) error
}

// Service は連携ライフサイクルに関するビジネスロジックを提供する。
type Service struct {
	connectors map[string]provider.Connector // 資格情報が設定済みの連携先のみ
	repo       repository.IntegrationRepository
	signer     *security.StateSigner
	cipher     *security.TokenCipher
	sanitizer  security.LabelSanitizerService
	guard      security.URLGuardService
	settings   SettingsSyncer // nil可。ベストエフォートで同期する
}

// NewService はServiceを生成する。
// connectorsには資格情報が設定済みの連携先のみを渡す。
// 未設定の連携先はレジストリ上は既知のままエラーで閉じる。
// settingsはnil可で、接続/解除時の非正規化フラグ同期に使用する。
func NewService(
	connectors map[string]provider.Connector,
	repo repository.IntegrationRepository,
	signer *security.StateSigner,
	cipher *security.TokenCipher,
	sanitizer security.LabelSanitizerService,
	guard security.URLGuardService,
	settings SettingsSyncer,
) *Service {
	return &Service{
		connectors: connectors,
		repo:       repo,
		signer:     signer,
		cipher:     cipher,
		sanitizer:  sanitizer,
		guard:      guard,
		settings:   settings,
	}
}

// syncIntegrationFlag は非正規化settingsへ接続フラグを同期する。
// ベストエフォートであり、失敗はログに残して握りつぶす。
func (s *Service) syncIntegrationFlag(ctx context.Context, userID, slug string, connected bool) {
	if s.settings == nil {
		return
	}
	if err := s.settings.SetIntegrationFlag(ctx, userID, slug, connected); err != nil {
		slog.Warn("failed to sync integration flag to user settings",
			slog.String("user_id", userID),
			slog.String("slug", slug),
			slog.String("error", err.Error()),
		)
	}
}

// StartOAuth は連携先への認可リダイレクトURLを生成する。
// 未知のスラッグはUNKNOWN_PROVIDER、資格情報が未設定の連携先は
// PROVIDER_NOT_CONFIGUREDを返し、いかなる場合もリダイレクトはしない。
func (s *Service) StartOAuth(ctx context.Context, slug, returnTo string) (*StartResult, error) {
	if _, ok := provider.Lookup(slug); !ok {
		return nil, model.NewUnknownProviderError(slug)
	}

	conn, ok := s.connectors[slug]
	if !ok {
		slog.Error("oauth start rejected: provider not configured", slog.String("slug", slug))
		return nil, model.NewProviderNotConfiguredError(slug)
	}

	state, nonce, err := s.signer.Issue(sanitizeReturnTo(returnTo))
	if err != nil {
		return nil, fmt.Errorf("failed to issue oauth state: %w", err)
	}

	return &StartResult{
		RedirectURL: conn.AuthorizationURL(state),
		Nonce:       nonce,
	}, nil
}

// HandleCallback はOAuthコールバックを処理し、連携レコードを保存する。
// 戻り値はリダイレクト先のパス。state検証に失敗した場合はINVALID_STATEを返す。
// stateが正当でトークン交換以降に失敗した場合はリダイレクト先と共にエラーを返し、
// ハンドラー側でエラーパラメータ付きリダイレクトに変換する。
func (s *Service) HandleCallback(ctx context.Context, userID, slug, code, state, nonce string) (string, error) {
	if _, ok := provider.Lookup(slug); !ok {
		return "", model.NewUnknownProviderError(slug)
	}

	conn, ok := s.connectors[slug]
	if !ok {
		return "", model.NewProviderNotConfiguredError(slug)
	}

	payload, err := s.signer.Verify(state, nonce)
	if err != nil {
		slog.Warn("oauth state verification failed",
			slog.String("slug", slug),
			slog.String("error", err.Error()),
		)
		return "", model.NewInvalidStateError()
	}

	returnTo := sanitizeReturnTo(payload.ReturnTo)

	token, err := conn.Exchange(ctx, code)
	if err != nil {
		return returnTo, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	account, err := conn.FetchAccount(ctx, token.AccessToken)
	if err != nil {
		return returnTo, fmt.Errorf("failed to fetch account info: %w", err)
	}

	desc := conn.Descriptor()

	label := s.sanitizer.Sanitize(account.Label)
	if label == "" {
		label = desc.Slug
	}

	// 連携先APIが返したURLは保存前に検証し、危険なURLは破棄する
	profileURL := account.ProfileURL
	if profileURL != "" {
		if err := s.guard.ValidateExternalURL(profileURL); err != nil {
			slog.Warn("dropping unsafe profile url",
				slog.String("slug", slug),
				slog.String("error", err.Error()),
			)
			profileURL = ""
		}
	}

	tokenEnc, err := s.cipher.Encrypt(token.AccessToken)
	if err != nil {
		return returnTo, fmt.Errorf("failed to encrypt access token: %w", err)
	}

	var expiresAt *time.Time
	if token.ExpiresIn > 0 {
		t := time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
		expiresAt = &t
	}

	metadata := map[string]string{}
	if account.Email != "" {
		metadata["email"] = account.Email
	}

	now := time.Now()
	record := &model.Integration{
		ID:             uuid.New().String(),
		UserID:         userID,
		Provider:       desc.Provider,
		Category:       desc.Category,
		Status:         model.IntegrationConnected,
		Label:          label,
		ExternalID:     account.ExternalID,
		ProfileURL:     profileURL,
		Metadata:       metadata,
		AccessTokenEnc: tokenEnc,
		TokenExpiresAt: expiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return returnTo, fmt.Errorf("failed to save integration: %w", err)
	}

	s.syncIntegrationFlag(ctx, userID, slug, true)

	slog.Info("integration connected",
		slog.String("user_id", userID),
		slog.String("slug", slug),
		slog.String("external_id", account.ExternalID),
	)

	return returnTo, nil
}

// Disconnect は連携を解除する。
// 解除方式は連携先ごとの定義に従い、物理削除またはstatus更新を行う。
// 対象ゼロ件も成功として扱う（冪等）。資格情報の設定有無には依存しない。
func (s *Service) Disconnect(ctx context.Context, userID, slug, accountID string) error {
	desc, ok := provider.Lookup(slug)
	if !ok {
		return model.NewUnknownProviderError(slug)
	}

	if desc.MultiAccount && accountID == "" {
		return model.NewMissingAccountIDError()
	}

	filter := repository.IntegrationFilter{
		UserID:    userID,
		Provider:  desc.Provider,
		Category:  desc.Category,
		AccountID: accountID,
	}

	var (
		rows int64
		err  error
	)
	switch desc.DisconnectMode {
	case provider.DisconnectDelete:
		rows, err = s.repo.DeleteMatching(ctx, filter)
	default:
		rows, err = s.repo.DisableMatching(ctx, filter)
	}
	if err != nil {
		return fmt.Errorf("failed to disconnect integration: %w", err)
	}

	s.syncIntegrationFlag(ctx, userID, slug, false)

	slog.Info("integration disconnected",
		slog.String("user_id", userID),
		slog.String("slug", slug),
		slog.Int64("rows", rows),
	)
	return nil
}

// Status は全連携先の接続状態を返す。
// 対応する全スラッグがキーとして必ず含まれる。
func (s *Service) Status(ctx context.Context, userID string) (map[string]StatusEntry, error) {
	result := make(map[string]StatusEntry)

	for _, desc := range provider.All() {
		record, err := s.repo.FindLatest(ctx, userID, desc.Provider, desc.Category)
		if err != nil {
			return nil, fmt.Errorf("failed to load integration status: %w", err)
		}

		entry := StatusEntry{Connected: record.Connected()}
		if entry.Connected {
			entry.AccountConnected = record.ExternalID != ""
			entry.DisplayName = record.Label
			entry.ProfileURL = record.ProfileURL
			entry.AccountID = record.ExternalID
		}
		result[desc.Slug] = entry
	}

	return result, nil
}

// SlugStatus は1連携先の接続状態を返す。
// 未認証（userIDが空）やストア障害でもエラーにせず未接続として返す全域関数。
// エラーになるのは未知のスラッグのみ。
func (s *Service) SlugStatus(ctx context.Context, userID, slug string) (*StatusEntry, error) {
	desc, ok := provider.Lookup(slug)
	if !ok {
		return nil, model.NewUnknownProviderError(slug)
	}

	entry := &StatusEntry{}
	if userID == "" {
		return entry, nil
	}

	record, err := s.repo.FindLatest(ctx, userID, desc.Provider, desc.Category)
	if err != nil {
		slog.Warn("failed to load integration status, reporting disconnected",
			slog.String("user_id", userID),
			slog.String("slug", slug),
			slog.String("error", err.Error()),
		)
		return entry, nil
	}
	if record.Connected() {
		entry.Connected = true
		entry.AccountConnected = record.ExternalID != ""
		entry.DisplayName = record.Label
		entry.ProfileURL = record.ProfileURL
		entry.AccountID = record.ExternalID
	}

	return entry, nil
}

// ListCalendarAccounts は接続済みのカレンダーアカウント一覧を返す。
// カレンダーは複数アカウントを接続できるため、最新1件ではなく全件を返す。
func (s *Service) ListCalendarAccounts(ctx context.Context, userID string) ([]CalendarAccount, error) {
	var accounts []CalendarAccount

	for _, desc := range provider.All() {
		if desc.Category != "calendar" {
			continue
		}

		records, err := s.repo.ListByUserAndProvider(ctx, userID, desc.Provider, desc.Category)
		if err != nil {
			return nil, fmt.Errorf("failed to list calendar accounts: %w", err)
		}

		for _, record := range records {
			if !record.Connected() {
				continue
			}
			accounts = append(accounts, CalendarAccount{
				AccountID:   record.ExternalID,
				Label:       record.Label,
				Slug:        desc.Slug,
				ConnectedAt: record.CreatedAt,
			})
		}
	}

	return accounts, nil
}

// CalendarConnected はカレンダーアカウントが1件以上接続されているかを返す。
func (s *Service) CalendarConnected(ctx context.Context, userID string) (bool, error) {
	accounts, err := s.ListCalendarAccounts(ctx, userID)
	if err != nil {
		return false, err
	}
	return len(accounts) > 0, nil
}

// sanitizeReturnTo はコールバック後のリダイレクト先を安全なパスへ正規化する。
// 相対パス以外（絶対URL、スキーム相対、バックスラッシュ混入）はすべて"/"に落とす。
func sanitizeReturnTo(raw string) string {
	if raw == "" {
		return "/"
	}
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return "/"
	}
	if strings.Contains(raw, "\\") {
		return "/"
	}
	return raw
}
