// Package mailaccount はダッシュボードのメールアカウント管理を提供する。
package mailaccount

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Inrcyteam/inrcy-app-sub002/internal/model"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/repository"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/security"
)

// CreateInput はメールアカウント登録の入力。
type CreateInput struct {
	Kind     string `json:"kind"`
	Address  string `json:"address"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// AccountView はレスポンス用のメールアカウント表現。
// パスワードは含めない。
type AccountView struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Address   string    `json:"address"`
	Host      string    `json:"host,omitempty"`
	Port      int       `json:"port,omitempty"`
	Username  string    `json:"username,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Service はメールアカウントに関するビジネスロジックを提供する。
type Service struct {
	repo   repository.MailAccountRepository
	cipher *security.TokenCipher
}

// NewService はServiceを生成する。
func NewService(repo repository.MailAccountRepository, cipher *security.TokenCipher) *Service {
	return &Service{repo: repo, cipher: cipher}
}

// Create はメールアカウントを検証して登録する。
// パスワードは暗号化して保存し、以降のレスポンスには含めない。
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (*AccountView, error) {
	kind := model.MailAccountKind(strings.ToLower(strings.TrimSpace(input.Kind)))
	if kind != model.MailAccountIMAP && kind != model.MailAccountGmail {
		return nil, model.NewInvalidMailAccountError("kind は imap または gmail を指定してください")
	}

	address := strings.TrimSpace(input.Address)
	if address == "" || !strings.Contains(address, "@") {
		return nil, model.NewInvalidMailAccountError("address が不正です")
	}

	// IMAPは接続先情報が必須。Gmailは固定エンドポイントのため省略可。
	if kind == model.MailAccountIMAP {
		if input.Host == "" {
			return nil, model.NewInvalidMailAccountError("host は必須です")
		}
		if input.Port <= 0 || input.Port > 65535 {
			return nil, model.NewInvalidMailAccountError("port が不正です")
		}
	}

	if input.Password == "" {
		return nil, model.NewInvalidMailAccountError("password は必須です")
	}

	passwordEnc, err := s.cipher.Encrypt(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt password: %w", err)
	}

	username := input.Username
	if username == "" {
		username = address
	}

	now := time.Now()
	account := &model.MailAccount{
		ID:          uuid.New().String(),
		UserID:      userID,
		Kind:        kind,
		Address:     address,
		Host:        input.Host,
		Port:        input.Port,
		Username:    username,
		PasswordEnc: passwordEnc,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save mail account: %w", err)
	}

	slog.Info("mail account created",
		slog.String("user_id", userID),
		slog.String("kind", string(kind)),
	)

	return toView(account), nil
}

// List はユーザーのメールアカウント一覧を返す。
func (s *Service) List(ctx context.Context, userID string) ([]*AccountView, error) {
	accounts, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list mail accounts: %w", err)
	}

	views := make([]*AccountView, 0, len(accounts))
	for _, account := range accounts {
		views = append(views, toView(account))
	}
	return views, nil
}

// Delete はメールアカウントを削除する。対象ゼロ件も成功として扱う（冪等）。
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	rows, err := s.repo.DeleteByUserAndID(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete mail account: %w", err)
	}

	slog.Info("mail account deleted",
		slog.String("user_id", userID),
		slog.Int64("rows", rows),
	)
	return nil
}

func toView(account *model.MailAccount) *AccountView {
	return &AccountView{
		ID:        account.ID,
		Kind:      string(account.Kind),
		Address:   account.Address,
		Host:      account.Host,
		Port:      account.Port,
		Username:  account.Username,
		CreatedAt: account.CreatedAt,
	}
}
