// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Inrcyteam/inrcy-app-sub002/internal/model"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/repository"
)

// Deleter はユーザー所有データの一括削除インターフェース。
type Deleter interface {
	DeleteByUserID(ctx context.Context, userID string) error
}

// Service はユーザー管理のサービス層。
// 退会処理のビジネスロジックを提供する。
type Service struct {
	userRepo           repository.UserRepository
	sessionRepo        repository.SessionRepository
	integrationDeleter Deleter
	mailDeleter        Deleter
	eventDeleter       Deleter
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	integrationDeleter Deleter,
	mailDeleter Deleter,
	eventDeleter Deleter,
) *Service {
	return &Service{
		userRepo:           userRepo,
		sessionRepo:        sessionRepo,
		integrationDeleter: integrationDeleter,
		mailDeleter:        mailDeleter,
		eventDeleter:       eventDeleter,
	}
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: integrations → mail_accounts → dashboard_events → sessions → user
// （+ CASCADE: identities, billing_subscriptions）
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
	)

	if s.integrationDeleter != nil {
		if err := s.integrationDeleter.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("連携レコードの削除に失敗しました: %w", err)
		}
	}

	if s.mailDeleter != nil {
		if err := s.mailDeleter.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("メールアカウントの削除に失敗しました: %w", err)
		}
	}

	if s.eventDeleter != nil {
		if err := s.eventDeleter.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("イベントの削除に失敗しました: %w", err)
		}
	}

	if s.sessionRepo != nil {
		if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("セッションの削除に失敗しました: %w", err)
		}
	}

	// identities, billing_subscriptionsはCASCADE削除
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}
