package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Inrcyteam/inrcy-app-sub002/internal/model"
)

// PostgresEventRepo はPostgreSQLを使用したダッシュボードイベントリポジトリ。
type PostgresEventRepo struct {
	db *sql.DB
}

// NewPostgresEventRepo はPostgresEventRepoを生成する。
func NewPostgresEventRepo(db *sql.DB) *PostgresEventRepo {
	return &PostgresEventRepo{db: db}
}

// Create はイベントを作成する。
func (r *PostgresEventRepo) Create(ctx context.Context, event *model.DashboardEvent) error {
	payload := event.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO dashboard_events (id, user_id, stream, event_type, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, event.UserID, event.Stream, event.EventType, payload, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("イベントの作成に失敗しました: %w", err)
	}
	return nil
}

// DeleteByUserID はユーザーの全イベントを削除する。
func (r *PostgresEventRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM dashboard_events WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("ユーザーの全イベントの削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ DashboardEventRepository = (*PostgresEventRepo)(nil)
