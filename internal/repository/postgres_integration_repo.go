package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Inrcyteam/inrcy-app-sub002/internal/model"
)

// PostgresIntegrationRepo はPostgreSQLを使用した連携レコードリポジトリ。
type PostgresIntegrationRepo struct {
	db *sql.DB
}

// NewPostgresIntegrationRepo はPostgresIntegrationRepoを生成する。
func NewPostgresIntegrationRepo(db *sql.DB) *PostgresIntegrationRepo {
	return &PostgresIntegrationRepo{db: db}
}

// integrationColumns はSELECTで取得する列の並び。scanIntegrationと対応する。
const integrationColumns = `id, user_id, provider, category, status, label, external_id,
	profile_url, metadata, access_token_enc, token_expires_at, created_at, updated_at`

// Create は連携レコードを作成する。
// (user_id, provider, category) の重複INSERTは許容される。
// 有効レコードの判定は読み取り側のFindLatestが行う。
func (r *PostgresIntegrationRepo) Create(ctx context.Context, integration *model.Integration) error {
	metadata, err := marshalMetadata(integration.Metadata)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO integrations
		 (id, user_id, provider, category, status, label, external_id, profile_url,
		  metadata, access_token_enc, token_expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		integration.ID, integration.UserID, integration.Provider, integration.Category,
		integration.Status, integration.Label, integration.ExternalID, integration.ProfileURL,
		metadata, integration.AccessTokenEnc, integration.TokenExpiresAt,
		integration.CreatedAt, integration.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("連携レコードの作成に失敗しました: %w", err)
	}
	return nil
}

// FindLatest は条件に一致する最新の連携レコードを取得する。見つからない場合はnilを返す。
// updated_at DESC, created_at DESC の先頭1件を有効レコードとみなす。
func (r *PostgresIntegrationRepo) FindLatest(ctx context.Context, userID, provider, category string) (*model.Integration, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+integrationColumns+`
		 FROM integrations
		 WHERE user_id = $1 AND provider = $2 AND category = $3
		 ORDER BY updated_at DESC, created_at DESC
		 LIMIT 1`,
		userID, provider, category,
	)

	integration, err := scanIntegration(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("連携レコードの取得に失敗しました: %w", err)
	}

	return integration, nil
}

// ListByUserAndProvider は条件に一致する連携レコード一覧を新しい順で返す。
func (r *PostgresIntegrationRepo) ListByUserAndProvider(ctx context.Context, userID, provider, category string) ([]*model.Integration, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+integrationColumns+`
		 FROM integrations
		 WHERE user_id = $1 AND provider = $2 AND category = $3
		 ORDER BY updated_at DESC, created_at DESC`,
		userID, provider, category,
	)
	if err != nil {
		return nil, fmt.Errorf("連携レコード一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var integrations []*model.Integration
	for rows.Next() {
		integration, err := scanIntegration(rows)
		if err != nil {
			return nil, fmt.Errorf("連携レコード行の読み取りに失敗しました: %w", err)
		}
		integrations = append(integrations, integration)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("連携レコード一覧の走査に失敗しました: %w", err)
	}
	return integrations, nil
}

// DeleteMatching は条件に一致する連携レコードを削除し、削除行数を返す。
// filter.UserIDによる絞り込みは必須: テナント分離の不変条件。
func (r *PostgresIntegrationRepo) DeleteMatching(ctx context.Context, filter IntegrationFilter) (int64, error) {
	if filter.UserID == "" {
		return 0, fmt.Errorf("ユーザーIDによる絞り込みは必須です")
	}

	where, args := buildIntegrationWhere(filter)
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM integrations WHERE `+where,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("連携レコードの削除に失敗しました: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	return rowsAffected, nil
}

// DisableMatching は条件に一致する連携レコードのstatusをdisconnectedへ更新し、更新行数を返す。
// filter.UserIDによる絞り込みは必須: テナント分離の不変条件。
func (r *PostgresIntegrationRepo) DisableMatching(ctx context.Context, filter IntegrationFilter) (int64, error) {
	if filter.UserID == "" {
		return 0, fmt.Errorf("ユーザーIDによる絞り込みは必須です")
	}

	where, args := buildIntegrationWhere(filter)
	result, err := r.db.ExecContext(ctx,
		`UPDATE integrations SET status = 'disconnected', updated_at = now() WHERE `+where,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("連携レコードの無効化に失敗しました: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	return rowsAffected, nil
}

// DeleteByUserID はユーザーの全連携レコードを削除する。
func (r *PostgresIntegrationRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM integrations WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("ユーザーの全連携レコードの削除に失敗しました: %w", err)
	}
	return nil
}

// buildIntegrationWhere はIntegrationFilterからWHERE句とプレースホルダ引数を構築する。
// user_id / provider / category は常に含め、AccountID指定時のみexternal_id条件を追加する。
// クライアントに公開するアカウント識別子はexternal_idであり、内部の行IDではない。
func buildIntegrationWhere(filter IntegrationFilter) (string, []interface{}) {
	conditions := []string{"user_id = $1", "provider = $2", "category = $3"}
	args := []interface{}{filter.UserID, filter.Provider, filter.Category}

	if filter.AccountID != "" {
		conditions = append(conditions, fmt.Sprintf("external_id = $%d", len(args)+1))
		args = append(args, filter.AccountID)
	}

	return strings.Join(conditions, " AND "), args
}

// rowScanner は*sql.Rowと*sql.Rowsの共通部分。
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanIntegration は1行分の連携レコードを読み取る。
func scanIntegration(row rowScanner) (*model.Integration, error) {
	integration := &model.Integration{}
	var metadata []byte

	err := row.Scan(
		&integration.ID, &integration.UserID, &integration.Provider, &integration.Category,
		&integration.Status, &integration.Label, &integration.ExternalID, &integration.ProfileURL,
		&metadata, &integration.AccessTokenEnc, &integration.TokenExpiresAt,
		&integration.CreatedAt, &integration.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &integration.Metadata); err != nil {
			return nil, fmt.Errorf("メタデータのパースに失敗しました: %w", err)
		}
	}

	return integration, nil
}

// marshalMetadata はメタデータをJSONBに保存できる形式へ変換する。
func marshalMetadata(metadata map[string]string) ([]byte, error) {
	if metadata == nil {
		return []byte("{}"), nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("メタデータのエンコードに失敗しました: %w", err)
	}
	return raw, nil
}

// compile-time interface check
var _ IntegrationRepository = (*PostgresIntegrationRepo)(nil)
