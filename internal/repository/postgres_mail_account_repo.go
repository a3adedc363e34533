package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Inrcyteam/inrcy-app-sub002/internal/model"
)

// PostgresMailAccountRepo はPostgreSQLを使用したメールアカウントリポジトリ。
type PostgresMailAccountRepo struct {
	db *sql.DB
}

// NewPostgresMailAccountRepo はPostgresMailAccountRepoを生成する。
func NewPostgresMailAccountRepo(db *sql.DB) *PostgresMailAccountRepo {
	return &PostgresMailAccountRepo{db: db}
}

// Create はメールアカウントを作成する。
func (r *PostgresMailAccountRepo) Create(ctx context.Context, account *model.MailAccount) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO mail_accounts
		 (id, user_id, kind, address, host, port, username, password_enc, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		account.ID, account.UserID, account.Kind, account.Address,
		account.Host, account.Port, account.Username, account.PasswordEnc,
		account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("メールアカウントの作成に失敗しました: %w", err)
	}
	return nil
}

// ListByUserID はユーザーのメールアカウント一覧を作成順で返す。
func (r *PostgresMailAccountRepo) ListByUserID(ctx context.Context, userID string) ([]*model.MailAccount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, kind, address, host, port, username, password_enc, created_at, updated_at
		 FROM mail_accounts
		 WHERE user_id = $1
		 ORDER BY created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("メールアカウント一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var accounts []*model.MailAccount
	for rows.Next() {
		account := &model.MailAccount{}
		if err := rows.Scan(
			&account.ID, &account.UserID, &account.Kind, &account.Address,
			&account.Host, &account.Port, &account.Username, &account.PasswordEnc,
			&account.CreatedAt, &account.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("メールアカウント行の読み取りに失敗しました: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("メールアカウント一覧の走査に失敗しました: %w", err)
	}
	return accounts, nil
}

// DeleteByUserAndID はユーザーIDとアカウントIDで削除し、削除行数を返す。
// ユーザーIDによる絞り込みを常に含める: 他ユーザーのIDを指定されても0件削除となる。
func (r *PostgresMailAccountRepo) DeleteByUserAndID(ctx context.Context, userID, id string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM mail_accounts WHERE user_id = $1 AND id = $2`,
		userID, id,
	)
	if err != nil {
		return 0, fmt.Errorf("メールアカウントの削除に失敗しました: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	return rowsAffected, nil
}

// DeleteByUserID はユーザーの全メールアカウントを削除する。
func (r *PostgresMailAccountRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM mail_accounts WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("ユーザーの全メールアカウントの削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ MailAccountRepository = (*PostgresMailAccountRepo)(nil)
