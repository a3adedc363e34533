package repository

import (
	"testing"
	"time"

	"github.com/Inrcyteam/inrcy-app-sub002/internal/model"
)

// 各リポジトリが対応するインターフェースを満たすことを検証
func TestPostgresRepos_ImplementInterfaces(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
	var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
	var _ IntegrationRepository = (*PostgresIntegrationRepo)(nil)
	var _ BillingSubscriptionRepository = (*PostgresSubscriptionRepo)(nil)
	var _ MailAccountRepository = (*PostgresMailAccountRepo)(nil)
	var _ DashboardEventRepository = (*PostgresEventRepo)(nil)
}

func TestNewPostgresRepos_Initialize(t *testing.T) {
	if NewPostgresUserRepo(nil) == nil {
		t.Error("NewPostgresUserRepo returned nil")
	}
	if NewPostgresIdentityRepo(nil) == nil {
		t.Error("NewPostgresIdentityRepo returned nil")
	}
	if NewPostgresSessionRepo(nil) == nil {
		t.Error("NewPostgresSessionRepo returned nil")
	}
	if NewPostgresIntegrationRepo(nil) == nil {
		t.Error("NewPostgresIntegrationRepo returned nil")
	}
	if NewPostgresSubscriptionRepo(nil) == nil {
		t.Error("NewPostgresSubscriptionRepo returned nil")
	}
	if NewPostgresMailAccountRepo(nil) == nil {
		t.Error("NewPostgresMailAccountRepo returned nil")
	}
	if NewPostgresEventRepo(nil) == nil {
		t.Error("NewPostgresEventRepo returned nil")
	}
}

// Integrationモデルの接続判定が状態に従うことを検証
func TestIntegrationModel_Connected(t *testing.T) {
	expires := time.Now().Add(time.Hour)
	connected := &model.Integration{
		ID:             "int-1",
		UserID:         "user-1",
		Provider:       "linkedin",
		Category:       "social",
		Status:         model.IntegrationConnected,
		AccessTokenEnc: []byte("ciphertext"),
		TokenExpiresAt: &expires,
	}
	if !connected.Connected() {
		t.Error("integration with connected status should report Connected")
	}

	disconnected := &model.Integration{Status: model.IntegrationDisconnected}
	if disconnected.Connected() {
		t.Error("disconnected integration should not report Connected")
	}

	var nilIntegration *model.Integration
	if nilIntegration.Connected() {
		t.Error("nil integration should not report Connected")
	}
}

// MailAccountモデルが平文パスワードを持たないことの構造上の検証
func TestMailAccountModel_StoresEncryptedPassword(t *testing.T) {
	acc := &model.MailAccount{
		ID:          "mail-1",
		UserID:      "user-1",
		Kind:        model.MailAccountIMAP,
		Address:     "info@example.com",
		Host:        "mail.example.com",
		Port:        993,
		Username:    "info",
		PasswordEnc: []byte{0x01, 0x02},
	}

	if acc.Kind != model.MailAccountIMAP {
		t.Errorf("Kind = %q, want %q", acc.Kind, model.MailAccountIMAP)
	}
	if len(acc.PasswordEnc) == 0 {
		t.Error("PasswordEnc should hold ciphertext bytes")
	}
}

// 解除フィルタはクライアントに公開している外部アカウントIDで絞り込む。
// 内部の行IDはAPIレスポンスに出ないため、id列との照合では常にゼロ件になる。
func TestBuildIntegrationWhere_AccountIDMatchesExternalID(t *testing.T) {
	where, args := buildIntegrationWhere(IntegrationFilter{
		UserID:    "user-1",
		Provider:  "google",
		Category:  "calendar",
		AccountID: "ext-9",
	})

	if where != "user_id = $1 AND provider = $2 AND category = $3 AND external_id = $4" {
		t.Errorf("where = %q", where)
	}
	if len(args) != 4 || args[3] != "ext-9" {
		t.Errorf("args = %v", args)
	}
}

func TestBuildIntegrationWhere_NoAccountID(t *testing.T) {
	where, args := buildIntegrationWhere(IntegrationFilter{
		UserID:   "user-1",
		Provider: "facebook",
		Category: "stats",
	})

	if where != "user_id = $1 AND provider = $2 AND category = $3" {
		t.Errorf("where = %q", where)
	}
	if len(args) != 3 {
		t.Errorf("args = %v", args)
	}
}
