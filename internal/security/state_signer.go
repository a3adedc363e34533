package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// stateMaxAge はOAuth stateの有効期間。
// 認可画面での滞留を考慮しつつ、リプレイの窓を狭く保つ。
const stateMaxAge = 10 * time.Minute

// StatePayload はOAuth state値に埋め込むペイロード。
// ReturnToは連携完了後に戻るアプリ内パス、Nonceはcookieと突き合わせる
// 使い捨て乱数、Tsは発行時刻（Unix秒）。
type StatePayload struct {
	ReturnTo string `json:"return_to"`
	Nonce    string `json:"nonce"`
	Ts       int64  `json:"ts"`
}

// StateSigner はHMAC-SHA256で署名したOAuth state値の発行・検証を提供する。
// state値は base64url(JSON payload) + "." + base64url(signature) の形式。
// 署名により改ざんを防ぎ、nonceのcookie照合によりセッションに束縛する。
type StateSigner struct {
	secret []byte
	now    func() time.Time // テスト用に差し替え可能
}

// NewStateSigner はStateSignerを生成する。
func NewStateSigner(secret string) *StateSigner {
	return &StateSigner{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Issue は署名済みstate値と対応するnonceを発行する。
// nonceは呼び出し元がHttpOnly cookieに保存し、コールバック時に照合する。
func (s *StateSigner) Issue(returnTo string) (state string, nonce string, err error) {
	nonce, err = generateNonce()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	payload := StatePayload{
		ReturnTo: returnTo,
		Nonce:    nonce,
		Ts:       s.now().Unix(),
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal state payload: %w", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(raw)
	sig := s.sign(encoded)

	return encoded + "." + sig, nonce, nil
}

// Verify はstate値の署名・nonce・有効期間を検証し、ペイロードを返す。
// expectedNonceはcookieから読み出した値を渡す。
// いずれかの検証に失敗した場合はエラーを返す。
func (s *StateSigner) Verify(state, expectedNonce string) (*StatePayload, error) {
	encoded, sig, ok := strings.Cut(state, ".")
	if !ok {
		return nil, fmt.Errorf("malformed state value")
	}

	// 署名検証（定数時間比較）
	expected := s.sign(encoded)
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return nil, fmt.Errorf("state signature mismatch")
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode state payload: %w", err)
	}

	var payload StatePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state payload: %w", err)
	}

	// nonce照合: cookieに保存した値と一致すること（使い捨て・セッション束縛）
	if payload.Nonce == "" || payload.Nonce != expectedNonce {
		return nil, fmt.Errorf("state nonce mismatch")
	}

	// 有効期間検証
	issuedAt := time.Unix(payload.Ts, 0)
	if s.now().Sub(issuedAt) > stateMaxAge {
		return nil, fmt.Errorf("state expired")
	}

	return &payload, nil
}

// sign はエンコード済みペイロードのHMAC-SHA256署名をbase64urlで返す。
func (s *StateSigner) sign(encoded string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// generateNonce は暗号的に安全な乱数nonceを生成する。
func generateNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
