package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// TokenCipher はアクセストークン・パスワードの暗号化/復号を提供する。
// AES-256-GCMを使用し、暗号文の先頭にnonceを連結して保存する。
type TokenCipher struct {
	aead cipher.AEAD
}

// NewTokenCipher はTokenCipherを生成する。
// keyは32バイト（AES-256）であること。
func NewTokenCipher(key []byte) (*TokenCipher, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d bytes", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &TokenCipher{aead: aead}, nil
}

// Encrypt は平文を暗号化し、nonce || ciphertext 形式のバイト列を返す。
// 同一平文でも呼び出しごとに異なる暗号文になる（ランダムnonce）。
func (c *TokenCipher) Encrypt(plaintext string) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealed, nil
}

// Decrypt は nonce || ciphertext 形式のバイト列を復号する。
// 改ざんされた暗号文や鍵違いの場合はエラーを返す。
func (c *TokenCipher) Decrypt(data []byte) (string, error) {
	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short: %d bytes", len(data))
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}
