package oauth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// TokenEncryption seals stored tokens with AES-256-GCM.
// The stored form is base64(nonce || ciphertext || tag).
type TokenEncryption struct {
	aead cipher.AEAD
}

// NewTokenEncryption creates a TokenEncryption for a 32 byte key. An empty
// key disables encryption and values pass through unchanged.
func NewTokenEncryption(key []byte) (*TokenEncryption, error) {
	if len(key) == 0 {
		return &TokenEncryption{}, nil
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be exactly 32 bytes (256 bits), got %d bytes", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &TokenEncryption{aead: aead}, nil
}

// Enabled reports whether values are encrypted.
func (e *TokenEncryption) Enabled() bool {
	return e != nil && e.aead != nil
}

// Encrypt seals plaintext with a fresh random nonce.
func (e *TokenEncryption) Encrypt(plaintext []byte) (string, error) {
	if !e.Enabled() {
		return string(plaintext), nil
	}

	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := e.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt.
func (e *TokenEncryption) Decrypt(encoded string) ([]byte, error) {
	if !e.Enabled() {
		return []byte(encoded), nil
	}

	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	n := e.aead.NonceSize()
	if len(sealed) < n {
		return nil, errors.New("ciphertext too short")
	}

	plaintext, err := e.aead.Open(nil, sealed[:n], sealed[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}

// GenerateEncryptionKey returns a random 32 byte key, base64 encoded the way
// GITMAIL_ENCRYPTION_KEY expects it.
func GenerateEncryptionKey() (string, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("failed to generate encryption key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
