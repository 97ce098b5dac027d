package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// sealedPrefix marks an encrypted file body.
const sealedPrefix = "sealed:v1:"

// Encryptor seals credential files with AES-256-GCM. A nil or disabled
// Encryptor passes data through unchanged.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor returns an Encryptor for a 32 byte key. An empty key disables
// encryption.
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) == 0 {
		return &Encryptor{}, nil
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be exactly 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &Encryptor{aead: aead}, nil
}

// KeyFromBase64 decodes a base64 key as found in configuration. An empty
// string yields a nil key.
func KeyFromBase64(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

// Enabled reports whether data is sealed.
func (e *Encryptor) Enabled() bool {
	return e != nil && e.aead != nil
}

// Seal encrypts plaintext to "sealed:v1:" + base64(nonce || ciphertext).
func (e *Encryptor) Seal(plaintext []byte) ([]byte, error) {
	if !e.Enabled() {
		return plaintext, nil
	}
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	sealed := e.aead.Seal(nonce, nonce, plaintext, nil)
	out := make([]byte, 0, len(sealedPrefix)+base64.StdEncoding.EncodedLen(len(sealed)))
	out = append(out, sealedPrefix...)
	return base64.StdEncoding.AppendEncode(out, sealed), nil
}

// Open reverses Seal. Unsealed input is returned as is, so enabling
// encryption does not strand existing plaintext files; they are sealed on the
// next save.
func (e *Encryptor) Open(data []byte) ([]byte, error) {
	if len(data) < len(sealedPrefix) || string(data[:len(sealedPrefix)]) != sealedPrefix {
		return data, nil
	}
	if !e.Enabled() {
		return nil, errors.New("credential file is encrypted but no encryption key is configured")
	}
	raw, err := base64.StdEncoding.DecodeString(string(data[len(sealedPrefix):]))
	if err != nil {
		return nil, fmt.Errorf("decode sealed credential: %w", err)
	}
	n := e.aead.NonceSize()
	if len(raw) < n {
		return nil, errors.New("sealed credential too short")
	}
	plain, err := e.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt credential: %w", err)
	}
	return plain, nil
}
