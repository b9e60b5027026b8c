package formkit

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// EncryptedStrategy encrypts file content with AES-256-GCM before handing it
// to the wrapped strategy. The stored payload is the nonce followed by the
// sealed content; Decrypt reverses it.
type EncryptedStrategy struct {
	strategy Strategy
	aead     cipher.AEAD
}

// NewEncryptedStrategy wraps s. The key must be 32 bytes.
func NewEncryptedStrategy(s Strategy, key []byte) (*EncryptedStrategy, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	return &EncryptedStrategy{strategy: s, aead: aead}, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes (got %d bytes)", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Save encrypts the file and saves the result. Size and Hash of the file
// handed to the wrapped strategy describe the encrypted payload.
func (e *EncryptedStrategy) Save(ctx context.Context, f *File, opts ...SaveOption) (string, error) {
	if f == nil {
		return "", ErrInvalidName
	}

	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", &PersistenceError{Op: "encrypt", Name: f.FullName, Err: err}
	}
	sealed := e.aead.Seal(nonce, nonce, f.content, nil)

	enc, err := f.withContent(sealed)
	if err != nil {
		return "", &PersistenceError{Op: "encrypt", Name: f.FullName, Err: err}
	}
	return e.strategy.Save(ctx, enc, opts...)
}

// SaveMany implements BulkStrategy
func (e *EncryptedStrategy) SaveMany(ctx context.Context, files []*File, opts ...SaveOption) ([]string, error) {
	return SaveMany(ctx, e, files, opts...)
}

// Decrypt opens a payload produced by an EncryptedStrategy with the same key.
func Decrypt(key, data []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(data) < aead.NonceSize()+aead.Overhead() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, sealed := data[:aead.NonceSize()], data[aead.NonceSize():]
	return aead.Open(nil, nonce, sealed, nil)
}

// Verify interface compliance at compile time
var _ BulkStrategy = (*EncryptedStrategy)(nil)
