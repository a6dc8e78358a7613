// Package security holds the field-level encryption used for sensitive
// trader identifiers (BVN/NIN) and supplier account numbers. No library in
// the reference corpus offers a ready-made envelope for this; AES-GCM via
// crypto/aes and crypto/cipher is the standard, well-reviewed primitive
// for authenticated at-rest encryption and needs no third-party wrapper.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// ErrCiphertextTooShort is returned when Decrypt receives input shorter
// than a nonce.
var ErrCiphertextTooShort = errors.New("security: ciphertext shorter than nonce")

// Box seals and opens field values with a single 256-bit key.
type Box struct {
	gcm cipher.AEAD
}

// NewBox builds a Box from a 32-byte AES-256 key.
func NewBox(key []byte) (*Box, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("security: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("security: new gcm: %w", err)
	}
	return &Box{gcm: gcm}, nil
}

// Encrypt seals plaintext, prefixing the result with a fresh random nonce.
func (b *Box) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, b.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("security: generate nonce: %w", err)
	}
	return b.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt reverses Encrypt, splitting the nonce back off the front.
func (b *Box) Decrypt(ciphertext []byte) ([]byte, error) {
	nonceSize := b.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, ErrCiphertextTooShort
	}
	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := b.gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("security: open: %w", err)
	}
	return plaintext, nil
}
