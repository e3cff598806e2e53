// Package secrets encrypts site credentials at rest. Application
// passwords grant write access to a customer's site, so they never touch
// the database in plaintext.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ErrDecrypt is returned when a ciphertext fails authentication.
var ErrDecrypt = errors.New("secrets: decryption failed")

// Crypter seals and opens secrets with a single symmetric key.
type Crypter struct {
	key [32]byte
}

// NewCrypter builds a crypter from a base64-encoded 32-byte key.
func NewCrypter(encodedKey string) (*Crypter, error) {
	raw, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("secrets: decode key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("secrets: key must be 32 bytes, got %d", len(raw))
	}

	c := &Crypter{}
	copy(c.key[:], raw)
	return c, nil
}

// Seal encrypts plaintext, prepending the random nonce to the ciphertext.
func (c *Crypter) Seal(plaintext string) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("secrets: nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &c.key), nil
}

// Open decrypts a ciphertext produced by Seal.
func (c *Crypter) Open(ciphertext []byte) (string, error) {
	if len(ciphertext) < nonceSize {
		return "", ErrDecrypt
	}
	var nonce [nonceSize]byte
	copy(nonce[:], ciphertext[:nonceSize])

	plaintext, ok := secretbox.Open(nil, ciphertext[nonceSize:], &nonce, &c.key)
	if !ok {
		return "", ErrDecrypt
	}
	return string(plaintext), nil
}
