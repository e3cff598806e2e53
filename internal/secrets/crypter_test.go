package secrets_test

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/pressmill/pressmill/internal/secrets"
)

func testKey() string {
	return base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))
}

// Test: sealed credentials decrypt back to the original and never store
// the plaintext.
func TestSealOpen(t *testing.T) {
	c, err := secrets.NewCrypter(testKey())
	if err != nil {
		t.Fatalf("new crypter: %v", err)
	}

	sealed, err := c.Seal("abcd EFGH 1234 ijkl")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(sealed, []byte("abcd EFGH")) {
		t.Error("ciphertext contains plaintext")
	}

	plain, err := c.Open(sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if plain != "abcd EFGH 1234 ijkl" {
		t.Errorf("roundtrip mismatch: %q", plain)
	}
}

// Test: two seals of the same value differ (random nonce) but both open.
func TestSeal_NonceVariation(t *testing.T) {
	c, _ := secrets.NewCrypter(testKey())

	a, _ := c.Seal("password")
	b, _ := c.Seal("password")
	if bytes.Equal(a, b) {
		t.Error("expected distinct ciphertexts")
	}
}

// Test: tampered ciphertext and wrong keys fail closed.
func TestOpen_Tampered(t *testing.T) {
	c, _ := secrets.NewCrypter(testKey())
	sealed, _ := c.Seal("password")
	sealed[len(sealed)-1] ^= 0xff

	_, err := c.Open(sealed)
	if !errors.Is(err, secrets.ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt, got %v", err)
	}
}

func TestOpen_WrongKey(t *testing.T) {
	c1, _ := secrets.NewCrypter(testKey())
	otherKey := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{9}, 32))
	c2, _ := secrets.NewCrypter(otherKey)

	sealed, _ := c1.Seal("password")
	if _, err := c2.Open(sealed); !errors.Is(err, secrets.ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt, got %v", err)
	}
}

// Test: keys must be exactly 32 base64-encoded bytes.
func TestNewCrypter_BadKey(t *testing.T) {
	if _, err := secrets.NewCrypter("not-base64!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
	short := base64.StdEncoding.EncodeToString([]byte("short"))
	if _, err := secrets.NewCrypter(short); err == nil {
		t.Error("expected error for short key")
	}
}
