// Package cryptoutil encrypts Upstream access tokens at rest with
// AES-256-GCM. It deliberately uses only the standard library: the corpus
// has no third-party AEAD wrapper, and cryptographic primitives are safer
// left to the audited stdlib implementation than to a hand-picked wrapper.
package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
)

const ivLen = 16

var ErrMalformedCiphertext = errors.New("cryptoutil: malformed ciphertext")

// Cipher encrypts/decrypts with a single derived 256-bit key.
type Cipher struct {
	key [32]byte
}

// NewFromEnv derives the key from DATA_ENCRYPTION_KEY if set, else from a
// machine-identity fallback, per spec.md §3.
func NewFromEnv() (*Cipher, error) {
	raw := os.Getenv("DATA_ENCRYPTION_KEY")
	if strings.TrimSpace(raw) == "" {
		id, err := machineIdentity()
		if err != nil {
			return nil, fmt.Errorf("cryptoutil: no DATA_ENCRYPTION_KEY and machine identity unavailable: %w", err)
		}
		raw = id
	}
	return New(raw), nil
}

// New derives a 256-bit key from an arbitrary passphrase via SHA-256.
func New(passphrase string) *Cipher {
	return &Cipher{key: sha256.Sum256([]byte(passphrase))}
}

func machineIdentity() (string, error) {
	if b, err := os.ReadFile("/etc/machine-id"); err == nil {
		if s := strings.TrimSpace(string(b)); s != "" {
			return s, nil
		}
	}
	if h, err := os.Hostname(); err == nil && h != "" {
		return h, nil
	}
	return "", errors.New("no machine identity source available")
}

// Encrypt returns hex-joined "iv:tag:ciphertext" per spec.md §6's persisted
// state layout. AES-GCM appends the tag to the ciphertext, so Encrypt splits
// it out to match that documented wire shape and Decrypt joins them again.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivLen)
	if err != nil {
		return "", err
	}
	iv := make([]byte, ivLen)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	tagLen := gcm.Overhead()
	ciphertext := sealed[:len(sealed)-tagLen]
	tag := sealed[len(sealed)-tagLen:]
	return strings.Join([]string{hex.EncodeToString(iv), hex.EncodeToString(tag), hex.EncodeToString(ciphertext)}, ":"), nil
}

// Decrypt reverses Encrypt.
func (c *Cipher) Decrypt(encoded string) (string, error) {
	parts := strings.Split(encoded, ":")
	if len(parts) != 3 {
		return "", ErrMalformedCiphertext
	}
	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: iv: %v", ErrMalformedCiphertext, err)
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: tag: %v", ErrMalformedCiphertext, err)
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext: %v", ErrMalformedCiphertext, err)
	}
	if len(iv) != ivLen {
		return "", ErrMalformedCiphertext
	}

	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivLen)
	if err != nil {
		return "", err
	}
	sealed := append(ciphertext, tag...) //nolint:gocritic // local buffer, ciphertext not reused
	plain, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("cryptoutil: decrypt failed: %w", err)
	}
	return string(plain), nil
}
