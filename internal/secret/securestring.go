package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-logr/logr"
)

const (
	encPrefix   = "enc:"
	plainPrefix = "plain:"
)

// keyFromEnv loads the 32-byte encryption key used to seal/unseal
// SecureStringFile secrets from POSHBACKUP_SECURESTRING_KEY. Accepts hex
// (64 chars) or base64 (44 chars) encoded values. Returns nil if unset.
func keyFromEnv(log logr.Logger) []byte {
	raw := os.Getenv("POSHBACKUP_SECURESTRING_KEY")
	if raw == "" {
		return nil
	}
	if len(raw) == 64 {
		if b, err := hex.DecodeString(raw); err == nil && len(b) == 32 {
			return b
		}
	}
	if b, err := base64.StdEncoding.DecodeString(raw); err == nil && len(b) == 32 {
		return b
	}
	if b, err := base64.RawStdEncoding.DecodeString(raw); err == nil && len(b) == 32 {
		return b
	}
	log.Info("POSHBACKUP_SECURESTRING_KEY is set but could not be decoded as 32-byte hex or base64; falling back to plaintext storage")
	return nil
}

// SealSecureString encrypts plaintext for storage on disk as a
// SecureStringFile secret. Returns "enc:<base64(nonce+ciphertext)>" when a
// key is configured, else "plain:<base64(plaintext)>" with a logged
// warning — mirroring development-mode behaviour rather than refusing to
// run.
func SealSecureString(log logr.Logger, plaintext string) (string, error) {
	key := keyFromEnv(log)
	if key == nil {
		log.Info("WARNING: no POSHBACKUP_SECURESTRING_KEY configured; storing secret as base64 plaintext")
		return plainPrefix + base64.StdEncoding.EncodeToString([]byte(plaintext)), nil
	}
	return sealWithKey(plaintext, key)
}

func sealWithKey(plaintext string, key []byte) (string, error) {
	if len(key) != 32 {
		return "", fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("create GCM: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return encPrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// openSecureString reverses SealSecureString, handling both "enc:..." and
// "plain:..." formats.
func openSecureString(log logr.Logger, stored string) (string, error) {
	if strings.HasPrefix(stored, plainPrefix) {
		b, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, plainPrefix))
		if err != nil {
			return "", fmt.Errorf("decode plaintext value: %w", err)
		}
		return string(b), nil
	}
	if !strings.HasPrefix(stored, encPrefix) {
		return "", fmt.Errorf("unknown secret format (expected enc: or plain: prefix)")
	}
	key := keyFromEnv(log)
	if key == nil {
		return "", fmt.Errorf("POSHBACKUP_SECURESTRING_KEY not configured; cannot decrypt enc: values")
	}
	return openWithKey(stored, key)
}

func openWithKey(stored string, key []byte) (string, error) {
	if len(key) != 32 {
		return "", fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, encPrefix))
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("create GCM: %w", err)
	}
	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}

// LoadSecureStringFile reads and decrypts a previously serialized
// secure-string secret from disk, per spec §4.7's SecureStringFile method.
func LoadSecureStringFile(log logr.Logger, path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read secure string file %s: %w", path, err)
	}
	return openSecureString(log, strings.TrimSpace(string(raw)))
}

// WriteSecureStringFile seals plaintext and writes it to path, for tooling
// that provisions a SecureStringFile secret ahead of a backup run.
func WriteSecureStringFile(log logr.Logger, path, plaintext string) error {
	sealed, err := SealSecureString(log, plaintext)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(sealed), 0600)
}
