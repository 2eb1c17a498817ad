package database

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"inspiranet/internal/constants"
	"inspiranet/internal/models"

	"golang.org/x/crypto/pbkdf2"
)

// encryptor protects media references at rest. A nil gcm means encryption
// is disabled and values pass through unchanged.
type encryptor struct {
	gcm cipher.AEAD
}

func newEncryptor(enabled bool, secret string) (*encryptor, error) {
	if !enabled {
		return &encryptor{}, nil
	}

	if secret == "" {
		return nil, fmt.Errorf("%s environment variable is required when media reference encryption is enabled", constants.EncryptionSecretEnv)
	}
	if len(secret) < constants.MinEncryptionSecretLength {
		return nil, fmt.Errorf("encryption secret must be at least %d characters long", constants.MinEncryptionSecretLength)
	}

	key := pbkdf2.Key([]byte(secret), []byte(constants.EncryptionSalt), models.Iterations, models.KeySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &encryptor{gcm: gcm}, nil
}

func (e *encryptor) enabled() bool {
	return e != nil && e.gcm != nil
}

func (e *encryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" || !e.enabled() {
		return plaintext, nil
	}

	nonce := make([]byte, models.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := e.gcm.Seal(nil, nonce, []byte(plaintext), nil)
	result := append(nonce, ciphertext...)
	return base64.StdEncoding.EncodeToString(result), nil
}

func (e *encryptor) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" || !e.enabled() {
		return ciphertext, nil
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}

	if len(data) < models.NonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, sealed := data[:models.NonceSize], data[models.NonceSize:]
	plaintext, err := e.gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}

func (e *encryptor) encryptRef(ref *string) (*string, error) {
	if ref == nil {
		return nil, nil
	}
	encrypted, err := e.Encrypt(*ref)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt media reference: %w", err)
	}
	return &encrypted, nil
}

func (e *encryptor) decryptRef(ref *string) (*string, error) {
	if ref == nil {
		return nil, nil
	}
	decrypted, err := e.Decrypt(*ref)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt media reference: %w", err)
	}
	return &decrypted, nil
}
