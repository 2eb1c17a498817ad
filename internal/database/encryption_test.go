package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "this-is-a-very-long-test-secret-key-for-encryption-testing"

func TestEncryptor_EncryptDecrypt(t *testing.T) {
	enc, err := newEncryptor(true, testSecret)
	require.NoError(t, err)

	testCases := []struct {
		name      string
		plaintext string
	}{
		{name: "cdn url", plaintext: "https://res.cloudinary.com/demo/image/upload/v1700000000/chat/photo.jpg"},
		{name: "empty string", plaintext: ""},
		{name: "unicode path", plaintext: "chat/фото 🌍.png"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ciphertext, err := enc.Encrypt(tc.plaintext)
			require.NoError(t, err)

			if tc.plaintext == "" {
				assert.Equal(t, "", ciphertext)
				return
			}
			assert.NotEqual(t, tc.plaintext, ciphertext)

			decrypted, err := enc.Decrypt(ciphertext)
			require.NoError(t, err)
			assert.Equal(t, tc.plaintext, decrypted)
		})
	}
}

func TestEncryptor_RandomNonce(t *testing.T) {
	enc, err := newEncryptor(true, testSecret)
	require.NoError(t, err)

	first, err := enc.Encrypt("chat/photo.jpg")
	require.NoError(t, err)
	second, err := enc.Encrypt("chat/photo.jpg")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestEncryptor_Disabled(t *testing.T) {
	enc, err := newEncryptor(false, "")
	require.NoError(t, err)

	out, err := enc.Encrypt("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", out)
}

func TestNewEncryptor_SecretValidation(t *testing.T) {
	_, err := newEncryptor(true, "")
	assert.Error(t, err)

	_, err = newEncryptor(true, "too-short")
	assert.ErrorContains(t, err, "at least")
}

func TestEncryptor_DecryptInvalid(t *testing.T) {
	enc, err := newEncryptor(true, testSecret)
	require.NoError(t, err)

	_, err = enc.Decrypt("not base64!")
	assert.Error(t, err)

	_, err = enc.Decrypt("c2hvcnQ=")
	assert.ErrorContains(t, err, "too short")
}

func TestEncryptor_RefHelpers(t *testing.T) {
	enc, err := newEncryptor(true, testSecret)
	require.NoError(t, err)

	ref := "chat/clip.mp4"
	encrypted, err := enc.encryptRef(&ref)
	require.NoError(t, err)
	require.NotNil(t, encrypted)

	decrypted, err := enc.decryptRef(encrypted)
	require.NoError(t, err)
	assert.Equal(t, ref, *decrypted)

	none, err := enc.encryptRef(nil)
	require.NoError(t, err)
	assert.Nil(t, none)
}
