package crypto

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEncryptor(t *testing.T) *Encryptor {
	t.Helper()
	enc, err := NewEncryptor([]byte("12345678901234567890123456789012"))
	require.NoError(t, err)
	return enc
}

func TestNewEncryptor_KeySize(t *testing.T) {
	for _, n := range []int{0, 16, 31, 33, 64} {
		_, err := NewEncryptor(make([]byte, n))
		assert.ErrorIs(t, err, ErrInvalidKeySize, "key length %d", n)
	}
}

func TestNewEncryptorFromString(t *testing.T) {
	t.Run("raw 32 bytes", func(t *testing.T) {
		_, err := NewEncryptorFromString("abcdefghijklmnopqrstuvwxyz!@#$%^")
		require.NoError(t, err)
	})

	t.Run("base64", func(t *testing.T) {
		key, err := GenerateKeyString()
		require.NoError(t, err)
		_, err = NewEncryptorFromString(key)
		require.NoError(t, err)
	})

	t.Run("raw key that is also valid base64", func(t *testing.T) {
		_, err := NewEncryptorFromString("0123456789abcdef0123456789abcdef")
		require.NoError(t, err)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := NewEncryptorFromString("short")
		assert.ErrorIs(t, err, ErrInvalidKeySize)
	})
}

func TestEncryptor_SealOpen(t *testing.T) {
	enc := testEncryptor(t)

	for _, plain := range []string{
		"",
		"access_token=abc&token_type=bearer&my-app.example.com",
		strings.Repeat("x", 4096),
	} {
		sealed, err := enc.Seal(plain)
		require.NoError(t, err)
		assert.NotContains(t, sealed, "access_token")

		got, err := enc.Open(sealed)
		require.NoError(t, err)
		assert.Equal(t, plain, got)
	}
}

func TestEncryptor_SealIsRandomised(t *testing.T) {
	enc := testEncryptor(t)
	a, err := enc.Seal("same")
	require.NoError(t, err)
	b, err := enc.Seal("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestEncryptor_OpenErrors(t *testing.T) {
	enc := testEncryptor(t)

	_, err := enc.Open("not base64!!")
	assert.Error(t, err)

	_, err = enc.Open(base64.URLEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, ErrCiphertextTooShort)

	sealed, err := enc.Seal("payload")
	require.NoError(t, err)
	other, err := NewEncryptor([]byte("abcdefghijklmnopqrstuvwxyz012345"))
	require.NoError(t, err)
	_, err = other.Open(sealed)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}
