package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialEncryptor_RoundTrip(t *testing.T) {
	enc, err := NewCredentialEncryptor("test-passphrase")
	require.NoError(t, err)

	plaintext := []byte(`{"consumer_key":"ck_123","consumer_secret":"cs_456"}`)

	sealed, err := enc.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, string(plaintext), sealed)

	opened, err := enc.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestCredentialEncryptor_EmptyPassphrase(t *testing.T) {
	_, err := NewCredentialEncryptor("")
	assert.Error(t, err)
}

func TestCredentialEncryptor_WrongKey(t *testing.T) {
	enc1, err := NewCredentialEncryptor("passphrase-one")
	require.NoError(t, err)
	enc2, err := NewCredentialEncryptor("passphrase-two")
	require.NoError(t, err)

	sealed, err := enc1.Encrypt([]byte("secret"))
	require.NoError(t, err)

	_, err = enc2.Decrypt(sealed)
	assert.Error(t, err)
}

func TestCredentialEncryptor_TamperedCiphertext(t *testing.T) {
	enc, err := NewCredentialEncryptor("test-passphrase")
	require.NoError(t, err)

	_, err = enc.Decrypt("abcd")
	assert.Error(t, err)

	_, err = enc.Decrypt("not hex at all")
	assert.Error(t, err)
}
