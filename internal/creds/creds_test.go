package creds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOwnerCredentials(t *testing.T) {
	c, err := GenerateOwnerCredentials("owner-addr")
	require.NoError(t, err)

	assert.Equal(t, "owner-addr", c.OwnerAddress)
	assert.True(t, ValidMnemonic(c.Mnemonic))
	assert.Len(t, c.APIKey, 64) // hex sha256

	// The mnemonic alone recovers the key
	assert.Equal(t, c.APIKey, DeriveAPIKey(c.Mnemonic))

	other, err := GenerateOwnerCredentials("owner-addr")
	require.NoError(t, err)
	assert.NotEqual(t, c.APIKey, other.APIKey)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	ciphertext := encrypt("the-api-key", "hunter2222")

	plaintext, err := decrypt(ciphertext, "hunter2222")
	require.NoError(t, err)
	assert.Equal(t, "the-api-key", plaintext)

	_, err = decrypt(ciphertext, "wrong-password")
	assert.Error(t, err)

	_, err = decrypt("not:valid", "hunter2222")
	assert.Error(t, err)
}

func TestValidMnemonic(t *testing.T) {
	assert.False(t, ValidMnemonic("definitely not a mnemonic"))
}
