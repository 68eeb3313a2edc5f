package encrypt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const key = "0123456789abcdef0123456789abcdef"

func TestEncryptDecrypt(t *testing.T) {
	enc, err := AESEncrypt(key, "hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", enc)

	dec, err := AESDecrypt(key, enc)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", dec)

	// nonce makes every encryption distinct
	enc2, err := AESEncrypt(key, "hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, enc, enc2)
}

func TestDecryptRejectsTampering(t *testing.T) {
	_, err := AESDecrypt(key, "bm90LXJlYWwtY2lwaGVydGV4dA==")
	assert.Error(t, err)

	_, err = AESDecrypt(key, "!!!")
	assert.Error(t, err)
}
