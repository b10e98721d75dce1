package vault

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateNonce(t *testing.T) {
	nonce1, err := GenerateNonce()
	require.NoError(t, err)
	assert.Len(t, nonce1, NonceSize)

	nonce2, err := GenerateNonce()
	require.NoError(t, err)
	assert.False(t, bytes.Equal(nonce1, nonce2), "Generated nonces should be different")
}

func TestDeriveKey(t *testing.T) {
	key1, err := DeriveKey("test-passphrase-123")
	require.NoError(t, err)
	assert.Len(t, key1, KeySize)

	key2, err := DeriveKey("test-passphrase-123")
	require.NoError(t, err)
	assert.Equal(t, key1, key2, "Same passphrase should produce same key")

	key3, err := DeriveKey("different-passphrase")
	require.NoError(t, err)
	assert.NotEqual(t, key1, key3, "Different passphrase should produce different key")
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	original := sampleVault()

	env, err := Encrypt(original, "hunter2")
	require.NoError(t, err)

	nonce, err := base64.StdEncoding.DecodeString(env.IV)
	require.NoError(t, err)
	assert.Len(t, nonce, NonceSize)

	opened, err := Decrypt(env, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, original.Settings, opened.Settings)
	assert.Equal(t, original.Entries, opened.Entries)
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	v := sampleVault()

	first, err := Encrypt(v, "hunter2")
	require.NoError(t, err)
	second, err := Encrypt(v, "hunter2")
	require.NoError(t, err)

	assert.NotEqual(t, first.IV, second.IV)
	assert.NotEqual(t, first.Store, second.Store)
}

func TestDecryptWrongPassword(t *testing.T) {
	env, err := Encrypt(sampleVault(), "hunter2")
	require.NoError(t, err)

	opened, err := Decrypt(env, "hunter3")
	assert.ErrorIs(t, err, ErrWrongPassword)
	assert.Nil(t, opened)
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	env, err := Encrypt(sampleVault(), "hunter2")
	require.NoError(t, err)

	store, err := base64.StdEncoding.DecodeString(env.Store)
	require.NoError(t, err)
	store[0] ^= 0xff
	env.Store = base64.StdEncoding.EncodeToString(store)

	_, err = Decrypt(env, "hunter2")
	assert.ErrorIs(t, err, ErrWrongPassword)
}

func TestDecryptRejectsBeforeDerivingKey(t *testing.T) {
	validIV := base64.StdEncoding.EncodeToString(make([]byte, NonceSize))
	validStore := base64.StdEncoding.EncodeToString(make([]byte, 48))

	tests := []struct {
		name string
		env  Envelope
		want error
	}{
		{name: "iv not base64", env: Envelope{IV: "not base64!", Store: validStore}, want: ErrInvalidEncoding},
		{name: "store not base64", env: Envelope{IV: validIV, Store: "%%%"}, want: ErrInvalidEncoding},
		{name: "iv wrong size", env: Envelope{IV: base64.StdEncoding.EncodeToString(make([]byte, 8)), Store: validStore}, want: ErrInvalidEncoding},
		{name: "store shorter than tag", env: Envelope{IV: validIV, Store: base64.StdEncoding.EncodeToString(make([]byte, TagSize-1))}, want: ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decrypt(&tt.env, "hunter2")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecryptUnreadablePlaintext(t *testing.T) {
	key, err := DeriveKey("hunter2")
	require.NoError(t, err)
	gcm, err := newGCM(key)
	require.NoError(t, err)
	nonce, err := GenerateNonce()
	require.NoError(t, err)

	env := &Envelope{
		IV:    base64.StdEncoding.EncodeToString(nonce),
		Store: base64.StdEncoding.EncodeToString(gcm.Seal(nil, nonce, []byte(`{"settings":{}}`), nil)),
	}

	_, err = Decrypt(env, "hunter2")
	assert.ErrorIs(t, err, ErrInternal)
	assert.NotErrorIs(t, err, ErrWrongPassword)
}
