package cryptoutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	c := New("test-passphrase")
	for _, s := range []string{"", "hello", "a very long access token with unicode café", "🎬📺"} {
		enc, err := c.Encrypt(s)
		require.NoError(t, err)
		dec, err := c.Decrypt(enc)
		require.NoError(t, err)
		require.Equal(t, s, dec)
	}
}

func TestEncryptIsRandomized(t *testing.T) {
	c := New("test-passphrase")
	a, err := c.Encrypt("token")
	require.NoError(t, err)
	b, err := c.Encrypt("token")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestDecryptMalformed(t *testing.T) {
	c := New("test-passphrase")
	_, err := c.Decrypt("not-enough-parts")
	require.ErrorIs(t, err, ErrMalformedCiphertext)
}

func TestDecryptWrongKeyFails(t *testing.T) {
	a := New("key-a")
	b := New("key-b")
	enc, err := a.Encrypt("secret")
	require.NoError(t, err)
	_, err = b.Decrypt(enc)
	require.Error(t, err)
}
