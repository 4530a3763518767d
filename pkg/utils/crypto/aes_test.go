package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCipherRoundTrip(t *testing.T) {
	c, err := NewCipher("unit-test-passphrase")
	require.NoError(t, err)

	t.Run("Should round-trip a session string", func(t *testing.T) {
		plain := "1BVtsOKcBu1234567890abcdefghij=="
		enc, err := c.Encrypt(plain)
		require.NoError(t, err)
		assert.NotEqual(t, plain, enc)

		dec, err := c.Decrypt(enc)
		require.NoError(t, err)
		assert.Equal(t, plain, dec)
	})

	t.Run("Should produce distinct ciphertexts for the same input", func(t *testing.T) {
		a, err := c.Encrypt("same input")
		require.NoError(t, err)
		b, err := c.Encrypt("same input")
		require.NoError(t, err)
		assert.NotEqual(t, a, b, "nonce must randomize ciphertext")
	})

	t.Run("Should reject empty passphrase", func(t *testing.T) {
		_, err := NewCipher("")
		assert.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("Should reject garbage ciphertext", func(t *testing.T) {
		_, err := c.Decrypt("not-base64!!")
		assert.ErrorIs(t, err, ErrInvalidCipherText)

		_, err = c.Decrypt("c2hvcnQ=")
		assert.ErrorIs(t, err, ErrInvalidCipherText)
	})

	t.Run("Should fail decryption with a different key", func(t *testing.T) {
		other, err := NewCipher("another-passphrase")
		require.NoError(t, err)

		enc, err := c.Encrypt("secret")
		require.NoError(t, err)

		_, err = other.Decrypt(enc)
		assert.ErrorIs(t, err, ErrDecryptionFailed)
	})
}
