package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "assent/pkg/domain-errors"
)

func TestIdentityHasher(t *testing.T) {
	hasher, err := NewIdentityHasher("unit-test-salt")
	require.NoError(t, err)

	t.Run("stable for same input", func(t *testing.T) {
		h1, l1, err := hasher.Hash("1234567890123")
		require.NoError(t, err)
		h2, l2, err := hasher.Hash("1234567890123")
		require.NoError(t, err)
		assert.Equal(t, h1, h2)
		assert.Equal(t, l1, l2)
		assert.Equal(t, "0123", l1)
	})

	t.Run("trims surrounding whitespace before hashing", func(t *testing.T) {
		h1, _, err := hasher.Hash("  1234567890123  ")
		require.NoError(t, err)
		h2, _, err := hasher.Hash("1234567890123")
		require.NoError(t, err)
		assert.Equal(t, h1, h2)
	})

	t.Run("different salt yields different hash", func(t *testing.T) {
		other, err := NewIdentityHasher("another-salt")
		require.NoError(t, err)
		h1, _, err := hasher.Hash("1234567890123")
		require.NoError(t, err)
		h2, _, err := other.Hash("1234567890123")
		require.NoError(t, err)
		assert.NotEqual(t, h1, h2)
	})

	t.Run("raw identity does not appear in hash", func(t *testing.T) {
		h, _, err := hasher.Hash("1234567890123")
		require.NoError(t, err)
		assert.NotContains(t, h.String(), "1234567890123")
	})

	t.Run("rejects malformed identities", func(t *testing.T) {
		for _, raw := range []string{"", "abc", "with space inside", string(rune(0x07)) + "123"} {
			_, _, err := hasher.Hash(raw)
			require.Error(t, err, "identity %q should be rejected", raw)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})

	t.Run("requires a salt", func(t *testing.T) {
		_, err := NewIdentityHasher("")
		require.Error(t, err)
	})
}

func TestAnonymizeIP(t *testing.T) {
	assert.Equal(t, "203.0.113.0/24", AnonymizeIP("203.0.113.42"))
	assert.Equal(t, "2001:db8::/32", AnonymizeIP("2001:db8:85a3::8a2e:370:7334"))
	assert.Equal(t, "invalid", AnonymizeIP("not-an-ip"))
	assert.Equal(t, "invalid", AnonymizeIP(""))
}
