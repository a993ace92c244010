package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "assent/pkg/domain-errors"
)

func TestParseScope(t *testing.T) {
	t.Run("accepts valid components", func(t *testing.T) {
		scope, err := ParseScope("acme", "privacy", "customer", "TH")
		require.NoError(t, err)
		assert.Equal(t, Tenant("acme"), scope.Tenant)
		assert.Equal(t, DocKindPrivacy, scope.Kind)
		assert.Equal(t, AudienceCustomer, scope.Audience)
		assert.Equal(t, Language("th"), scope.Language, "language is normalized to lowercase")
	})

	t.Run("rejects empty tenant", func(t *testing.T) {
		_, err := ParseScope("", "privacy", "customer", "en")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		_, err := ParseScope("acme", "eula", "customer", "en")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects unknown audience", func(t *testing.T) {
		_, err := ParseScope("acme", "privacy", "vendor", "en")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects malformed language", func(t *testing.T) {
		for _, lang := range []string{"", "e", "eng", "e1", "??"} {
			_, err := ParseScope("acme", "privacy", "customer", lang)
			require.Error(t, err, "language %q should be rejected", lang)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})
}

func TestParsePolicyVersionID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParsePolicyVersionID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParsePolicyVersionID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParsePolicyVersionID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, PolicyVersionID(valid), id)
	})

	t.Run("round-trips through String", func(t *testing.T) {
		id := NewPolicyVersionID()
		back, err := ParsePolicyVersionID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, back)
	})
}
