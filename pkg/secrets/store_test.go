package secrets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	for _, p := range []string{"", "env", "memory", "vault"} {
		s, err := NewStore(Config{Provider: p, Vault: VaultConfig{Address: "http://127.0.0.1:8200"}})
		require.NoError(t, err, p)
		assert.NotNil(t, s, p)
	}
	s, err := NewStore(Config{Provider: "k8s"})
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	vs := NewMemoryStore(map[string]string{"openai": "sk-vault"})
	t.Setenv("SECRETS_TEST_KEY", "sk-env")

	got, err := Resolve(ctx, "sk-plain", nil)
	require.NoError(t, err)
	assert.Equal(t, "sk-plain", got)

	got, err = Resolve(ctx, "vault:openai", vs)
	require.NoError(t, err)
	assert.Equal(t, "sk-vault", got)

	got, err = Resolve(ctx, "env:SECRETS_TEST_KEY", nil)
	require.NoError(t, err)
	assert.Equal(t, "sk-env", got)

	_, err = Resolve(ctx, "vault:openai", nil)
	assert.Error(t, err)
	_, err = Resolve(ctx, "vault:missing", vs)
	assert.Error(t, err)
}

func TestExtractValue(t *testing.T) {
	v, err := extractValue(map[string]interface{}{"value": "a"}, "k")
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	v, err = extractValue(map[string]interface{}{"data": map[string]interface{}{"value": "b"}}, "k")
	require.NoError(t, err)
	assert.Equal(t, "b", v)

	_, err = extractValue(map[string]interface{}{"n": 1}, "k")
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore(nil)
	_, err := m.Get(context.Background(), "k")
	assert.Error(t, err)
	m.Set("k", "v")
	got, err := m.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}
