package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTKeyFromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "configured-key")
	t.Setenv("GIN_MODE", "release")

	assert.Equal(t, []byte("configured-key"), JWTKey())
}

func TestJWTKeyDevelopmentFallback(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("GIN_MODE", "")

	assert.Equal(t, []byte("default_super_secret_key"), JWTKey())
}

func TestJWTKeyPanicsInReleaseModeWithoutSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("GIN_MODE", "release")

	require.Panics(t, func() { JWTKey() })
}
