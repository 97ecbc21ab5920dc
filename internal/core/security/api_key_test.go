package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateAPIKey(t *testing.T) {
	key, hash, err := GenerateAPIKey()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(key, "pm_live_"))
	require.Len(t, key, len("pm_live_")+64)
	require.Equal(t, HashKey(key), hash)

	key2, _, err := GenerateAPIKey()
	require.NoError(t, err)
	require.NotEqual(t, key, key2)
}

func TestHashKeyIsDeterministic(t *testing.T) {
	require.Equal(t, HashKey("pm_live_abc"), HashKey("pm_live_abc"))
	require.NotEqual(t, HashKey("pm_live_abc"), HashKey("pm_live_abd"))
}
