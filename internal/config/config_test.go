package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsCacheDir(t *testing.T) {
	os.Unsetenv("CARGO_SAVE_CACHE_DIR")
	os.Unsetenv("CARGO_SAVE_DISABLE_INCREMENTAL")
	os.Unsetenv("CARGO_SAVE_DEBUG")

	c, err := Load()
	require.NoError(t, err)
	require.NotEmpty(t, c.CacheDir)
	require.True(t, c.Incremental())
	require.False(t, c.DebugEnabled())
}

func TestLoadRespectsOverrides(t *testing.T) {
	t.Setenv("CARGO_SAVE_CACHE_DIR", "/tmp/custom-cache")
	t.Setenv("CARGO_SAVE_DISABLE_INCREMENTAL", "1")
	t.Setenv("CARGO_SAVE_DEBUG", "1")

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom-cache", c.CacheDir)
	require.False(t, c.Incremental())
	require.True(t, c.DebugEnabled())
}
