package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdminKeySet(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		cfg := Config{}
		require.Empty(t, cfg.AdminKeySet())
	})

	t.Run("splits and trims", func(t *testing.T) {
		cfg := Config{AdminAPIKeys: " key-one, key-two ,,key-three"}
		keys := cfg.AdminKeySet()
		require.Len(t, keys, 3)
		require.True(t, keys["key-one"])
		require.True(t, keys["key-two"])
		require.True(t, keys["key-three"])
		require.False(t, keys[""])
	})
}

func TestContextCarry(t *testing.T) {
	cfg := DefaultConfig()
	ctx := WithContext(context.Background(), &cfg)
	require.Same(t, &cfg, FromContext(ctx))
	require.Nil(t, FromContext(context.Background()))
}

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, "mongo", cfg.DatastoreType)
	require.Equal(t, "fs", cfg.AttachType)
	require.Equal(t, "none", cfg.CacheType)
	require.Equal(t, 8080, cfg.Listener.Port)
	require.Positive(t, cfg.UploadMaxSize)
	require.Positive(t, cfg.MaxBodySize)
}
