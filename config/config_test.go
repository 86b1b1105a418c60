package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()

	assert.Equal(t, "goleveldb", cfg.DBBackend)
	assert.Equal(t, LogFormatPlain, cfg.LogFormat)
	assert.Equal(t, "tcp://0.0.0.0:8841", cfg.APIListenAddress)
	assert.EqualValues(t, 120, cfg.KeepLastStates)
}

func TestSetRootRootifiesPaths(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig().SetRoot("/tmp/bitrent")

	assert.Equal(t, "/tmp/bitrent/config/genesis.json", cfg.GenesisFile())
	assert.Equal(t, "/tmp/bitrent/data", cfg.DBDir())

	cfg.DBPath = "/var/lib/bitrent"
	assert.Equal(t, "/var/lib/bitrent", cfg.DBDir())
}

func TestEnsureRootWritesDefaultConfig(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	EnsureRoot(root)

	configPath := filepath.Join(root, "config", "config.toml")
	require.FileExists(t, configPath)

	v := viper.New()
	v.SetConfigFile(configPath)
	require.NoError(t, v.ReadInConfig())

	cfg := DefaultConfig()
	require.NoError(t, v.Unmarshal(cfg))

	assert.Equal(t, DefaultConfig().Moniker, cfg.Moniker)
	assert.Equal(t, DefaultConfig().StateCacheSize, cfg.StateCacheSize)

	// a second call leaves an existing file alone
	require.NoError(t, os.WriteFile(configPath, []byte(`moniker = "custom"`), 0644))
	EnsureRoot(root)

	v = viper.New()
	v.SetConfigFile(configPath)
	require.NoError(t, v.ReadInConfig())
	assert.Equal(t, "custom", v.GetString("moniker"))
}
