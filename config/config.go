package config

import (
	"path/filepath"

	"github.com/bitrent/bitrent-ico/cmd/utils"
)

const (
	// LogFormatPlain is a format for colored text
	LogFormatPlain = "plain"
	// LogFormatJSON is a format for json output
	LogFormatJSON = "json"

	defaultConfigDir = "config"
	defaultDataDir   = "data"

	defaultConfigFileName  = "config.toml"
	defaultGenesisJSONName = "genesis.json"
)

var (
	defaultConfigFilePath  = filepath.Join(defaultConfigDir, defaultConfigFileName)
	defaultGenesisJSONPath = filepath.Join(defaultConfigDir, defaultGenesisJSONName)
)

// Config defines the top level configuration of the node
type Config struct {
	BaseConfig `mapstructure:",squash"`
}

func DefaultConfig() *Config {
	return &Config{
		BaseConfig: DefaultBaseConfig(),
	}
}

func GetConfig() *Config {
	cfg := DefaultConfig()

	cfg.SetRoot(utils.GetBitrentHome())
	EnsureRoot(utils.GetBitrentHome())

	return cfg
}

// BaseConfig defines the base configuration of the node
type BaseConfig struct {
	// The root directory for all data
	RootDir string `mapstructure:"home"`

	// A custom human readable name for this node
	Moniker string `mapstructure:"moniker"`

	// Path to the JSON file containing the initial platform state
	Genesis string `mapstructure:"genesis_file"`

	// Database backend: goleveldb | cleveldb | memdb
	DBBackend string `mapstructure:"db_backend"`

	// Database directory
	DBPath string `mapstructure:"db_path"`

	// Output level for logging
	LogLevel string `mapstructure:"log_level"`

	// Output format: 'plain' (colored text) or 'json'
	LogFormat string `mapstructure:"log_format"`

	// Path to file for logs, "stdout" to write to standard output
	LogPath string `mapstructure:"log_path"`

	// Address to listen for API connections
	APIListenAddress string `mapstructure:"api_listen_addr"`

	// Address to listen for Prometheus connections, empty to disable
	InstrumentationListenAddress string `mapstructure:"instrumentation_listen_addr"`

	// Size of the state tree cache
	StateCacheSize int `mapstructure:"state_cache_size"`

	// Number of last state versions to keep
	KeepLastStates int64 `mapstructure:"keep_last_states"`
}

// DefaultBaseConfig returns a default base configuration of the node
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		Moniker:                      "bitrent",
		Genesis:                      defaultGenesisJSONPath,
		DBBackend:                    "goleveldb",
		DBPath:                       "data",
		LogLevel:                     "info",
		LogFormat:                    LogFormatPlain,
		LogPath:                      "stdout",
		APIListenAddress:             "tcp://0.0.0.0:8841",
		InstrumentationListenAddress: "tcp://0.0.0.0:8842",
		StateCacheSize:               1000000,
		KeepLastStates:               120,
	}
}

func (cfg *Config) SetRoot(root string) *Config {
	cfg.BaseConfig.RootDir = root
	return cfg
}

// GenesisFile returns the full path to the genesis.json file
func (cfg BaseConfig) GenesisFile() string {
	return rootify(cfg.Genesis, cfg.RootDir)
}

// DBDir returns the full path to the database directory
func (cfg BaseConfig) DBDir() string {
	return rootify(cfg.DBPath, cfg.RootDir)
}

func rootify(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
