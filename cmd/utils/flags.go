package utils

import (
	"os"
	"path/filepath"
)

var (
	BitrentHome   string
	BitrentConfig string
)

func GetBitrentHome() string {
	if BitrentHome != "" {
		return BitrentHome
	}

	home := os.Getenv("BITRENTHOME")

	if home != "" {
		return home
	}

	return os.ExpandEnv(filepath.Join("$HOME", ".bitrent"))
}

func GetBitrentConfigPath() string {
	if BitrentConfig != "" {
		return BitrentConfig
	}

	return GetBitrentHome() + "/config/config.toml"
}
