// Package config loads server settings from a platform config backend with
// environment overrides.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Catalog CatalogConfig
	Storage StorageConfig
	Proxy   ProxyConfig
	Log     LogConfig
}

type ServerConfig struct {
	Host       string
	Port       int
	AdminToken string
}

type CatalogConfig struct {
	ProfileSheetURL string
	RefreshInterval time.Duration
	CartTTL         time.Duration
}

type StorageConfig struct {
	DataDir string
}

type ProxyConfig struct {
	Timeout  time.Duration
	MaxBytes int64
}

type LogConfig struct {
	Level string
}

// defaultProfileSheetURL is the published CSV export of the community profile
// sheet. Deployments point catalog.profile_sheet_url at their own sheet.
const defaultProfileSheetURL = "https://docs.google.com/spreadsheets/d/e/2PACX-1vS7mWDvhN5qEC2XTKt3sEXWi2lPNLCRT0zNFEUGd1xjMqNkPyiXE8OIcM-duZ-6U6NGzCQrRMSJ1pD9/pub?output=csv"

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 4200,
		},
		Catalog: CatalogConfig{
			ProfileSheetURL: defaultProfileSheetURL,
			RefreshInterval: 30 * time.Minute,
			CartTTL:         2 * time.Hour,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Proxy: ProxyConfig{
			Timeout:  20 * time.Second,
			MaxBytes: 10 << 20,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration in ascending precedence: built-in defaults, the
// platform config backend, then GARDEN_* environment variables. A .env file
// in the working directory is folded into the environment first.
//
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/gardenclub/config.json.
func Load() (Config, error) {
	_ = godotenv.Load()
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Catalog.ProfileSheetURL == "" {
		return Config{}, fmt.Errorf("missing required config: catalog.profile_sheet_url. " +
			"Set it via environment variable GARDEN_PROFILE_SHEET_URL or the config file")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return Config{}, fmt.Errorf("invalid server.port %d", cfg.Server.Port)
	}
	if cfg.Server.Host == "" {
		return Config{}, fmt.Errorf("server.host must not be empty")
	}

	return cfg, nil
}
