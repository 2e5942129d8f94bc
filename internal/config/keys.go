package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "GARDEN_SERVER_HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "GARDEN_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.admin_token", typ: kString, env: "GARDEN_ADMIN_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.AdminToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.AdminToken },
	},
	{
		key: "catalog.profile_sheet_url", typ: kString, env: "GARDEN_PROFILE_SHEET_URL",
		apply:   func(cfg *Config, v any) { cfg.Catalog.ProfileSheetURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Catalog.ProfileSheetURL },
	},
	{
		key: "catalog.refresh_interval", typ: kDuration, env: "GARDEN_REFRESH_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Catalog.RefreshInterval = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Catalog.RefreshInterval },
	},
	{
		key: "catalog.cart_ttl", typ: kDuration, env: "GARDEN_CART_TTL",
		apply:   func(cfg *Config, v any) { cfg.Catalog.CartTTL = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Catalog.CartTTL },
	},
	{
		key: "storage.data_dir", typ: kString, env: "GARDEN_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "proxy.timeout", typ: kDuration, env: "GARDEN_PROXY_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Proxy.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Proxy.Timeout },
	},
	{
		key: "proxy.max_bytes", typ: kInt, env: "GARDEN_PROXY_MAX_BYTES",
		apply:   func(cfg *Config, v any) { cfg.Proxy.MaxBytes = int64(v.(int)) },
		extract: func(cfg Config) any { return cfg.Proxy.MaxBytes },
	},
	{
		key: "log.level", typ: kString, env: "GARDEN_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kDuration:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if d, err := time.ParseDuration(v); err == nil {
					s.apply(cfg, d)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kDuration:
			if d, err := time.ParseDuration(raw); err == nil {
				s.apply(cfg, d)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
