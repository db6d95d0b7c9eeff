package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
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
		key: "backend.base_url", typ: kString, env: "POSTDECK_BACKEND_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Backend.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Backend.BaseURL },
	},
	{
		key: "backend.timeout", typ: kString, env: "POSTDECK_BACKEND_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Backend.Timeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Backend.Timeout },
	},
	{
		key: "backend.api_key", typ: kString, env: "POSTDECK_BACKEND_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Backend.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Backend.APIKey },
	},
	{
		key: "storage.data_dir", typ: kString, env: "POSTDECK_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.backend", typ: kString, env: "POSTDECK_STORAGE_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Storage.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.Backend },
	},
	{
		key: "server.port", typ: kInt, env: "POSTDECK_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.allowed_origins", typ: kString, env: "POSTDECK_SERVER_ALLOWED_ORIGINS",
		apply:   func(cfg *Config, v any) { cfg.Server.AllowedOrigins = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.AllowedOrigins },
	},
	{
		key: "notify.enabled", typ: kBool, env: "POSTDECK_NOTIFY_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.Notify.Enabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.Notify.Enabled },
	},
	{
		key: "notify.telegram_chat_id", typ: kString, env: "POSTDECK_NOTIFY_TELEGRAM_CHAT_ID",
		apply:   func(cfg *Config, v any) { cfg.Notify.TelegramChatID = v.(string) },
		extract: func(cfg Config) any { return cfg.Notify.TelegramChatID },
	},
	{
		key: "notify.telegram_token", typ: kString, env: "POSTDECK_NOTIFY_TELEGRAM_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Notify.TelegramToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Notify.TelegramToken },
	},
	{
		key: "generate.tone", typ: kString, env: "POSTDECK_GENERATE_TONE",
		apply:   func(cfg *Config, v any) { cfg.Generate.Tone = v.(string) },
		extract: func(cfg Config) any { return cfg.Generate.Tone },
	},
	{
		key: "generate.image_style", typ: kString, env: "POSTDECK_GENERATE_IMAGE_STYLE",
		apply:   func(cfg *Config, v any) { cfg.Generate.ImageStyle = v.(string) },
		extract: func(cfg Config) any { return cfg.Generate.ImageStyle },
	},
	{
		key: "generate.variations", typ: kInt, env: "POSTDECK_GENERATE_VARIATIONS",
		apply:   func(cfg *Config, v any) { cfg.Generate.Variations = v.(int) },
		extract: func(cfg Config) any { return cfg.Generate.Variations },
	},
	{
		key: "log.level", typ: kString, env: "POSTDECK_LOG_LEVEL",
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
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
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
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
