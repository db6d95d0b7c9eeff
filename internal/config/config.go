package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kalambet/postdeck/internal/content"
	"github.com/kalambet/postdeck/internal/storage"
)

const keychainService = "postdeck"

const (
	accountBackendAPIKey = "backend_api_key"
	accountTelegramToken = "telegram_token"
	accountAPIToken      = "api_token"
)

type Config struct {
	Backend  BackendConfig
	Storage  StorageConfig
	Server   ServerConfig
	Notify   NotifyConfig
	Generate GenerateConfig
	Log      LogConfig
}

type BackendConfig struct {
	BaseURL string
	Timeout string
	APIKey  string
}

type StorageConfig struct {
	DataDir string
	Backend string
}

type ServerConfig struct {
	Port           int
	AllowedOrigins string
}

type NotifyConfig struct {
	Enabled        bool
	TelegramChatID string
	TelegramToken  string
}

type GenerateConfig struct {
	Tone       string
	ImageStyle string
	Variations int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Backend: BackendConfig{
			BaseURL: "http://localhost:8000",
			Timeout: "60s",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
			Backend: storage.KindJSON,
		},
		Server: ServerConfig{
			Port:           4100,
			AllowedOrigins: "http://localhost:3000",
		},
		Notify: NotifyConfig{
			Enabled: true,
		},
		Generate: GenerateConfig{
			Tone:       string(content.ToneProfessional),
			ImageStyle: string(content.StylePhoto),
			Variations: 1,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// TimeoutDuration parses Timeout, falling back to 60s when it is unset or
// malformed.
func (b BackendConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(b.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// Origins splits AllowedOrigins on commas.
func (s ServerConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(s.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// TelegramEnabled reports whether both telegram settings are present.
func (n NotifyConfig) TelegramEnabled() bool {
	return n.TelegramChatID != "" && n.TelegramToken != ""
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.postdeck.app) and
// secrets fall back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/postdeck/config.json
// and secrets fall back to $XDG_DATA_HOME/postdeck/secrets.json.
//
// Environment variables (POSTDECK_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), NewKeychain())
}

func loadWith(b ConfigBackend, kc Keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Backend.APIKey == "" {
		if key, err := kc.Get(keychainService, accountBackendAPIKey); err == nil && key != "" {
			cfg.Backend.APIKey = key
		}
	}
	if cfg.Notify.TelegramToken == "" {
		if tok, err := kc.Get(keychainService, accountTelegramToken); err == nil && tok != "" {
			cfg.Notify.TelegramToken = tok
		}
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	var errs []error
	if _, err := content.ParseTone(cfg.Generate.Tone); err != nil {
		errs = append(errs, fmt.Errorf("generate.tone: %w", err))
	}
	if _, err := content.ParseImageStyle(cfg.Generate.ImageStyle); err != nil {
		errs = append(errs, fmt.Errorf("generate.image_style: %w", err))
	}
	if v := cfg.Generate.Variations; v < 1 || v > content.MaxVariations {
		errs = append(errs, fmt.Errorf("generate.variations: %w: %d", content.ErrInvalidVariations, v))
	}
	switch cfg.Storage.Backend {
	case storage.KindJSON, storage.KindSQLite:
	default:
		errs = append(errs, fmt.Errorf("storage.backend: must be %q or %q, got %q", storage.KindJSON, storage.KindSQLite, cfg.Storage.Backend))
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port: out of range: %d", cfg.Server.Port))
	}
	if _, err := time.ParseDuration(cfg.Backend.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("backend.timeout: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
