package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// mockKeychain is an in-memory test double for Keychain.
type mockKeychain struct {
	items map[string]string
	err   error
}

func newMockKeychain() *mockKeychain {
	return &mockKeychain{items: make(map[string]string)}
}

func (m *mockKeychain) Get(service, account string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.items[service+"/"+account]
	if !ok {
		return "", errors.New("item not found")
	}
	return v, nil
}

func (m *mockKeychain) Set(service, account, value string) error {
	if m.err != nil {
		return m.err
	}
	m.items[service+"/"+account] = value
	return nil
}

// mockBackend is a map-backed ConfigBackend.
type mockBackend struct {
	data map[string]any
}

func newMockBackend(data map[string]any) *mockBackend {
	if data == nil {
		data = make(map[string]any)
	}
	return &mockBackend{data: data}
}

func (m *mockBackend) GetString(key string) (string, bool, error) {
	v, ok := m.data[key]
	if !ok {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", true, errors.New("not a string")
	}
	return s, true, nil
}

func (m *mockBackend) GetInt(key string) (int, bool, error) {
	v, ok := m.data[key]
	if !ok {
		return 0, false, nil
	}
	i, ok := v.(int)
	if !ok {
		return 0, true, errors.New("not an int")
	}
	return i, true, nil
}

func (m *mockBackend) SetString(key, val string) error  { m.data[key] = val; return nil }
func (m *mockBackend) SetInt(key string, val int) error { m.data[key] = val; return nil }
func (m *mockBackend) SetBool(key string, val bool) error {
	m.data[key] = map[bool]string{true: "true", false: "false"}[val]
	return nil
}
func (m *mockBackend) Delete(key string) error { delete(m.data, key); return nil }

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

// TestDefaults verifies all default values are applied when the backend is empty.
func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(newMockBackend(nil), newMockKeychain())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Backend.BaseURL != "http://localhost:8000" {
		t.Errorf("Backend.BaseURL = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.TimeoutDuration() != 60*time.Second {
		t.Errorf("Backend.Timeout = %v", cfg.Backend.TimeoutDuration())
	}
	if cfg.Server.Port != 4100 {
		t.Errorf("Server.Port = %d, want 4100", cfg.Server.Port)
	}
	if cfg.Storage.Backend != "json" {
		t.Errorf("Storage.Backend = %q, want json", cfg.Storage.Backend)
	}
	if cfg.Storage.DataDir == "" {
		t.Error("Storage.DataDir is empty")
	}
	if !cfg.Notify.Enabled {
		t.Error("Notify.Enabled = false, want true")
	}
	if cfg.Notify.TelegramEnabled() {
		t.Error("telegram enabled without credentials")
	}
	if cfg.Generate.Tone != "professional" || cfg.Generate.ImageStyle != "photo" || cfg.Generate.Variations != 1 {
		t.Errorf("Generate = %+v", cfg.Generate)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if cfg.Backend.APIKey != "" {
		t.Errorf("Backend.APIKey = %q, want empty", cfg.Backend.APIKey)
	}
}

func TestBackendValues(t *testing.T) {
	clearEnv(t)
	b := newMockBackend(map[string]any{
		"backend.base_url":    "http://gen.local:9000",
		"server.port":         5000,
		"notify.enabled":      "false",
		"generate.tone":       "fun",
		"storage.backend":     "sqlite",
		"generate.variations": 3,
	})

	cfg, err := loadWith(b, newMockKeychain())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend.BaseURL != "http://gen.local:9000" || cfg.Server.Port != 5000 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Notify.Enabled {
		t.Error("Notify.Enabled should be false")
	}
	if cfg.Generate.Tone != "fun" || cfg.Generate.Variations != 3 || cfg.Storage.Backend != "sqlite" {
		t.Errorf("cfg = %+v", cfg)
	}
}

// TestEnvOverride verifies that environment variables override backend values.
func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("POSTDECK_SERVER_PORT", "7000")
	t.Setenv("POSTDECK_BACKEND_API_KEY", "env-key")
	t.Setenv("POSTDECK_NOTIFY_ENABLED", "0")

	b := newMockBackend(map[string]any{"server.port": 5000})
	cfg, err := loadWith(b, newMockKeychain())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000", cfg.Server.Port)
	}
	if cfg.Backend.APIKey != "env-key" {
		t.Errorf("Backend.APIKey = %q", cfg.Backend.APIKey)
	}
	if cfg.Notify.Enabled {
		t.Error("Notify.Enabled should be false from env")
	}
}

func TestEnvOverride_BadIntKeepsValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("POSTDECK_SERVER_PORT", "not-a-port")

	cfg, err := loadWith(newMockBackend(nil), newMockKeychain())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 4100 {
		t.Errorf("Server.Port = %d, want default", cfg.Server.Port)
	}
}

func TestKeychainFallback(t *testing.T) {
	clearEnv(t)
	kc := newMockKeychain()
	kc.items["postdeck/backend_api_key"] = "kc-key"
	kc.items["postdeck/telegram_token"] = "123:abc"

	b := newMockBackend(map[string]any{"notify.telegram_chat_id": "42"})
	cfg, err := loadWith(b, kc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend.APIKey != "kc-key" {
		t.Errorf("Backend.APIKey = %q", cfg.Backend.APIKey)
	}
	if !cfg.Notify.TelegramEnabled() {
		t.Error("telegram should be enabled")
	}

	t.Setenv("POSTDECK_BACKEND_API_KEY", "env-wins")
	cfg, _ = loadWith(b, kc)
	if cfg.Backend.APIKey != "env-wins" {
		t.Errorf("env should win over keychain, got %q", cfg.Backend.APIKey)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	clearEnv(t)
	b := newMockBackend(map[string]any{
		"generate.tone":       "sarcastic",
		"generate.variations": 9,
		"storage.backend":     "redis",
	})

	_, err := loadWith(b, newMockKeychain())
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"generate.tone", "generate.variations", "storage.backend"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestSetKey(t *testing.T) {
	b := newMockBackend(nil)
	kc := newMockKeychain()

	if err := setKeyWith(b, kc, "server.port", "8080"); err != nil {
		t.Fatalf("set server.port: %v", err)
	}
	if b.data["server.port"] != 8080 {
		t.Errorf("server.port = %v", b.data["server.port"])
	}

	if err := setKeyWith(b, kc, "notify.enabled", "false"); err != nil {
		t.Fatalf("set notify.enabled: %v", err)
	}
	if b.data["notify.enabled"] != "false" {
		t.Errorf("notify.enabled = %v", b.data["notify.enabled"])
	}

	if err := setKeyWith(b, kc, "backend.api_key", "secret"); err != nil {
		t.Fatalf("set secret: %v", err)
	}
	if _, ok := b.data["backend.api_key"]; ok {
		t.Error("secret written to the plain backend")
	}
	if kc.items["postdeck/backend_api_key"] != "secret" {
		t.Error("secret not written to keychain")
	}

	if err := setKeyWith(b, kc, "server.port", "abc"); err == nil {
		t.Error("expected error for non-integer port")
	}
	if err := setKeyWith(b, kc, "generate.tone", "angry"); err == nil {
		t.Error("expected error for invalid tone")
	}
	if err := setKeyWith(b, kc, "nope", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestShowAllHidesSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Backend.APIKey = "hidden"
	for _, ki := range ShowAll(cfg) {
		if ki.Key == "backend.api_key" || ki.Key == "notify.telegram_token" {
			t.Errorf("secret %s listed", ki.Key)
		}
		if ki.Value == "hidden" {
			t.Error("secret value listed")
		}
	}
	if len(ValidKeys()) != len(specs) {
		t.Errorf("ValidKeys = %d, want %d", len(ValidKeys()), len(specs))
	}
}

func TestGetAPIToken(t *testing.T) {
	kc := newMockKeychain()

	first, err := GetAPIToken(kc)
	if err != nil || first == "" {
		t.Fatalf("GetAPIToken = %q, %v", first, err)
	}
	second, err := GetAPIToken(kc)
	if err != nil || second != first {
		t.Errorf("second token = %q, want %q", second, first)
	}

	broken := newMockKeychain()
	broken.err = errors.New("locked")
	if _, err := GetAPIToken(broken); err == nil {
		t.Error("expected error when keychain write fails")
	}
}

func TestServerOrigins(t *testing.T) {
	s := ServerConfig{AllowedOrigins: " http://a.test , ,http://b.test"}
	got := s.Origins()
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Errorf("Origins = %v", got)
	}
}
