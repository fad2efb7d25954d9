package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8123 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8123)
	}
	if cfg.Proxy.BaseURL != "http://127.0.0.1:8787" {
		t.Errorf("Proxy.BaseURL = %q", cfg.Proxy.BaseURL)
	}
	if cfg.Models.Fast != "gpt-4o-mini" || cfg.Models.Long != "gpt-4o" {
		t.Errorf("Models = %+v", cfg.Models)
	}
	if cfg.Limits.MaxSelectionChars != 5000 {
		t.Errorf("MaxSelectionChars = %d, want 5000", cfg.Limits.MaxSelectionChars)
	}
	if cfg.Cache.TTLHours != 24 {
		t.Errorf("Cache.TTLHours = %d, want 24", cfg.Cache.TTLHours)
	}
	if !cfg.Limits.Moderation {
		t.Error("Limits.Moderation should be true by default")
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Port != DefaultConfig().API.Port {
		t.Errorf("missing file should yield defaults, got port %d", cfg.API.Port)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[api]
port = 9999

[models]
fast = "gpt-4o-mini"
long = "gpt-4-turbo"

[limits]
max_selection_chars = 2000
moderation = false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Port != 9999 {
		t.Errorf("API.Port = %d, want 9999", cfg.API.Port)
	}
	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("unset fields must keep defaults, Host = %q", cfg.API.Host)
	}
	if cfg.Models.Long != "gpt-4-turbo" {
		t.Errorf("Models.Long = %q", cfg.Models.Long)
	}
	if cfg.Limits.MaxSelectionChars != 2000 {
		t.Errorf("MaxSelectionChars = %d, want 2000", cfg.Limits.MaxSelectionChars)
	}
	if cfg.Limits.Moderation {
		t.Error("moderation should be disabled by the file")
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[api\nport ="), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("malformed TOML should be an error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	cfg := DefaultConfig()
	cfg.API.Port = 4242
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.API.Port != 4242 {
		t.Errorf("round-trip port = %d, want 4242", loaded.API.Port)
	}
}

func TestOrchestratorMapping(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Limits.MaxSelectionChars = 1234
	cfg.Limits.Moderation = false
	oc := cfg.Orchestrator()
	if oc.MaxSelectionChars != 1234 {
		t.Errorf("MaxSelectionChars = %d, want 1234", oc.MaxSelectionChars)
	}
	if oc.ModerationEnabled {
		t.Error("ModerationEnabled should map from Limits.Moderation")
	}
	if oc.MaxCallAttempts != 3 {
		t.Errorf("untouched tuning must keep defaults, MaxCallAttempts = %d", oc.MaxCallAttempts)
	}
}
