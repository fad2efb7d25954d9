// Package config loads the coordinator's TOML configuration. A missing
// file is not an error; every field has a working default so the
// daemon starts with zero setup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/plainread/plainread/internal/orchestrator"
)

// Config is the coordinator configuration.
type Config struct {
	API    APIConfig    `toml:"api"`
	Proxy  ProxyConfig  `toml:"proxy"`
	Models ModelsConfig `toml:"models"`
	Cache  CacheConfig  `toml:"cache"`
	Limits LimitsConfig `toml:"limits"`
}

// APIConfig is the local HTTP server the browser UI connects to.
type APIConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"`
}

// ProxyConfig points at the backend model proxy.
type ProxyConfig struct {
	BaseURL     string `toml:"base_url"`
	ClientID    string `toml:"client_id"`
	ExtensionID string `toml:"extension_id"`
}

// ModelsConfig names the fast and the long-context model.
type ModelsConfig struct {
	Fast string `toml:"fast"`
	Long string `toml:"long"`
}

// CacheConfig controls the durable result cache.
type CacheConfig struct {
	Path     string `toml:"path"` // empty disables the sqlite layer
	TTLHours int    `toml:"ttl_hours"`
}

// LimitsConfig tunes request sizing and chunking.
type LimitsConfig struct {
	MaxSelectionChars   int  `toml:"max_selection_chars"`
	DeferThresholdChars int  `toml:"defer_threshold_chars"`
	ChunkThresholdChars int  `toml:"chunk_threshold_chars"`
	ChunkTargetChars    int  `toml:"chunk_target_chars"`
	MaxChunks           int  `toml:"max_chunks"`
	ChunkConcurrency    int  `toml:"chunk_concurrency"`
	Moderation          bool `toml:"moderation"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	oc := orchestrator.DefaultConfig()
	return Config{
		API: APIConfig{
			Host:    "127.0.0.1",
			Port:    8123,
			Metrics: true,
		},
		Proxy: ProxyConfig{
			BaseURL: "http://127.0.0.1:8787",
		},
		Models: ModelsConfig{
			Fast: oc.FastModel,
			Long: oc.LongModel,
		},
		Cache: CacheConfig{
			Path:     defaultCachePath(),
			TTLHours: 24,
		},
		Limits: LimitsConfig{
			MaxSelectionChars:   oc.MaxSelectionChars,
			DeferThresholdChars: oc.DeferThresholdChars,
			ChunkThresholdChars: oc.ChunkThresholdChars,
			ChunkTargetChars:    oc.ChunkTargetChars,
			MaxChunks:           oc.MaxChunks,
			ChunkConcurrency:    oc.ChunkConcurrency,
			Moderation:          true,
		},
	}
}

// Load reads the config file at path over the defaults. A missing file
// returns the defaults; a malformed file is an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories as needed.
func Save(cfg Config, path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: create %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return nil
}

// DefaultPath is ~/.plainread/config.toml, overridable with
// PLAINREAD_HOME.
func DefaultPath() string {
	return filepath.Join(homeDir(), "config.toml")
}

// defaultCachePath is ~/.plainread/cache.db.
func defaultCachePath() string {
	return filepath.Join(homeDir(), "cache.db")
}

func homeDir() string {
	if h := os.Getenv("PLAINREAD_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".plainread"
	}
	return filepath.Join(home, ".plainread")
}

// ListenAddr is the coordinator bind address.
func (c Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// CacheTTL returns the cache lifetime as a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// Orchestrator maps the file config onto the orchestrator's tuning
// struct. Unset values fall back to the orchestrator defaults.
func (c Config) Orchestrator() orchestrator.Config {
	oc := orchestrator.DefaultConfig()
	oc.FastModel = c.Models.Fast
	oc.LongModel = c.Models.Long
	oc.MaxSelectionChars = c.Limits.MaxSelectionChars
	oc.DeferThresholdChars = c.Limits.DeferThresholdChars
	oc.ChunkThresholdChars = c.Limits.ChunkThresholdChars
	oc.ChunkTargetChars = c.Limits.ChunkTargetChars
	oc.MaxChunks = c.Limits.MaxChunks
	oc.ChunkConcurrency = c.Limits.ChunkConcurrency
	oc.ModerationEnabled = c.Limits.Moderation
	return oc
}
