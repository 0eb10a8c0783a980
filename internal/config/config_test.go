package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wondertwin-ai/rigcart/internal/catalog"
	"github.com/wondertwin-ai/rigcart/internal/persist"
)

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rigcart.yaml")
	content := `
catalog: /srv/catalog.ndjson
state:
  backend: memory
  timeout: 500ms
slots:
  memory: 2
  storage: 6
build:
  default_name: Workstation
log:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Catalog != "/srv/catalog.ndjson" {
		t.Errorf("unexpected catalog path: %q", cfg.Catalog)
	}
	if cfg.State.Backend != "memory" {
		t.Errorf("expected memory backend, got %q", cfg.State.Backend)
	}
	if cfg.State.Timeout != 500*time.Millisecond {
		t.Errorf("expected 500ms timeout, got %s", cfg.State.Timeout)
	}
	if cfg.Build.DefaultName != "Workstation" {
		t.Errorf("expected default name Workstation, got %q", cfg.Build.DefaultName)
	}
	if max, _ := cfg.Policy().Max(catalog.Memory); max != 2 {
		t.Errorf("expected 2 memory slots, got %d", max)
	}
	if max, _ := cfg.Policy().Max(catalog.Storage); max != 6 {
		t.Errorf("expected 6 storage slots, got %d", max)
	}
	// Unset sections keep their defaults.
	if cfg.State.PostgresTable != persist.DefaultTable {
		t.Errorf("expected default table, got %q", cfg.State.PostgresTable)
	}
}

func TestLoadFromJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rigcart.json")
	content := `{
  "state": {"backend": "redis", "redis_url": "redis://cache:6379/1"},
  "log": {"format": "json"}
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	opts := cfg.PersistOptions()
	if opts.Kind != persist.KindRedis || opts.RedisURL != "redis://cache:6379/1" {
		t.Errorf("unexpected persist options: %+v", opts)
	}
	if opts.RedisPrefix != persist.DefaultRedisPrefix {
		t.Errorf("expected default prefix, got %q", opts.RedisPrefix)
	}
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	def := Default()
	if cfg.State.Backend != def.State.Backend || cfg.Catalog != def.Catalog {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rigcart.yaml")
	if err := os.WriteFile(path, []byte("state: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rigcart.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RIGCART_LOG_LEVEL", "debug")
	t.Setenv("RIGCART_MEMORY_SLOTS", "8")
	t.Setenv("RIGCART_STATE_TIMEOUT", "3s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected env level debug, got %q", cfg.Log.Level)
	}
	if cfg.Slots.Memory != 8 {
		t.Errorf("expected 8 memory slots, got %d", cfg.Slots.Memory)
	}
	if cfg.State.Timeout != 3*time.Second {
		t.Errorf("expected 3s timeout, got %s", cfg.State.Timeout)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("RIGCART_DEFAULT_BUILD_NAME=From Dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// t.Setenv restores the original value on cleanup.
	t.Setenv("RIGCART_DEFAULT_BUILD_NAME", "")
	os.Unsetenv("RIGCART_DEFAULT_BUILD_NAME")

	if err := LoadDotEnv(envPath, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv() error: %v", err)
	}
	cfg, err := Load(filepath.Join(dir, "rigcart.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Build.DefaultName != "From Dotenv" {
		t.Errorf("expected name from .env, got %q", cfg.Build.DefaultName)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown backend":  func(c *Config) { c.State.Backend = "mongo" },
		"redis no url":     func(c *Config) { c.State.Backend = "redis" },
		"postgres no dsn":  func(c *Config) { c.State.Backend = "postgres" },
		"zero timeout":     func(c *Config) { c.State.Timeout = 0 },
		"zero memory":      func(c *Config) { c.Slots.Memory = 0 },
		"negative storage": func(c *Config) { c.Slots.Storage = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "rigcart.yaml")
	cfg := Default()
	cfg.Catalog = "catalog.json"
	cfg.State.Timeout = 750 * time.Millisecond

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error on saved file: %v", err)
	}
	if loaded.Catalog != "catalog.json" || loaded.State.Timeout != 750*time.Millisecond {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	if got := Path(""); got != DefaultConfigFile {
		t.Errorf("expected %s, got %s", DefaultConfigFile, got)
	}
	t.Setenv(EnvConfigPath, "/etc/rigcart.yaml")
	if got := Path(""); got != "/etc/rigcart.yaml" {
		t.Errorf("expected env path, got %s", got)
	}
	if got := Path("x.yaml"); got != "x.yaml" {
		t.Errorf("expected explicit path, got %s", got)
	}
}
