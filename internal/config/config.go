// Package config loads the rigcart configuration file (rigcart.yaml by
// default) and layers environment overrides on top of it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/wondertwin-ai/rigcart/internal/build"
	"github.com/wondertwin-ai/rigcart/internal/catalog"
	"github.com/wondertwin-ai/rigcart/internal/persist"
)

// DefaultConfigFile is looked up in the working directory when no path is
// given.
const DefaultConfigFile = "rigcart.yaml"

// DefaultStateDir is the directory under the user's home for file state.
const DefaultStateDir = ".rigcart"

// EnvConfigPath names the variable that overrides the config file path.
const EnvConfigPath = "RIGCART_CONFIG"

// Config represents the contents of rigcart.yaml.
type Config struct {
	Catalog string      `yaml:"catalog" env:"RIGCART_CATALOG"`
	State   StateConfig `yaml:"state"`
	Slots   SlotsConfig `yaml:"slots"`
	Build   BuildConfig `yaml:"build"`
	Log     LogConfig   `yaml:"log"`
}

// StateConfig selects where container state is persisted.
type StateConfig struct {
	Backend       string        `yaml:"backend" env:"RIGCART_STATE_BACKEND"`
	Dir           string        `yaml:"dir" env:"RIGCART_STATE_DIR"`
	RedisURL      string        `yaml:"redis_url,omitempty" env:"RIGCART_REDIS_URL"`
	RedisPrefix   string        `yaml:"redis_prefix,omitempty" env:"RIGCART_REDIS_PREFIX"`
	PostgresDSN   string        `yaml:"postgres_dsn,omitempty" env:"RIGCART_POSTGRES_DSN"`
	PostgresTable string        `yaml:"postgres_table,omitempty" env:"RIGCART_POSTGRES_TABLE"`
	Timeout       time.Duration `yaml:"timeout" env:"RIGCART_STATE_TIMEOUT"`
}

// SlotsConfig overrides multi-slot maxima.
type SlotsConfig struct {
	Memory  int `yaml:"memory" env:"RIGCART_MEMORY_SLOTS"`
	Storage int `yaml:"storage" env:"RIGCART_STORAGE_SLOTS"`
}

// BuildConfig holds configurator defaults.
type BuildConfig struct {
	DefaultName string `yaml:"default_name" env:"RIGCART_DEFAULT_BUILD_NAME"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"RIGCART_LOG_LEVEL"`
	Format string `yaml:"format" env:"RIGCART_LOG_FORMAT"`
}

// Path resolves the config file path: the explicit argument, then
// $RIGCART_CONFIG, then rigcart.yaml in the working directory.
func Path(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultConfigFile
}

// LoadDotEnv reads KEY=value files into the environment without replacing
// variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the config file at path, falling back to defaults when it does
// not exist, then applies RIGCART_* environment overrides and validates the
// result. JSON files are accepted (selected by a .json extension).
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			format := "yaml"
			if strings.EqualFold(filepath.Ext(path), ".json") {
				format = "json"
			}
			return nil, fmt.Errorf("parsing %s config %s: %w", format, path, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as YAML, creating parent directories.
func Save(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config dir: %w", err)
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks field ranges and enumerations.
func (c *Config) Validate() error {
	kind, err := persist.ParseKind(c.State.Backend)
	if err != nil {
		return err
	}
	switch kind {
	case persist.KindRedis:
		if c.State.RedisURL == "" {
			return fmt.Errorf("state backend redis needs redis_url")
		}
	case persist.KindPostgres:
		if c.State.PostgresDSN == "" {
			return fmt.Errorf("state backend postgres needs postgres_dsn")
		}
	}
	if c.State.Timeout <= 0 {
		return fmt.Errorf("state timeout must be positive, got %s", c.State.Timeout)
	}
	if c.Slots.Memory < 1 || c.Slots.Storage < 1 {
		return fmt.Errorf("slot maxima must be at least 1 (memory=%d, storage=%d)", c.Slots.Memory, c.Slots.Storage)
	}
	return nil
}

// Policy returns the slot policy described by the config.
func (c *Config) Policy() catalog.SlotPolicy {
	return catalog.DefaultPolicy().
		WithMax(catalog.Memory, c.Slots.Memory).
		WithMax(catalog.Storage, c.Slots.Storage)
}

// PersistOptions maps the state section onto backend options.
func (c *Config) PersistOptions() persist.Options {
	kind, _ := persist.ParseKind(c.State.Backend)
	return persist.Options{
		Kind:          kind,
		Dir:           c.State.Dir,
		RedisURL:      c.State.RedisURL,
		RedisPrefix:   c.State.RedisPrefix,
		PostgresDSN:   c.State.PostgresDSN,
		PostgresTable: c.State.PostgresTable,
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Catalog: "data/catalog.yaml",
		State: StateConfig{
			Backend:       string(persist.KindFile),
			Dir:           defaultStateDir(),
			RedisPrefix:   persist.DefaultRedisPrefix,
			PostgresTable: persist.DefaultTable,
			Timeout:       persist.DefaultTimeout,
		},
		Slots: SlotsConfig{
			Memory:  catalog.DefaultMemorySlots,
			Storage: catalog.DefaultStorageSlots,
		},
		Build: BuildConfig{DefaultName: build.DefaultName},
		Log:   LogConfig{Level: "info", Format: "console"},
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultStateDir
	}
	return filepath.Join(home, DefaultStateDir)
}
