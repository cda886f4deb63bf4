// Package config loads Runecast settings from defaults, an optional YAML file
// and RUNECAST_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/amutnick/Runecast/pkg/domain"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. RUNECAST_STORE_BACKEND.
const EnvPrefix = "RUNECAST"

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// Interpreter providers.
const (
	ProviderOpenAI = "openai"
	ProviderOracle = "oracle"
)

var validate = validator.New()

// Config holds application configuration.
type Config struct {
	LogLevel string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	Catalog  string        `mapstructure:"catalog"`
	Store    StoreConfig   `mapstructure:"store"`
	LLM      LLMConfig     `mapstructure:"llm"`
	History  HistoryConfig `mapstructure:"history"`
	Server   ServerConfig  `mapstructure:"server"`

	// Path is the file the configuration was read from and is saved to.
	Path string `mapstructure:"-"`
}

// StoreConfig selects and configures the history backend.
type StoreConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=memory file sqlite badger redis"`

	// Path is the journal file, sqlite database or badger directory.
	// Empty means a backend-specific file under DataDir.
	Path    string `mapstructure:"path"`
	DataDir string `mapstructure:"data_dir" validate:"required_unless=Backend memory Backend redis"`

	RedisAddr     string `mapstructure:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" validate:"gte=0"`
	RedisPrefix   string `mapstructure:"redis_prefix"`

	// EncryptionKey enables at-rest encryption of journal text (hex or base64, 32 bytes).
	EncryptionKey string   `mapstructure:"encryption_key"`
	FallbackKeys  []string `mapstructure:"fallback_keys"`
}

// LLMConfig holds interpreter provider settings.
type LLMConfig struct {
	Provider          string        `mapstructure:"provider" validate:"oneof=openai oracle"`
	BaseURL           string        `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey            string        `mapstructure:"api_key"`
	APIKeyEnv         string        `mapstructure:"api_key_env"`
	Model             string        `mapstructure:"model"`
	AnalysisModel     string        `mapstructure:"analysis_model"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" validate:"gt=0"`
}

// HistoryConfig holds journal settings.
type HistoryConfig struct {
	// RetentionDays of zero or less keeps every reading. Negative values are
	// read as zero.
	RetentionDays int `mapstructure:"retention_days"`
	// PruneInterval is how often a running server applies retention.
	// Zero disables scheduled pruning.
	PruneInterval time.Duration `mapstructure:"prune_interval" validate:"gte=0"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	Addr    string `mapstructure:"addr" validate:"required"`
	Metrics bool   `mapstructure:"metrics"`
}

// DefaultPath is ~/.config/runecast/config.yaml.
func DefaultPath() string {
	return filepath.Join(homeDir(), ".config", "runecast", "config.yaml")
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("catalog", "")

	v.SetDefault("store.backend", BackendFile)
	v.SetDefault("store.path", "")
	v.SetDefault("store.data_dir", filepath.Join(homeDir(), ".local", "share", "runecast"))
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_password", "")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.redis_prefix", "runecast:")
	v.SetDefault("store.encryption_key", "")
	v.SetDefault("store.fallback_keys", []string{})

	v.SetDefault("llm.provider", ProviderOpenAI)
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.api_key_env", "OPENAI_API_KEY")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.analysis_model", "gpt-4o")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.requests_per_minute", 30)

	v.SetDefault("history.retention_days", domain.DefaultRetentionDays)
	v.SetDefault("history.prune_interval", time.Duration(0))

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.metrics", true)
}

// Load reads configuration. The file is path if given, else $RUNECAST_CONFIG,
// else DefaultPath. A missing default file is not an error; a missing
// explicit one is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvPrefix + "_CONFIG")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultPath()
	}
	v.SetConfigFile(path)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && (explicit || !notFound(err)) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.Path = path
	c.History.RetentionDays = max(c.History.RetentionDays, 0)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func notFound(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.Is(err, os.ErrNotExist) || errors.As(err, &nf)
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SaveRetention records the retention in the config file at c.Path (or
// DefaultPath) and updates c. Only history.retention_days is written; every
// other key in an existing file is kept as is, and values that came from
// defaults or the environment never reach the file.
func SaveRetention(c *Config, days int) error {
	days = max(days, 0)
	path := c.Path
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)
	v.SetConfigPermissions(0o600)
	if err := v.ReadInConfig(); err != nil && !notFound(err) {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	v.Set("history.retention_days", days)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	c.Path = path
	c.History.RetentionDays = days
	return nil
}

// ResolveAPIKey returns the literal key if set, else the value of APIKeyEnv.
func (l LLMConfig) ResolveAPIKey() string {
	if l.APIKey != "" {
		return l.APIKey
	}
	if l.APIKeyEnv != "" {
		return os.Getenv(l.APIKeyEnv)
	}
	return ""
}

// ResolvePath returns where a disk-backed store keeps its data.
func (s StoreConfig) ResolvePath() string {
	if s.Path != "" {
		return s.Path
	}
	switch s.Backend {
	case BackendSQLite:
		return filepath.Join(s.DataDir, "runecast.db")
	case BackendBadger:
		return filepath.Join(s.DataDir, "badger")
	default:
		return filepath.Join(s.DataDir, "runecast_readings.json")
	}
}
