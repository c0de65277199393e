package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backend identifiers.
const (
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	// Backend is "sqlite" (local, default) or "mongo".
	Backend string `mapstructure:"backend" yaml:"backend"`

	// SQLitePath is the database file used by the sqlite backend.
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`

	MongoURI        string `mapstructure:"mongo_uri" yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database" yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`

	// PingIntervalSec is how often connectivity is checked.
	PingIntervalSec int `mapstructure:"ping_interval_sec" yaml:"ping_interval_sec"`
}

// AuthConfig holds settings for the local identity provider.
type AuthConfig struct {
	// TokenSecret signs session tokens. Generated on first run when empty.
	TokenSecret string `mapstructure:"token_secret" yaml:"token_secret"`

	TokenTTLHours int `mapstructure:"token_ttl_hours" yaml:"token_ttl_hours"`
}

// LogConfig controls the application logger.
type LogConfig struct {
	// File is the log file path; empty logs to stderr.
	File       string `mapstructure:"file" yaml:"file"`
	Level      string `mapstructure:"level" yaml:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme       string `mapstructure:"theme" yaml:"theme"`
	DefaultView string `mapstructure:"default_view" yaml:"default_view"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Auth    AuthConfig    `mapstructure:"auth" yaml:"auth"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
}

// envPrefix namespaces environment overrides, e.g. TASKFLOW_STORE_BACKEND.
const envPrefix = "TASKFLOW"

// DefaultConfigDir returns ~/.config/taskflow.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "taskflow")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/taskflow/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Store: StoreConfig{
			Backend:         BackendSQLite,
			SQLitePath:      filepath.Join(DefaultConfigDir(), "taskflow.db"),
			MongoDatabase:   "taskflow",
			MongoCollection: "tasks",
			PingIntervalSec: 15,
		},
		Auth: AuthConfig{TokenTTLHours: 24 * 30},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Display: DisplayConfig{
			Theme:       "dark",
			DefaultView: "kanban",
		},
		Server: ServerConfig{Addr: "127.0.0.1:8080"},
	}
}

func setDefaults(v *viper.Viper) {
	d := defaultAppConfig()
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.sqlite_path", d.Store.SQLitePath)
	v.SetDefault("store.mongo_database", d.Store.MongoDatabase)
	v.SetDefault("store.mongo_collection", d.Store.MongoCollection)
	v.SetDefault("store.ping_interval_sec", d.Store.PingIntervalSec)
	v.SetDefault("auth.token_ttl_hours", d.Auth.TokenTTLHours)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("display.theme", d.Display.Theme)
	v.SetDefault("display.default_view", d.Display.DefaultView)
	v.SetDefault("server.addr", d.Server.Addr)

	// Bind the remaining keys so AutomaticEnv can override them.
	for _, key := range []string{"store.mongo_uri", "auth.token_secret", "log.file"} {
		_ = v.BindEnv(key)
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// A .env file in the working directory is loaded first so TASKFLOW_*
// variables can override file values. If the config file does not exist,
// defaults (plus environment overrides) are returned.
func LoadConfig(path string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Store.Backend != BackendSQLite && cfg.Store.Backend != BackendMongo {
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	if cfg.Store.PingIntervalSec <= 0 {
		cfg.Store.PingIntervalSec = 15
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("store", cfg.Store)
	v.Set("auth", cfg.Auth)
	v.Set("log", cfg.Log)
	v.Set("display", cfg.Display)
	v.Set("server", cfg.Server)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
