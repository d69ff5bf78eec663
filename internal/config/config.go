// Package config loads and saves ladle's settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

const (
	appName        = "ladle"
	configFileName = "config.yaml"
	envPrefix      = "LADLE"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Paging  PagingConfig  `mapstructure:"paging"`
	Search  SearchConfig  `mapstructure:"search"`
	Logging LoggingConfig `mapstructure:"logging"`

	dir string // Directory the config was loaded from and is saved to
}

// ServerConfig holds the API credential. The base URL is not configured
// here; it is validated and stored with the cache.
type ServerConfig struct {
	Token string `mapstructure:"token"`
}

// CacheConfig holds local cache configuration
type CacheConfig struct {
	Dir string `mapstructure:"dir"`
}

// PagingConfig holds paging configuration
type PagingConfig struct {
	PageSize        int `mapstructure:"page_size"`
	InitialLoadSize int `mapstructure:"initial_load_size"` // 0 means three pages
}

// SearchConfig holds name search configuration
type SearchConfig struct {
	Mode string `mapstructure:"mode"` // "substring" or "fuzzy"
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			Dir: defaultCachePath(),
		},
		Paging: PagingConfig{
			PageSize: 30,
		},
		Search: SearchConfig{
			Mode: "substring",
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
		dir: defaultConfigPath(),
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), appName, appName+".log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", appName, appName+".log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), appName)
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", appName)
	}
}

// defaultCachePath returns the default cache directory path for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), appName, "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", appName, "cache")
	}
}

// newViper registers every key with its default so environment variables
// such as LADLE_PAGING_PAGE_SIZE are seen by Unmarshal.
func newViper(defaults *Config) *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.token", defaults.Server.Token)
	v.SetDefault("cache.dir", defaults.Cache.Dir)
	v.SetDefault("paging.page_size", defaults.Paging.PageSize)
	v.SetDefault("paging.initial_load_size", defaults.Paging.InitialLoadSize)
	v.SetDefault("search.mode", defaults.Search.Mode)
	v.SetDefault("logging.file", defaults.Logging.File)
	v.SetDefault("logging.level", defaults.Logging.Level)
	return v
}

// LoadConfig loads configuration from dir (the OS default when empty) and
// the environment. A missing config file is not an error.
func LoadConfig(dir string) (*Config, error) {
	cfg := DefaultConfig()
	if dir != "" {
		cfg.dir = dir
	}

	v := newViper(cfg)
	v.AddConfigPath(cfg.dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside paging or search.
func (c *Config) Validate() error {
	if c.Paging.PageSize <= 0 {
		return fmt.Errorf("paging.page_size must be positive, got %d", c.Paging.PageSize)
	}
	if c.Paging.InitialLoadSize < 0 {
		return fmt.Errorf("paging.initial_load_size must not be negative, got %d", c.Paging.InitialLoadSize)
	}
	switch strings.ToLower(c.Search.Mode) {
	case "substring", "fuzzy":
	default:
		return fmt.Errorf("search.mode must be substring or fuzzy, got %q", c.Search.Mode)
	}
	if c.Cache.Dir == "" {
		return fmt.Errorf("cache.dir is required")
	}
	return nil
}

// Path returns the config file location.
func (c *Config) Path() string {
	return filepath.Join(c.dir, configFileName)
}

// Save writes the configuration to its file.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set fields individually to ensure correct key names (snake_case)
	v := viper.New()
	v.Set("server.token", c.Server.Token)
	v.Set("cache.dir", c.Cache.Dir)
	v.Set("paging.page_size", c.Paging.PageSize)
	v.Set("paging.initial_load_size", c.Paging.InitialLoadSize)
	v.Set("search.mode", c.Search.Mode)
	v.Set("logging.file", c.Logging.File)
	v.Set("logging.level", c.Logging.Level)

	if err := v.WriteConfigAs(c.Path()); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
