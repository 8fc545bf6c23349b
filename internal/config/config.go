package config

import (
	"errors"
	"fmt"
	"time"
)

// Storage drivers.
const (
	StorageJSON   = "json"
	StorageSQLite = "sqlite"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`

	StorageDriver string        `mapstructure:"storage_driver" yaml:"storage_driver"`
	DataPath      string        `mapstructure:"data_path" yaml:"data_path"`
	DatabasePath  string        `mapstructure:"database_path" yaml:"database_path"`
	FlushInterval time.Duration `mapstructure:"flush_interval" yaml:"flush_interval"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`
	JWTRequired bool          `mapstructure:"jwt_required" yaml:"jwt_required"`

	MaxMessageBytes    int64    `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	MaxBodyBytes       int64    `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	HistoryLimit       int      `mapstructure:"history_limit" yaml:"history_limit"`
	LobbyName          string   `mapstructure:"lobby_name" yaml:"lobby_name"`
	AllowedOrigins     []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	RateLimitPerMinute int      `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	StaticDir          string   `mapstructure:"static_dir" yaml:"static_dir"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":3000",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",

		StorageDriver: StorageJSON,
		DataPath:      "data.json",
		DatabasePath:  "groupchat.db",
		FlushInterval: 500 * time.Millisecond,

		JWTSecret:   "change-me-in-production",
		JWTIssuer:   "groupchat",
		JWTAudience: "groupchat",
		JWTTTL:      24 * time.Hour,

		MaxMessageBytes:    10 << 20,
		MaxBodyBytes:       50 << 20,
		HistoryLimit:       100,
		LobbyName:          "Public Lobby",
		AllowedOrigins:     []string{"*"},
		RateLimitPerMinute: 600,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.StorageDriver != "" {
		c.StorageDriver = other.StorageDriver
	}
	if other.DataPath != "" {
		c.DataPath = other.DataPath
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.StaticDir != "" {
		c.StaticDir = other.StaticDir
	}
	if other.JWTRequired {
		c.JWTRequired = true
	}
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageJSON, StorageSQLite:
	default:
		return fmt.Errorf("unknown storage_driver %q (want %q or %q)", c.StorageDriver, StorageJSON, StorageSQLite)
	}
	if c.JWTRequired && c.JWTSecret == "" {
		return errors.New("jwt_required needs jwt_secret")
	}
	if c.MaxMessageBytes <= 0 || c.MaxBodyBytes <= 0 {
		return errors.New("max_message_bytes and max_body_bytes must be positive")
	}
	return nil
}
