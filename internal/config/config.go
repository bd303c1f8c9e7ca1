// Package config loads the server configuration from HCL.
package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Config is the root server configuration.
type Config struct {
	// BaseURL is the externally visible scheme://host used when building
	// hrefs. Derived from the request when empty.
	BaseURL string `hcl:"base_url,optional"`

	// ListenAddr is the HTTP bind address.
	ListenAddr string `hcl:"listen_addr,optional"`

	// LogLevel is an hclog level name (trace, debug, info, warn, error).
	LogLevel string `hcl:"log_level,optional"`

	Database *Database `hcl:"database,block"`
	Cache    *Cache    `hcl:"cache,block"`
	Auth     *Auth     `hcl:"auth,block"`
	Query    *Query    `hcl:"query,block"`
}

// Database selects the storage backend.
type Database struct {
	// Driver is sqlite or postgres.
	Driver string `hcl:"driver,optional"`

	// DSN is the driver-specific connection string.
	DSN string `hcl:"dsn,optional"`
}

// Cache configures the document cache.
type Cache struct {
	Enabled    bool   `hcl:"enabled,optional"`
	TTLSeconds int    `hcl:"ttl_seconds,optional"`
	Size       int    `hcl:"size,optional"`
	Prefix     string `hcl:"prefix,optional"`
}

// Auth configures session verification and the mutation gate.
type Auth struct {
	// JWTSecret signs and verifies session tokens.
	JWTSecret string `hcl:"jwt_secret,optional"`

	// AdminGroup is the group whose members get full mutation capability.
	AdminGroup string `hcl:"admin_group,optional"`
}

// Query bounds the projection query language.
type Query struct {
	// MaxItems is the default and maximum page size.
	MaxItems int `hcl:"max_items,optional"`
}

const (
	// DefaultCacheTTL applies when a cache block is configured without a TTL.
	DefaultCacheTTL = 7 * 24 * time.Hour

	// FallbackCacheTTL applies when no cache block is configured at all.
	FallbackCacheTTL = 10 * time.Minute
)

// FromFile loads and defaults a configuration from an HCL file.
func FromFile(path string) (*Config, error) {
	var cfg Config
	if err := hclsimple.DecodeFile(path, nil, &cfg); err != nil {
		return nil, fmt.Errorf("decoding config %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns the zero-config defaults.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// CacheTTL returns the effective document cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	if c.Cache == nil {
		return FallbackCacheTTL
	}
	if c.Cache.TTLSeconds > 0 {
		return time.Duration(c.Cache.TTLSeconds) * time.Second
	}
	return DefaultCacheTTL
}

// CacheEnabled reports whether reads go through the document cache.
func (c *Config) CacheEnabled() bool {
	return c.Cache == nil || c.Cache.Enabled
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8000"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Database == nil {
		cfg.Database = &Database{}
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "strata.db"
	}
	if cfg.Cache != nil {
		if cfg.Cache.Size <= 0 {
			cfg.Cache.Size = 1024
		}
	}
	if cfg.Auth == nil {
		cfg.Auth = &Auth{}
	}
	if cfg.Auth.AdminGroup == "" {
		cfg.Auth.AdminGroup = "admin"
	}
	if cfg.Query == nil {
		cfg.Query = &Query{}
	}
	if cfg.Query.MaxItems <= 0 {
		cfg.Query.MaxItems = 1000
	}
}
