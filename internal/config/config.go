// Package config loads schemactl settings: defaults, then a TOML or YAML file,
// then environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/danmuck/schemakit/internal/ratelimit"
	"github.com/danmuck/schemakit/internal/store"
)

type Config struct {
	Server    ServerConfig    `toml:"server" yaml:"server"`
	Store     StoreConfig     `toml:"store" yaml:"store"`
	RateLimit RateLimitConfig `toml:"ratelimit" yaml:"ratelimit"`
	Auth      AuthConfig      `toml:"auth" yaml:"auth"`
	Log       LogConfig       `toml:"log" yaml:"log"`
	Schemas   SchemasConfig   `toml:"schemas" yaml:"schemas"`
}

type ServerConfig struct {
	Addr           string   `toml:"addr" yaml:"addr"`
	CorsOrigins    []string `toml:"cors_origins" yaml:"cors_origins"`
	TrustedProxies []string `toml:"trusted_proxies" yaml:"trusted_proxies"`
}

type StoreConfig struct {
	Driver     string `toml:"driver" yaml:"driver"`
	DSN        string `toml:"dsn" yaml:"dsn"`
	Database   string `toml:"database" yaml:"database"`
	Collection string `toml:"collection" yaml:"collection"`
	TimeoutMS  int    `toml:"timeout_ms" yaml:"timeout_ms"`
}

// RateLimitConfig holds per-route request budgets per window. A limit of 0
// disables limiting for that route.
type RateLimitConfig struct {
	Backend   string `toml:"backend" yaml:"backend"`
	RedisAddr string `toml:"redis_addr" yaml:"redis_addr"`
	Prefix    string `toml:"prefix" yaml:"prefix"`
	WindowMS  int    `toml:"window_ms" yaml:"window_ms"`
	Create    int    `toml:"create" yaml:"create"`
	Read      int    `toml:"read" yaml:"read"`
	Update    int    `toml:"update" yaml:"update"`
	Render    int    `toml:"render" yaml:"render"`
	Preview   int    `toml:"preview" yaml:"preview"`
}

// AuthConfig maps static bearer tokens to user ids and/or configures HS256 JWTs.
type AuthConfig struct {
	Tokens    map[string]string `toml:"tokens" yaml:"tokens"`
	JWTSecret string            `toml:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer string            `toml:"jwt_issuer" yaml:"jwt_issuer"`
}

type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

type SchemasConfig struct {
	PatchValidation string `toml:"patch_validation" yaml:"patch_validation"`
}

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:        ":8080",
			CorsOrigins: []string{"http://localhost:3000"},
		},
		Store: StoreConfig{
			Driver:     store.DriverMemory,
			Database:   "schemakit",
			Collection: "schemas",
			TimeoutMS:  5000,
		},
		RateLimit: RateLimitConfig{
			Backend:  BackendMemory,
			Prefix:   "schemakit:ratelimit:",
			WindowMS: 60_000,
			Create:   10,
			Read:     30,
			Update:   20,
			Render:   120,
			Preview:  30,
		},
		Auth: AuthConfig{Tokens: map[string]string{}},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Schemas: SchemasConfig{PatchValidation: "typed-only"},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. The format follows the extension: .yaml/.yml, else TOML.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) != "" {
		var err error
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			cfg, err = loadYAML(path, cfg)
		default:
			cfg, err = loadTOML(path, cfg)
		}
		if err != nil {
			return Config{}, err
		}
	}
	ApplyEnv(&cfg, osLookup)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// StoreOptions converts the [store] section for store.Open.
func (c Config) StoreOptions() store.Config {
	return store.Config{
		Driver:     c.Store.Driver,
		DSN:        c.Store.DSN,
		Database:   c.Store.Database,
		Collection: c.Store.Collection,
		Timeout:    c.Store.Timeout(),
	}
}

func (s StoreConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowMS) * time.Millisecond
}

// Rule builds the limiter rule for a per-route limit.
func (r RateLimitConfig) Rule(limit int) ratelimit.Rule {
	return ratelimit.Rule{Limit: limit, Window: r.Window()}
}

func (c Config) String() string {
	return fmt.Sprintf("addr=%s store=%s ratelimit=%s patch=%s",
		c.Server.Addr, c.Store.Driver, c.RateLimit.Backend, c.Schemas.PatchValidation)
}
