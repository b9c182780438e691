package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/danmuck/schemakit/internal/store"
)

// loadTOML overlays only the keys present in the file onto cfg.
func loadTOML(path string, cfg Config) (Config, error) {
	var raw Config
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("load config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	if meta.IsDefined("server", "addr") {
		cfg.Server.Addr = strings.TrimSpace(raw.Server.Addr)
	}
	if meta.IsDefined("server", "cors_origins") {
		cfg.Server.CorsOrigins = trimAll(raw.Server.CorsOrigins)
	}
	if meta.IsDefined("server", "trusted_proxies") {
		cfg.Server.TrustedProxies = trimAll(raw.Server.TrustedProxies)
	}

	if meta.IsDefined("store", "driver") {
		cfg.Store.Driver = strings.TrimSpace(raw.Store.Driver)
	}
	if meta.IsDefined("store", "dsn") {
		cfg.Store.DSN = strings.TrimSpace(raw.Store.DSN)
	}
	if meta.IsDefined("store", "database") {
		cfg.Store.Database = strings.TrimSpace(raw.Store.Database)
	}
	if meta.IsDefined("store", "collection") {
		cfg.Store.Collection = strings.TrimSpace(raw.Store.Collection)
	}
	if meta.IsDefined("store", "timeout_ms") {
		cfg.Store.TimeoutMS = raw.Store.TimeoutMS
	}

	if meta.IsDefined("ratelimit", "backend") {
		cfg.RateLimit.Backend = strings.TrimSpace(raw.RateLimit.Backend)
	}
	if meta.IsDefined("ratelimit", "redis_addr") {
		cfg.RateLimit.RedisAddr = strings.TrimSpace(raw.RateLimit.RedisAddr)
	}
	if meta.IsDefined("ratelimit", "prefix") {
		cfg.RateLimit.Prefix = raw.RateLimit.Prefix
	}
	if meta.IsDefined("ratelimit", "window_ms") {
		cfg.RateLimit.WindowMS = raw.RateLimit.WindowMS
	}
	if meta.IsDefined("ratelimit", "create") {
		cfg.RateLimit.Create = raw.RateLimit.Create
	}
	if meta.IsDefined("ratelimit", "read") {
		cfg.RateLimit.Read = raw.RateLimit.Read
	}
	if meta.IsDefined("ratelimit", "update") {
		cfg.RateLimit.Update = raw.RateLimit.Update
	}
	if meta.IsDefined("ratelimit", "render") {
		cfg.RateLimit.Render = raw.RateLimit.Render
	}
	if meta.IsDefined("ratelimit", "preview") {
		cfg.RateLimit.Preview = raw.RateLimit.Preview
	}

	if meta.IsDefined("auth", "tokens") {
		cfg.Auth.Tokens = raw.Auth.Tokens
	}
	if meta.IsDefined("auth", "jwt_secret") {
		cfg.Auth.JWTSecret = strings.TrimSpace(raw.Auth.JWTSecret)
	}
	if meta.IsDefined("auth", "jwt_issuer") {
		cfg.Auth.JWTIssuer = strings.TrimSpace(raw.Auth.JWTIssuer)
	}

	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.TrimSpace(raw.Log.Level)
	}
	if meta.IsDefined("log", "format") {
		cfg.Log.Format = strings.TrimSpace(raw.Log.Format)
	}

	if meta.IsDefined("schemas", "patch_validation") {
		cfg.Schemas.PatchValidation = strings.TrimSpace(raw.Schemas.PatchValidation)
	}
	return cfg, nil
}

// loadYAML decodes onto cfg directly; yaml.v3 leaves absent keys untouched.
func loadYAML(path string, cfg Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.Server.CorsOrigins = trimAll(cfg.Server.CorsOrigins)
	cfg.Server.TrustedProxies = trimAll(cfg.Server.TrustedProxies)
	return cfg, nil
}

// Environment overrides.
const (
	EnvAddr            = "SCHEMACTL_ADDR"
	EnvStoreDriver     = "SCHEMACTL_STORE_DRIVER"
	EnvStoreDSN        = "SCHEMACTL_STORE_DSN"
	EnvMongoURI        = "MONGODB_URI"
	EnvRedisAddr       = "SCHEMACTL_REDIS_ADDR"
	EnvJWTSecret       = "SCHEMACTL_AUTH_JWT_SECRET"
	EnvPatchValidation = "SCHEMACTL_PATCH_VALIDATION"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

var osLookup LookupFunc = os.LookupEnv

// ApplyEnv overrides cfg from the environment. MONGODB_URI selects the mongo
// driver unless SCHEMACTL_STORE_DRIVER says otherwise; SCHEMACTL_REDIS_ADDR
// selects the redis limiter.
func ApplyEnv(cfg *Config, lookup LookupFunc) {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	if v, ok := get(EnvAddr); ok {
		cfg.Server.Addr = v
	}
	if v, ok := get(EnvMongoURI); ok {
		cfg.Store.Driver = store.DriverMongo
		cfg.Store.DSN = v
	}
	if v, ok := get(EnvStoreDriver); ok {
		cfg.Store.Driver = v
	}
	if v, ok := get(EnvStoreDSN); ok {
		cfg.Store.DSN = v
	}
	if v, ok := get(EnvRedisAddr); ok {
		cfg.RateLimit.Backend = BackendRedis
		cfg.RateLimit.RedisAddr = v
	}
	if v, ok := get(EnvJWTSecret); ok {
		cfg.Auth.JWTSecret = v
	}
	if v, ok := get(EnvPatchValidation); ok {
		cfg.Schemas.PatchValidation = v
	}
}

// LoadDotenv loads .env style files into the process environment. Missing
// files are skipped; variables already set win.
func LoadDotenv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
