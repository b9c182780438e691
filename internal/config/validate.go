package config

import (
	"fmt"
	"strings"

	"github.com/danmuck/schemakit/internal/apperr"
	"github.com/danmuck/schemakit/internal/logging"
	"github.com/danmuck/schemakit/internal/schemas"
	"github.com/danmuck/schemakit/internal/store"
)

// Validate reports the first problem in cfg as a Configuration error.
func Validate(cfg Config) error {
	if err := validate(cfg); err != nil {
		return &apperr.Error{Kind: apperr.KindConfiguration, Message: err.Error(), Err: err}
	}
	return nil
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return fmt.Errorf("server.addr is required")
	}
	for _, origin := range cfg.Server.CorsOrigins {
		if origin != "*" && !strings.Contains(origin, "://") {
			return fmt.Errorf("server.cors_origins entry %q needs a scheme", origin)
		}
	}

	switch cfg.Store.Driver {
	case store.DriverMemory:
	case store.DriverSQLite:
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the sqlite driver")
		}
	case store.DriverMongo:
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store.dsn (or %s) is required for the mongo driver", EnvMongoURI)
		}
		if cfg.Store.Database == "" || cfg.Store.Collection == "" {
			return fmt.Errorf("store.database and store.collection are required for the mongo driver")
		}
	default:
		return fmt.Errorf("store.driver %q is not one of memory, sqlite, mongo", cfg.Store.Driver)
	}
	if cfg.Store.TimeoutMS < 0 {
		return fmt.Errorf("store.timeout_ms must not be negative")
	}

	rl := cfg.RateLimit
	switch rl.Backend {
	case BackendMemory:
	case BackendRedis:
		if rl.RedisAddr == "" {
			return fmt.Errorf("ratelimit.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("ratelimit.backend %q is not one of memory, redis", rl.Backend)
	}
	if rl.WindowMS <= 0 {
		return fmt.Errorf("ratelimit.window_ms must be positive")
	}
	limits := map[string]int{
		"create": rl.Create, "read": rl.Read, "update": rl.Update,
		"render": rl.Render, "preview": rl.Preview,
	}
	for name, v := range limits {
		if v < 0 {
			return fmt.Errorf("ratelimit.%s must not be negative", name)
		}
	}

	if len(cfg.Auth.Tokens) == 0 && cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth: configure auth.tokens or auth.jwt_secret")
	}
	for token, user := range cfg.Auth.Tokens {
		if strings.TrimSpace(token) == "" || strings.TrimSpace(user) == "" {
			return fmt.Errorf("auth.tokens entries need a token and a user id")
		}
	}

	if _, ok := logging.ParseLevel(cfg.Log.Level); !ok {
		return fmt.Errorf("log.level %q is not a known level", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		return fmt.Errorf("log.format %q is not one of console, json", cfg.Log.Format)
	}

	if _, err := schemas.ParsePatchPolicy(cfg.Schemas.PatchValidation); err != nil {
		return fmt.Errorf("schemas.patch_validation %q is not one of typed-only, merged", cfg.Schemas.PatchValidation)
	}
	return nil
}
