package store

import (
	"context"
	"fmt"
	"time"
)

// Drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config selects and locates a backend.
type Config struct {
	Driver     string
	DSN        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// Open builds the backend named by cfg.Driver. Connection setup is bounded by
// cfg.Timeout when set.
func Open(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	switch cfg.Driver {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		return OpenSQLite(ctx, cfg.DSN)
	case DriverMongo:
		return OpenMongo(ctx, MongoConfig{
			URI:        cfg.DSN,
			Database:   cfg.Database,
			Collection: cfg.Collection,
		})
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
