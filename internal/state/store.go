package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"funding-radar/internal/config"
	"funding-radar/internal/state/postgres"
	"funding-radar/internal/state/sqlite"
)

// Store is a flat string key-value store holding JSON documents.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open returns the store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StateConfig) (Store, error) {
	switch cfg.Backend {
	case "", "sqlite":
		if cfg.SQLitePath == "" {
			return nil, errors.New("sqlite path is required")
		}
		if cfg.SQLitePath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
				return nil, err
			}
		}
		return sqlite.New(cfg.SQLitePath)
	case "postgres":
		return postgres.New(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
}
