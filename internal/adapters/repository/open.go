package repository

import (
	"context"
	"fmt"
)

// Backend kinds accepted by Open.
const (
	KindFile   = "file"
	KindSQLite = "sqlite"
	KindRedis  = "redis"
	KindMemory = "memory"
)

// BackendConfig selects and configures a Backend.
type BackendConfig struct {
	Kind       string
	FileDir    string
	SQLitePath string
	RedisAddr  string
	RedisDB    int
}

// OpenBackend opens the backend described by cfg.
func OpenBackend(ctx context.Context, cfg BackendConfig) (Backend, error) {
	switch cfg.Kind {
	case KindFile, "":
		b, err := OpenFile(cfg.FileDir)
		if err != nil {
			return nil, err
		}
		return b, nil
	case KindSQLite:
		b, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return b, nil
	case KindRedis:
		b, err := OpenRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		return b, nil
	case KindMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Kind)
	}
}
