package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by KV.Get for a missing key.
var ErrNotFound = errors.New("storage: key not found")

// KV is the key-value surface the state store persists through.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Keys lists keys starting with prefix in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Backend names accepted by NewKV.
const (
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendBadger   = "badger"
	BackendPostgres = "postgres"
	BackendFile     = "file"
	BackendMemory   = "memory"
)

// Config parameterizes NewKV.
type Config struct {
	Backend string
	// Dir holds on-disk databases for the sqlite, badger and file backends.
	Dir string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PostgresURL string

	SQLite Options
}

// SQLitePath is where the sqlite backend keeps its database inside dir.
func SQLitePath(dir string) string {
	return filepath.Join(dir, "watchtrack.db")
}

// NewKV opens the backend named by cfg.Backend. An empty backend selects
// sqlite.
func NewKV(ctx context.Context, cfg Config) (KV, error) {
	backend := strings.ToLower(cfg.Backend)
	if backend == "" {
		backend = BackendSQLite
	}

	switch backend {
	case BackendSQLite:
		if cfg.Dir == "" {
			return Open(":memory:", cfg.SQLite)
		}
		if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("storage: create data dir: %w", err)
		}
		return Open(SQLitePath(cfg.Dir), cfg.SQLite)
	case BackendRedis:
		return OpenRedis(ctx, RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	case BackendBadger:
		if cfg.Dir == "" {
			return OpenBadger("")
		}
		return OpenBadger(filepath.Join(cfg.Dir, "badger"))
	case BackendPostgres:
		return OpenPostgres(ctx, cfg.PostgresURL)
	case BackendFile:
		if cfg.Dir == "" {
			return nil, errors.New("storage: file backend requires a data dir")
		}
		return OpenFile(filepath.Join(cfg.Dir, "progress.json"))
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q (supported: sqlite, redis, badger, postgres, file, memory)", cfg.Backend)
	}
}
