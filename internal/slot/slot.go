// Package slot provides the single named persistence unit used by the key
// store, with file, SQLite, Redis, Badger and in-memory backends.
package slot

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/jordanhubbard/llmdash/internal/circuitbreaker"
)

// DefaultName is the slot name the dashboard keys are stored under.
const DefaultName = "llm_dashboard_keys"

// Slot is one named unit of storage. Load returns nil, nil when nothing has
// been saved; Remove on a missing slot is not an error.
type Slot interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Remove(ctx context.Context) error
}

// Config selects and parameterizes a backend.
type Config struct {
	Backend string // file, sqlite, redis, badger, memory
	Name    string

	Dir       string // file and badger backends
	SQLiteDSN string
	RedisAddr string
	RedisPass string
	RedisDB   int
}

// Open builds the configured backend. The returned io.Closer releases any
// underlying handle and is never nil. The redis backend is wrapped in a
// circuit breaker.
func Open(ctx context.Context, cfg Config) (Slot, io.Closer, error) {
	name := cfg.Name
	if name == "" {
		name = DefaultName
	}
	switch strings.ToLower(cfg.Backend) {
	case "", "file":
		return NewFile(filepath.Join(cfg.Dir, name+".json")), nopCloser{}, nil
	case "memory":
		return NewMemory(), nopCloser{}, nil
	case "sqlite":
		s, err := NewSQLite(ctx, cfg.SQLiteDSN, name)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case "redis":
		s, err := NewRedis(ctx, DefaultRedisConfig(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB), name)
		if err != nil {
			return nil, nil, err
		}
		return Guarded(s, circuitbreaker.New("slot.redis")), s, nil
	case "badger":
		s, err := NewBadger(filepath.Join(cfg.Dir, "badger"), name)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown slot backend %q", cfg.Backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
