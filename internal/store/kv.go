package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/lovewrapped/internal/shared"
)

// KV is the storage port: opaque string values addressed by key.
type KV interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes keys. Missing keys are not an error. All keys are removed together.
	Delete(ctx context.Context, keys ...string) error
	// Close releases the backend.
	Close() error
}

// MemoryKV is an in-process [KV].
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryKV creates an empty [MemoryKV].
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *MemoryKV) Close() error { return nil }

// Len returns the number of stored keys.
func (m *MemoryKV) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Open returns the [KV] selected by cfg.Storage.Driver.
func Open(ctx context.Context, cfg *shared.Config) (KV, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return NewMemoryKV(), nil
	case "sqlite", "":
		db, err := shared.OpenDatabase(cfg.Database)
		if err != nil {
			return nil, err
		}
		return NewSQLiteKV(db), nil
	case "redis":
		return ConnectRedis(ctx, RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", shared.ErrInvalidConfig, cfg.Storage.Driver)
	}
}
