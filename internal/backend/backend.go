// Package backend opens the configured persistence backend for the
// binaries.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/openmeet-team/surveystudio/internal/config"
	"github.com/openmeet-team/surveystudio/internal/db"
	"github.com/openmeet-team/surveystudio/internal/docstore"
	"github.com/openmeet-team/surveystudio/internal/store"
	"github.com/openmeet-team/surveystudio/internal/store/kv"
)

// Backend is an open store with its readiness probes
type Backend struct {
	Store  store.Store
	Checks map[string]func(ctx context.Context) error

	closers []func() error
}

// Open connects to cfg.StoreBackend, applying migrations or indexes where
// the backend has them. The returned store bounds every call by
// cfg.StoreTimeout.
func Open(ctx context.Context, cfg config.Config) (*Backend, error) {
	b := &Backend{Checks: map[string]func(ctx context.Context) error{}}

	var raw store.Store
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		dbConfig, err := db.ConfigFromEnv()
		if err != nil {
			return nil, fmt.Errorf("failed to load database config: %w", err)
		}
		database, err := db.Connect(ctx, dbConfig)
		if err != nil {
			return nil, err
		}
		b.onClose(func() error { return db.Close(database) })
		if err := db.Migrate(ctx, database); err != nil {
			b.Close()
			return nil, err
		}
		b.Checks["database"] = database.PingContext
		raw = db.NewQueries(database)

	case config.BackendMongo:
		ds, err := docstore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		b.onClose(func() error { return ds.Close(context.Background()) })
		b.Checks["mongo"] = ds.Ping
		raw = ds

	case config.BackendBadger:
		bdb, err := kv.OpenBadger(kv.BadgerConfig{Path: cfg.BadgerPath, SyncWrites: true})
		if err != nil {
			return nil, err
		}
		s := kv.New(bdb)
		b.onClose(s.Close)
		raw = s

	case config.BackendRedis:
		client := NewRedisClient(cfg)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		s := kv.New(kv.NewRedisFromClient(client))
		b.onClose(s.Close)
		b.Checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		raw = s

	case config.BackendMemory:
		log.Println("Using in-memory store; data is lost on restart")
		raw = kv.New(kv.NewMemory())

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	b.Store = store.WithTimeout(raw, cfg.StoreBackend, cfg.StoreTimeout)
	return b, nil
}

// NewRedisClient builds a client from the Redis settings in cfg
func NewRedisClient(cfg config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func (b *Backend) onClose(fn func() error) {
	b.closers = append(b.closers, fn)
}

// Close releases the backend's connections in reverse order of opening
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}
