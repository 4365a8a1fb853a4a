package kv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// BadgerConfig holds configuration for an embedded Badger database
type BadgerConfig struct {
	// Path is the directory for database files; ignored when InMemory is set
	Path string

	// InMemory keeps all data in RAM, for tests and throwaway demos
	InMemory bool

	SyncWrites bool

	// Logger receives Badger's internal log lines; nil disables them
	Logger *slog.Logger
}

// badgerLogger adapts slog.Logger to Badger's Logger interface
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Badger is a KV backed by an embedded Badger database
type Badger struct {
	db *badger.DB
}

// OpenBadger opens (creating if needed) a Badger database
func OpenBadger(cfg BadgerConfig) (*Badger, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Badger{db: db}, nil
}

// Get reads key in a read-only transaction
func (b *Badger) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		v, err := badgerGet(txn, key)
		out = v
		return err
	})
	return out, err
}

// Scan returns the values of every key under prefix
func (b *Badger) Scan(ctx context.Context, prefix string) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			v, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

// Update runs fn in a read-write Badger transaction, retrying on conflicts.
// Badger tracks reads itself, so watch is not needed.
func (b *Badger) Update(ctx context.Context, _ []string, fn func(tx Txn) error) error {
	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := b.db.Update(func(txn *badger.Txn) error {
			return fn(&badgerTxn{txn: txn})
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		return err
	}
	return ErrTxnConflict
}

// Close flushes and closes the database
func (b *Badger) Close() error {
	return b.db.Close()
}

func badgerGet(txn *badger.Txn, key string) ([]byte, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

type badgerTxn struct {
	txn *badger.Txn
}

func (t *badgerTxn) Get(key string) ([]byte, error) {
	return badgerGet(t.txn, key)
}

func (t *badgerTxn) Set(key string, value []byte) error {
	return t.txn.Set([]byte(key), value)
}

func (t *badgerTxn) Delete(key string) error {
	return t.txn.Delete([]byte(key))
}

func (t *badgerTxn) Keys(prefix string) ([]string, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := t.txn.NewIterator(opts)
	defer it.Close()

	var keys []string
	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		keys = append(keys, string(it.Item().KeyCopy(nil)))
	}
	return keys, nil
}
