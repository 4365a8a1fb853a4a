// Package kv implements the survey Store on top of a minimal transactional
// key-value interface, with in-memory, Badger and Redis backends.
package kv

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Get for absent keys
var ErrKeyNotFound = errors.New("key not found")

// ErrTxnConflict is returned when an optimistic transaction kept losing races
var ErrTxnConflict = errors.New("transaction conflict")

// maxTxnRetries bounds optimistic transaction retries
const maxTxnRetries = 50

// KV is the storage contract the Store needs. Update runs fn atomically:
// either every write made through the Txn is applied or none is. Backends
// with optimistic concurrency may run fn more than once; watch names the keys
// whose concurrent modification must abort and retry the transaction.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Scan returns the values of every key with the given prefix
	Scan(ctx context.Context, prefix string) ([][]byte, error)
	Update(ctx context.Context, watch []string, fn func(tx Txn) error) error
	Close() error
}

// Txn is the read-write view inside an Update call. Reads observe the
// transaction's own pending writes.
type Txn interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
}

// pendingWrite is a buffered Set (value) or Delete (deleted)
type pendingWrite struct {
	value   []byte
	deleted bool
}

// writeBuffer overlays buffered writes for backends without native transactions
type writeBuffer struct {
	order  []string
	writes map[string]pendingWrite
}

func newWriteBuffer() *writeBuffer {
	return &writeBuffer{writes: make(map[string]pendingWrite)}
}

func (b *writeBuffer) set(key string, value []byte) {
	if _, ok := b.writes[key]; !ok {
		b.order = append(b.order, key)
	}
	b.writes[key] = pendingWrite{value: append([]byte(nil), value...)}
}

func (b *writeBuffer) delete(key string) {
	if _, ok := b.writes[key]; !ok {
		b.order = append(b.order, key)
	}
	b.writes[key] = pendingWrite{deleted: true}
}

// lookup returns the buffered value for key; found reports whether the buffer
// has an opinion about the key at all
func (b *writeBuffer) lookup(key string) (value []byte, found bool, err error) {
	w, ok := b.writes[key]
	if !ok {
		return nil, false, nil
	}
	if w.deleted {
		return nil, true, ErrKeyNotFound
	}
	return w.value, true, nil
}

// mergeKeys applies buffered writes to a list of stored keys with prefix
func (b *writeBuffer) mergeKeys(stored []string, prefix string) []string {
	seen := make(map[string]bool, len(stored))
	out := make([]string, 0, len(stored))
	for _, k := range stored {
		seen[k] = true
		if w, ok := b.writes[k]; ok && w.deleted {
			continue
		}
		out = append(out, k)
	}
	for _, k := range b.order {
		if seen[k] || b.writes[k].deleted || !hasPrefix(k, prefix) {
			continue
		}
		out = append(out, k)
	}
	return out
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
