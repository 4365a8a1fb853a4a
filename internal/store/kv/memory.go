package kv

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory is a process-local KV used for demos and tests
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory KV
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get returns a copy of the stored value
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// Scan returns copies of the values under prefix in key order
func (m *Memory) Scan(ctx context.Context, prefix string) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out [][]byte
	for _, k := range m.keys(prefix) {
		out = append(out, append([]byte(nil), m.data[k]...))
	}
	return out, nil
}

// Update holds the write lock for the whole transaction, so watch is not needed
func (m *Memory) Update(ctx context.Context, _ []string, fn func(tx Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTxn{m: m, buf: newWriteBuffer()}
	if err := fn(tx); err != nil {
		return err
	}
	for _, k := range tx.buf.order {
		w := tx.buf.writes[k]
		if w.deleted {
			delete(m.data, k)
		} else {
			m.data[k] = w.value
		}
	}
	return nil
}

// Close is a no-op
func (m *Memory) Close() error { return nil }

// keys returns sorted keys with prefix; callers hold the lock
func (m *Memory) keys(prefix string) []string {
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

type memoryTxn struct {
	m   *Memory
	buf *writeBuffer
}

func (t *memoryTxn) Get(key string) ([]byte, error) {
	if v, found, err := t.buf.lookup(key); found {
		return v, err
	}
	v, ok := t.m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

func (t *memoryTxn) Set(key string, value []byte) error {
	t.buf.set(key, value)
	return nil
}

func (t *memoryTxn) Delete(key string) error {
	t.buf.delete(key)
	return nil
}

func (t *memoryTxn) Keys(prefix string) ([]string, error) {
	return t.buf.mergeKeys(t.m.keys(prefix), prefix), nil
}
