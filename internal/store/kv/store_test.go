package kv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmeet-team/surveystudio/internal/store"
	"github.com/openmeet-team/surveystudio/internal/store/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return New(NewMemory())
	})
}

func TestBadgerStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		db, err := OpenBadger(BadgerConfig{InMemory: true})
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		return New(db)
	})
}

func TestBadgerPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := OpenBadger(BadgerConfig{Path: dir})
	require.NoError(t, err)
	created, err := New(db).CreateSurvey(ctx, storetest.Draft("Durable"), "owner")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db2, err := OpenBadger(BadgerConfig{Path: dir})
	require.NoError(t, err)
	defer db2.Close()

	loaded, err := New(db2).GetSurvey(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Durable", loaded.Title)
}

func TestOpenBadger_RequiresPath(t *testing.T) {
	_, err := OpenBadger(BadgerConfig{})
	assert.Error(t, err)
}

func TestMemoryUpdate_RollsBackOnError(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Update(ctx, nil, func(tx Txn) error {
		return tx.Set("a", []byte("1"))
	}))

	boom := errors.New("boom")
	err := m.Update(ctx, nil, func(tx Txn) error {
		require.NoError(t, tx.Set("a", []byte("2")))
		require.NoError(t, tx.Set("b", []byte("3")))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	v, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)
	_, err = m.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemoryTxn_ReadsOwnWrites(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Update(ctx, nil, func(tx Txn) error {
		require.NoError(t, tx.Set("p:1", []byte("x")))
		return tx.Set("p:2", []byte("y"))
	}))

	err := m.Update(ctx, nil, func(tx Txn) error {
		require.NoError(t, tx.Delete("p:1"))
		require.NoError(t, tx.Set("p:3", []byte("z")))

		_, err := tx.Get("p:1")
		assert.ErrorIs(t, err, ErrKeyNotFound)
		v, err := tx.Get("p:3")
		require.NoError(t, err)
		assert.Equal(t, []byte("z"), v)

		keys, err := tx.Keys("p:")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"p:2", "p:3"}, keys)
		return nil
	})
	require.NoError(t, err)

	values, err := m.Scan(ctx, "p:")
	require.NoError(t, err)
	assert.Len(t, values, 2)
}

func TestMemory_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemory().Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStoreWithTimeout(t *testing.T) {
	s := store.WithTimeout(New(NewMemory()), "memory", time.Second)
	created, err := s.CreateSurvey(context.Background(), storetest.Draft("Bounded"), "owner")
	require.NoError(t, err)

	loaded, err := s.GetSurvey(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, loaded.ID)
}
