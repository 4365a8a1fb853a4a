package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Redis is a KV backed by a Redis server. Transactions use WATCH/MULTI.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to Redis and verifies the connection with PING
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Redis{client: client}, nil
}

// NewRedisFromClient wraps an existing client
func NewRedisFromClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Get reads key, mapping redis.Nil to ErrKeyNotFound
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	return v, err
}

// Scan collects the keys under prefix with SCAN and fetches them with MGET
func (r *Redis) Scan(ctx context.Context, prefix string) ([][]byte, error) {
	keys, err := scanKeys(ctx, r.client, prefix)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(vals))
	for _, v := range vals {
		// Keys deleted between SCAN and MGET come back as nil
		s, ok := v.(string)
		if !ok {
			continue
		}
		out = append(out, []byte(s))
	}
	return out, nil
}

// Update runs fn under WATCH on the given keys and commits its writes in a
// MULTI/EXEC block, retrying when a watched key changed.
func (r *Redis) Update(ctx context.Context, watch []string, fn func(tx Txn) error) error {
	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		err := r.client.Watch(ctx, func(rtx *redis.Tx) error {
			tx := &redisTxn{ctx: ctx, rtx: rtx, buf: newWriteBuffer()}
			if err := fn(tx); err != nil {
				return err
			}
			_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for _, k := range tx.buf.order {
					w := tx.buf.writes[k]
					if w.deleted {
						pipe.Del(ctx, k)
					} else {
						pipe.Set(ctx, k, w.value, 0)
					}
				}
				return nil
			})
			return err
		}, watch...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrTxnConflict
}

// Close closes the client
func (r *Redis) Close() error {
	return r.client.Close()
}

type scanner interface {
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

func scanKeys(ctx context.Context, c scanner, prefix string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := c.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

type redisTxn struct {
	ctx context.Context
	rtx *redis.Tx
	buf *writeBuffer
}

func (t *redisTxn) Get(key string) ([]byte, error) {
	if v, found, err := t.buf.lookup(key); found {
		return v, err
	}
	v, err := t.rtx.Get(t.ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	return v, err
}

func (t *redisTxn) Set(key string, value []byte) error {
	t.buf.set(key, value)
	return nil
}

func (t *redisTxn) Delete(key string) error {
	t.buf.delete(key)
	return nil
}

func (t *redisTxn) Keys(prefix string) ([]string, error) {
	stored, err := scanKeys(t.ctx, t.rtx, prefix)
	if err != nil {
		return nil, err
	}
	return t.buf.mergeKeys(stored, prefix), nil
}
