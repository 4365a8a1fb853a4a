//go:build e2e

package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openmeet-team/surveystudio/internal/store"
	"github.com/openmeet-team/surveystudio/internal/store/storetest"
	"github.com/openmeet-team/surveystudio/internal/testutil"
)

func TestRedisStore(t *testing.T) {
	ctx := context.Background()

	redisC, err := testutil.StartRedis(ctx)
	require.NoError(t, err, "Failed to start Redis container")
	t.Cleanup(func() {
		if err := redisC.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	storetest.Run(t, func(t *testing.T) store.Store {
		r, err := NewRedis(ctx, RedisConfig{Addr: redisC.URI})
		require.NoError(t, err)
		require.NoError(t, r.client.FlushDB(ctx).Err())
		t.Cleanup(func() { r.Close() })
		return New(r)
	})
}
