//go:build e2e

package docstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openmeet-team/surveystudio/internal/store"
	"github.com/openmeet-team/surveystudio/internal/store/storetest"
	"github.com/openmeet-team/surveystudio/internal/testutil"
)

func TestMongoStore(t *testing.T) {
	ctx := context.Background()

	mongoC, err := testutil.StartMongo(ctx)
	require.NoError(t, err, "Failed to start MongoDB container")
	t.Cleanup(func() {
		if err := mongoC.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	n := 0
	storetest.Run(t, func(t *testing.T) store.Store {
		n++
		s, err := Connect(ctx, mongoC.URI, fmt.Sprintf("surveystudio_test_%d", n))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close(ctx) })
		return s
	})
}
