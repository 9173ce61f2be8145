package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openBackends(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	sqlite, err := OpenSQLiteStore(ctx, filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestBucketOperations(t *testing.T) {
	ctx := context.Background()

	for name, st := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			b := st.Bucket("web-server")

			_, ok, err := b.Get(ctx, "status")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, b.Set(ctx, "status", "pending"))
			v, ok, err := b.Get(ctx, "status")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "pending", v)

			// Overwrite.
			require.NoError(t, b.Set(ctx, "status", "ready"))
			v, _, err = b.Get(ctx, "status")
			require.NoError(t, err)
			assert.Equal(t, "ready", v)

			require.NoError(t, b.SetMany(ctx, map[string]string{
				"operationToken":     "tok-1",
				"resourceIdentifier": "i-abc",
			}))
			keys, err := b.Keys(ctx)
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"status", "operationToken", "resourceIdentifier"}, keys)

			require.NoError(t, b.Delete(ctx, "operationToken", "missing"))
			_, ok, err = b.Get(ctx, "operationToken")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, b.Clear(ctx))
			keys, err = b.Keys(ctx)
			require.NoError(t, err)
			assert.Empty(t, keys)
		})
	}
}

func TestBucketsAreIsolated(t *testing.T) {
	ctx := context.Background()

	for name, st := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			a := st.Bucket("instance-a")
			b := st.Bucket("instance-b")

			require.NoError(t, a.Set(ctx, "status", "ready"))
			_, ok, err := b.Get(ctx, "status")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, b.Set(ctx, "status", "failed"))
			require.NoError(t, a.Clear(ctx))

			v, ok, err := b.Get(ctx, "status")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "failed", v)
		})
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	st, err := OpenSQLiteStore(ctx, path)
	require.NoError(t, err)
	require.NoError(t, st.Bucket("web").Set(ctx, "resourceIdentifier", "i-123"))
	require.NoError(t, st.Close())

	st, err = OpenSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer st.Close()

	v, ok, err := st.Bucket("web").Get(ctx, "resourceIdentifier")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "i-123", v)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Config{Backend: "dynamo"})
	assert.Error(t, err)
}
