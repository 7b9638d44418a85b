package kvstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	type record struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	var missing record
	found, err := store.Get(ctx, "absent", &missing)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.Set(ctx, "records", []record{{Name: "a", Count: 1}}))

	var records []record
	found, err = store.Get(ctx, "records", &records)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, records, 1)
	require.Equal(t, "a", records[0].Name)

	require.NoError(t, store.Delete(ctx, "records"))
	found, err = store.Get(ctx, "records", &records)
	require.NoError(t, err)
	require.False(t, found)

	// deleting again is a no-op
	require.NoError(t, store.Delete(ctx, "records"))
}

func TestMemoryStoreSetReplacesValue(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "key", []string{"one", "two"}))
	require.NoError(t, store.Set(ctx, "key", []string{"three"}))

	var values []string
	found, err := store.Get(ctx, "key", &values)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []string{"three"}, values)
}
