package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/taleweave/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contractRecord struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Tags  []string `json:"tags"`
}

// RunKVStoreContract runs a suite of tests to verify that a KVStore implementation
// adheres to the defined interface contract.
func RunKVStoreContract(t *testing.T, store KVStore) {
	ctx := context.Background()
	collection := "contract_" + time.Now().Format("20060102150405")

	t.Run("Read Missing Collection", func(t *testing.T) {
		dst := map[string]contractRecord{"untouched": {Name: "keep"}}
		found, err := store.Read(ctx, "missing_"+collection, &dst)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, "keep", dst["untouched"].Name, "dst must not be modified when the collection is missing")
	})

	t.Run("Write and Read", func(t *testing.T) {
		value := map[string]contractRecord{
			"char-1": {Name: "alice", Count: 2, Tags: []string{"a", "b"}},
			"char-2": {Name: "bob"},
		}
		require.NoError(t, store.Write(ctx, collection, value))

		var loaded map[string]contractRecord
		found, err := store.Read(ctx, collection, &loaded)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, value["char-1"], loaded["char-1"])
		assert.Equal(t, "bob", loaded["char-2"].Name)
	})

	t.Run("Write Replaces Whole Collection", func(t *testing.T) {
		require.NoError(t, store.Write(ctx, collection, map[string]contractRecord{"only": {Name: "x"}}))

		var loaded map[string]contractRecord
		found, err := store.Read(ctx, collection, &loaded)
		require.NoError(t, err)
		require.True(t, found)
		assert.Len(t, loaded, 1)
		assert.Contains(t, loaded, "only")
	})

	t.Run("Read Returns Isolated Copy", func(t *testing.T) {
		require.NoError(t, store.Write(ctx, collection, map[string]contractRecord{"k": {Name: "orig"}}))

		var first map[string]contractRecord
		_, err := store.Read(ctx, collection, &first)
		require.NoError(t, err)
		first["k"] = contractRecord{Name: "mutated"}

		var second map[string]contractRecord
		_, err = store.Read(ctx, collection, &second)
		require.NoError(t, err)
		assert.Equal(t, "orig", second["k"].Name)
	})

	t.Run("Blobs", func(t *testing.T) {
		key := "blob-" + collection

		_, err := store.GetBlob(ctx, key)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		require.NoError(t, store.SetBlob(ctx, key, []byte{0x89, 'P', 'N', 'G'}))
		data, err := store.GetBlob(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)

		require.NoError(t, store.DeleteBlob(ctx, key))
		_, err = store.GetBlob(ctx, key)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		assert.NoError(t, store.DeleteBlob(ctx, key), "deleting a missing blob is not an error")
	})
}
