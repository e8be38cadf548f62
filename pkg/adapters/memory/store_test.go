package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/taleweave/pkg/adapters/memory"
	"github.com/aretw0/taleweave/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunKVStoreContract(t, store)
}

func TestMemoryStore_Collections(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	require.NoError(t, store.Write(ctx, "world_books", map[string]any{}))
	require.NoError(t, store.Write(ctx, "dialogue_trees", map[string]any{}))

	names, err := store.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"dialogue_trees", "world_books"}, names)
}
