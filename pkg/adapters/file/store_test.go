package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/taleweave/pkg/adapters/file"
	"github.com/aretw0/taleweave/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.KVStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	store := file.New(t.TempDir())
	ports.RunKVStoreContract(t, store)
}

func TestFileStore_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "dialogue_trees", map[string]string{"a": "b"}))
	require.NoError(t, store.Write(ctx, "dialogue_trees", map[string]string{"a": "c"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "dialogue_trees.json", entries[0].Name())

	names, err := store.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"dialogue_trees"}, names)
}

func TestFileStore_SanitizesNames(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.SetBlob(ctx, "../avatar.png", []byte("x")))
	_, err := os.Stat(filepath.Join(dir, "blobs", ".._avatar.png"))
	assert.NoError(t, err)

	data, err := store.GetBlob(ctx, "../avatar.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
}

func TestFileStore_CorruptCollection(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644))

	var dst map[string]any
	_, err := store.Read(context.Background(), "broken", &dst)
	assert.Error(t, err)
}
