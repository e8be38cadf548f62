package middleware_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/aretw0/taleweave/pkg/adapters/memory"
	"github.com/aretw0/taleweave/pkg/persistence/middleware"
	"github.com/aretw0/taleweave/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func secure(t *testing.T, next ports.KVStore, active []byte, fallback ...[]byte) ports.KVStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: active, FallbackKeys: fallback})
	require.NoError(t, err)
	return mw(next)
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	ports.RunKVStoreContract(t, secure(t, memory.NewStore(), generateKey(t)))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	store := secure(t, underlying, generateKey(t))
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "characters", map[string]string{"secret": "my-secret-sauce"}))

	var raw map[string]any
	found, err := underlying.Read(ctx, "characters", &raw)
	require.NoError(t, err)
	require.True(t, found)
	assert.NotContains(t, raw, "secret", "plaintext must not reach the underlying store")
	assert.Contains(t, raw, "__encrypted__")

	var loaded map[string]string
	found, err = store.Read(ctx, "characters", &loaded)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "my-secret-sauce", loaded["secret"])

	require.NoError(t, store.SetBlob(ctx, "avatar", []byte("png-bytes")))
	rawBlob, err := underlying.GetBlob(ctx, "avatar")
	require.NoError(t, err)
	assert.False(t, bytes.Contains(rawBlob, []byte("png-bytes")))
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)
	ctx := context.Background()

	oldStore := secure(t, underlying, oldKey)
	require.NoError(t, oldStore.Write(ctx, "c", map[string]string{"data": "old"}))

	newStore := secure(t, underlying, newKey, oldKey)
	var loaded map[string]string
	_, err := newStore.Read(ctx, "c", &loaded)
	require.NoError(t, err)
	assert.Equal(t, "old", loaded["data"])

	require.NoError(t, newStore.Write(ctx, "c", map[string]string{"data": "new"}))

	_, err = oldStore.Read(ctx, "c", &loaded)
	assert.Error(t, err, "old key alone must not decrypt data written with the new key")
}

func TestEncryptionMiddleware_RejectsPlainData(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, underlying.Write(ctx, "c", map[string]string{"data": "plain"}))

	var loaded map[string]string
	_, err := secure(t, underlying, generateKey(t)).Read(ctx, "c", &loaded)
	assert.ErrorIs(t, err, middleware.ErrNotEncrypted)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.Error(t, err)

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("short")},
	})
	assert.Error(t, err)
}
