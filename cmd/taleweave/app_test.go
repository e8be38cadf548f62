package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/taleweave/internal/config"
	"github.com/aretw0/taleweave/internal/logging"
	"github.com/aretw0/taleweave/pkg/domain"
	"github.com/aretw0/taleweave/pkg/workflow/nodes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

type card struct {
	Secret string `json:"secret"`
}

func TestOpenStore_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	c := config.Default()
	c.Store.Backend = config.BackendRedis
	c.Store.Redis.Addr = mr.Addr()
	c.Store.Redis.Lock = true
	c.Store.EncryptionKey = testKey

	b, err := openStore(ctx, c)
	require.NoError(t, err)
	defer b.close()
	require.NotNil(t, b.locker)

	require.NoError(t, b.store.Write(ctx, "cards", map[string]card{"mira": {Secret: "lighthouse"}}))

	raw, err := mr.Get("taleweave:col:cards")
	require.NoError(t, err)
	assert.NotContains(t, raw, "lighthouse", "collections are encrypted at rest")

	var got map[string]card
	found, err := b.store.Read(ctx, "cards", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "lighthouse", got["mira"].Secret)

	unlock, err := b.locker.Lock(ctx, "mira", 0)
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))
}

func TestOpenStore_Errors(t *testing.T) {
	ctx := context.Background()

	c := config.Default()
	c.Store.Backend = "sqlite"
	_, err := openStore(ctx, c)
	assert.ErrorContains(t, err, "unknown store backend")

	c = config.Default()
	c.Store.Backend = config.BackendRedis
	c.Store.Redis.Addr = "127.0.0.1:1"
	_, err = openStore(ctx, c)
	assert.ErrorContains(t, err, "failed to connect to redis")
}

func TestNewApp_FileStoreAndWorkflow(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	def := nodes.TurnDefinition(nodes.TurnOptions{})
	def.Name = "custom-turn"
	data, err := def.Marshal()
	require.NoError(t, err)
	wfPath := filepath.Join(dir, "turn.yaml")
	require.NoError(t, os.WriteFile(wfPath, data, 0o644))

	c := config.Default()
	c.Store.Backend = config.BackendFile
	c.Store.Dir = dir
	c.Turn.Workflow = wfPath
	c.Turn.SummaryRefresh = false

	a, err := newApp(ctx, c, logging.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "custom-turn", a.Engine.Workflow().Name())

	_, err = a.Engine.Characters.Save(ctx, domain.Character{ID: "mira", Name: "Mira", FirstMessage: "Hello."})
	require.NoError(t, err)
	_, err = a.Engine.InitializeDialogue(ctx, "mira", domain.RuntimeConfig{})
	require.NoError(t, err)
	_, err = a.Engine.RunTurn(ctx, "mira", "hi", domain.RuntimeConfig{}, "")
	require.NoError(t, err)
	require.NoError(t, a.Close())

	// A second app over the same directory sees the persisted tree.
	a, err = newApp(ctx, c, logging.NewNop())
	require.NoError(t, err)
	defer a.Close()
	path, err := a.Engine.Path(ctx, "mira")
	require.NoError(t, err)
	assert.Len(t, path, 2)
}

func TestNewApp_Errors(t *testing.T) {
	ctx := context.Background()

	c := config.Default()
	c.LLM.Provider = "telepathy"
	_, err := newApp(ctx, c, logging.NewNop())
	assert.ErrorContains(t, err, "unsupported llm provider")

	c = config.Default()
	c.Turn.Workflow = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = newApp(ctx, c, logging.NewNop())
	assert.ErrorContains(t, err, "failed to open workflow")
}

func TestRunValidate(t *testing.T) {
	dir := t.TempDir()

	data, err := nodes.TurnDefinition(nodes.TurnOptions{}).Marshal()
	require.NoError(t, err)
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, data, 0o644))
	assert.NoError(t, runValidate(good))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(`
name: broken
nodes:
  - type: entry
    config:
      id: in
      category: entry
      next: [nowhere]
`), 0o644))
	err = runValidate(bad)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestCommands_FileBackend(t *testing.T) {
	dir := t.TempDir()
	cardPath := filepath.Join(dir, "mira.json")
	require.NoError(t, os.WriteFile(cardPath, []byte(`{"id":"mira","name":"Mira","first_mes":"Hello there."}`), 0o644))
	cfgPath := filepath.Join(dir, "taleweave.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("log_level: error\nstore:\n  backend: file\n  dir: "+dir+"\nturn:\n  summary_refresh: false\n"), 0o644))

	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetErr(&out)
		rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
		require.NoError(t, rootCmd.ExecuteContext(context.Background()), out.String())
		return out.String()
	}

	assert.Contains(t, run("character", "import", cardPath), "Imported 'Mira' as mira")
	assert.Contains(t, run("character", "ls"), "- mira (Mira)")
	assert.Contains(t, run("tree", "ls"), "No dialogue trees found.")

	c, err := config.Load(cfgPath)
	require.NoError(t, err)
	a, err := newApp(context.Background(), c, logging.NewNop())
	require.NoError(t, err)
	_, err = a.Engine.InitializeDialogue(context.Background(), "mira", domain.RuntimeConfig{})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	assert.Contains(t, run("tree", "ls"), "- mira")
	assert.Contains(t, run("tree", "show", "mira", "--format", "json"), `"character_id": "mira"`)
	mermaid := run("tree", "show", "mira", "--format", "mermaid")
	assert.Contains(t, mermaid, "graph TD")
	assert.Contains(t, mermaid, "current;")
	assert.Contains(t, run("graph"), "graph TD")
	assert.Contains(t, run("tree", "rm", "mira"), "Removed dialogue tree 'mira'")
	assert.Contains(t, run("version"), "taleweave version")
}
