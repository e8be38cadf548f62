package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taleweave.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, "echo", cfg.LLM.Provider)
	assert.Equal(t, 10, cfg.Turn.RecentTurns)
	assert.True(t, cfg.Turn.SummaryRefresh)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
log_level: debug
store:
  backend: redis
  redis:
    addr: cache:6379
    ttl: 90s
llm:
  provider: openai
  model: gpt-4o-mini
  temperature: 0.4
turn:
  recent_turns: 6
  summary_refresh: false
`)
	t.Setenv("TALEWEAVE_LLM_MODEL", "gpt-4o")
	t.Setenv("TALEWEAVE_REDIS_DB", "3")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "cache:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, 90*time.Second, cfg.Store.Redis.TTL)
	assert.Equal(t, 3, cfg.Store.Redis.DB)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model, "env wins over file")
	assert.Equal(t, "sk-test", cfg.LLM.APIKey, "provider key fallback")
	require.NotNil(t, cfg.LLM.Temperature)
	assert.InDelta(t, 0.4, *cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 6, cfg.Turn.RecentTurns)
	assert.False(t, cfg.Turn.SummaryRefresh)
	assert.Equal(t, 4, cfg.Turn.LoreWindow, "unset fields keep defaults")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")

	_, err = Load(writeFile(t, "store: [not, a, map]"))
	assert.ErrorContains(t, err, "failed to parse")

	_, err = Load(writeFile(t, "store:\n  backend: sqlite\n"))
	assert.ErrorContains(t, err, "unknown store backend")

	_, err = Load(writeFile(t, "store:\n  backend: postgres\n"))
	assert.ErrorContains(t, err, "database url")
}

func TestEncryptionKeys(t *testing.T) {
	cfg := Default()
	active, fallback, err := cfg.EncryptionKeys()
	require.NoError(t, err)
	assert.Nil(t, active)
	assert.Nil(t, fallback)

	cfg.Store.EncryptionKey = testKey
	cfg.Store.FallbackKeys = []string{strings.ToUpper(testKey)}
	active, fallback, err = cfg.EncryptionKeys()
	require.NoError(t, err)
	assert.Len(t, active, 32)
	require.Len(t, fallback, 1)
	assert.Equal(t, active, fallback[0])

	cfg.Store.EncryptionKey = "abcd"
	_, _, err = cfg.EncryptionKeys()
	assert.ErrorContains(t, err, "32 bytes")

	cfg.Store.EncryptionKey = ""
	assert.ErrorContains(t, cfg.Validate(), "without an active encryption key")
}

func TestApplyEnv_Lists(t *testing.T) {
	t.Setenv("TALEWEAVE_ENCRYPTION_FALLBACK_KEYS", " a, ,b ")
	t.Setenv("TALEWEAVE_SUMMARY_REFRESH", "off")
	t.Setenv("TALEWEAVE_RECENT_TURNS", "not-a-number")

	cfg := Default()
	cfg.applyEnv()
	assert.Equal(t, []string{"a", "b"}, cfg.Store.FallbackKeys)
	assert.False(t, cfg.Turn.SummaryRefresh)
	assert.Equal(t, 10, cfg.Turn.RecentTurns)
}
