// Package config loads taleweave settings from an optional YAML file, a
// .env file and TALEWEAVE_* environment variables, in that order of
// increasing precedence.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no config file is given. It may be absent.
const DefaultPath = "taleweave.yaml"

// Store backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds runtime settings.
type Config struct {
	LogLevel string       `yaml:"log_level"`
	Store    StoreConfig  `yaml:"store"`
	LLM      LLMConfig    `yaml:"llm"`
	Turn     TurnConfig   `yaml:"turn"`
	Server   ServerConfig `yaml:"server"`
}

// StoreConfig selects the KV backend.
type StoreConfig struct {
	Backend     string      `yaml:"backend"`
	Dir         string      `yaml:"dir"`
	Redis       RedisConfig `yaml:"redis"`
	DatabaseURL string      `yaml:"database_url"`
	// EncryptionKey is a hex-encoded 32-byte AES key. Empty disables encryption.
	EncryptionKey string   `yaml:"encryption_key"`
	FallbackKeys  []string `yaml:"fallback_keys"`
}

// RedisConfig configures the redis backend and distributed locking.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
	// Lock enables the redis distributed locker for multi-replica deployments.
	Lock bool `yaml:"lock"`
}

// LLMConfig selects the text generator.
type LLMConfig struct {
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model"`
	APIKey      string   `yaml:"api_key"`
	BaseURL     string   `yaml:"base_url"`
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
}

// TurnConfig tunes the turn workflow.
type TurnConfig struct {
	RecentTurns    int    `yaml:"recent_turns"`
	LoreWindow     int    `yaml:"lore_window"`
	MaxInputSize   int    `yaml:"max_input_size"`
	PresetID       string `yaml:"preset"`
	SummaryRefresh bool   `yaml:"summary_refresh"`
	// Workflow is an optional YAML workflow definition replacing the default turn graph.
	Workflow string `yaml:"workflow"`
}

// ServerConfig holds listener ports.
type ServerConfig struct {
	Port        int `yaml:"port"`
	MetricsPort int `yaml:"metrics_port"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Store: StoreConfig{
			Backend: BackendMemory,
			Dir:     ".taleweave",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "taleweave:",
			},
		},
		LLM: LLMConfig{
			Provider: "echo",
		},
		Turn: TurnConfig{
			RecentTurns:    10,
			LoreWindow:     4,
			SummaryRefresh: true,
		},
		Server: ServerConfig{
			Port:        8080,
			MetricsPort: 9090,
		},
	}
}

// Load builds the configuration. An explicit path must exist; the default
// path is optional. A .env file in the working directory is loaded into the
// environment when present.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	if err := cfg.loadFile(path, explicit); err != nil {
		return nil, err
	}

	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.LogLevel = getEnv("TALEWEAVE_LOG_LEVEL", c.LogLevel)

	c.Store.Backend = getEnv("TALEWEAVE_STORE", c.Store.Backend)
	c.Store.Dir = getEnv("TALEWEAVE_DATA_DIR", c.Store.Dir)
	c.Store.Redis.Addr = getEnv("TALEWEAVE_REDIS_ADDR", c.Store.Redis.Addr)
	c.Store.Redis.Password = getEnv("TALEWEAVE_REDIS_PASSWORD", c.Store.Redis.Password)
	c.Store.Redis.DB = getEnvInt("TALEWEAVE_REDIS_DB", c.Store.Redis.DB)
	c.Store.Redis.Prefix = getEnv("TALEWEAVE_REDIS_PREFIX", c.Store.Redis.Prefix)
	c.Store.Redis.TTL = getEnvDuration("TALEWEAVE_REDIS_TTL", c.Store.Redis.TTL)
	c.Store.Redis.Lock = getEnvBool("TALEWEAVE_REDIS_LOCK", c.Store.Redis.Lock)
	c.Store.DatabaseURL = getEnv("TALEWEAVE_DATABASE_URL", getEnv("DATABASE_URL", c.Store.DatabaseURL))
	c.Store.EncryptionKey = getEnv("TALEWEAVE_ENCRYPTION_KEY", c.Store.EncryptionKey)
	if v := os.Getenv("TALEWEAVE_ENCRYPTION_FALLBACK_KEYS"); v != "" {
		c.Store.FallbackKeys = splitList(v)
	}

	c.LLM.Provider = getEnv("TALEWEAVE_LLM_PROVIDER", c.LLM.Provider)
	c.LLM.Model = getEnv("TALEWEAVE_LLM_MODEL", c.LLM.Model)
	c.LLM.BaseURL = getEnv("TALEWEAVE_LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.APIKey = getEnv("TALEWEAVE_LLM_API_KEY", c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		switch strings.ToLower(c.LLM.Provider) {
		case "openai":
			c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			c.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if v := os.Getenv("TALEWEAVE_LLM_TEMPERATURE"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			c.LLM.Temperature = &t
		}
	}
	c.LLM.MaxTokens = getEnvInt("TALEWEAVE_LLM_MAX_TOKENS", c.LLM.MaxTokens)

	c.Turn.RecentTurns = getEnvInt("TALEWEAVE_RECENT_TURNS", c.Turn.RecentTurns)
	c.Turn.LoreWindow = getEnvInt("TALEWEAVE_LORE_WINDOW", c.Turn.LoreWindow)
	c.Turn.MaxInputSize = getEnvInt("TALEWEAVE_MAX_INPUT_SIZE", c.Turn.MaxInputSize)
	c.Turn.PresetID = getEnv("TALEWEAVE_PRESET", c.Turn.PresetID)
	c.Turn.SummaryRefresh = getEnvBool("TALEWEAVE_SUMMARY_REFRESH", c.Turn.SummaryRefresh)
	c.Turn.Workflow = getEnv("TALEWEAVE_WORKFLOW", c.Turn.Workflow)

	c.Server.Port = getEnvInt("TALEWEAVE_PORT", c.Server.Port)
	c.Server.MetricsPort = getEnvInt("TALEWEAVE_METRICS_PORT", c.Server.MetricsPort)
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendRedis:
	case BackendPostgres:
		if c.Store.DatabaseURL == "" {
			return errors.New("postgres store requires a database url")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if _, _, err := c.EncryptionKeys(); err != nil {
		return err
	}
	if c.Turn.RecentTurns < 0 || c.Turn.LoreWindow < 0 || c.Turn.MaxInputSize < 0 {
		return errors.New("turn windows and input size must not be negative")
	}
	return nil
}

// EncryptionKeys decodes the active and fallback keys. A nil active key means
// encryption is disabled.
func (c *Config) EncryptionKeys() ([]byte, [][]byte, error) {
	if c.Store.EncryptionKey == "" {
		if len(c.Store.FallbackKeys) > 0 {
			return nil, nil, errors.New("fallback keys given without an active encryption key")
		}
		return nil, nil, nil
	}
	active, err := decodeKey(c.Store.EncryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	fallback := make([][]byte, 0, len(c.Store.FallbackKeys))
	for i, k := range c.Store.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid fallback key %d: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
