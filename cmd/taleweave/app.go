package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/taleweave"
	"github.com/aretw0/taleweave/internal/config"
	"github.com/aretw0/taleweave/internal/metrics"
	"github.com/aretw0/taleweave/pkg/adapters/file"
	"github.com/aretw0/taleweave/pkg/adapters/llm"
	"github.com/aretw0/taleweave/pkg/adapters/memory"
	"github.com/aretw0/taleweave/pkg/adapters/postgres"
	"github.com/aretw0/taleweave/pkg/adapters/redis"
	"github.com/aretw0/taleweave/pkg/persistence/middleware"
	"github.com/aretw0/taleweave/pkg/ports"
	"github.com/aretw0/taleweave/pkg/workflow"
	"github.com/aretw0/taleweave/pkg/workflow/nodes"
	backend "github.com/redis/go-redis/v9"
)

// app is the engine plus everything that has to be closed with it.
type app struct {
	Engine  *taleweave.Engine
	Metrics *metrics.Metrics
	closers []func() error
}

// backing is an opened store and, for redis, its client.
type backing struct {
	store  ports.KVStore
	locker ports.DistributedLocker
	close  func() error
}

func openStore(ctx context.Context, c *config.Config) (*backing, error) {
	b := &backing{close: func() error { return nil }}
	switch c.Store.Backend {
	case config.BackendMemory:
		b.store = memory.NewStore()
	case config.BackendFile:
		b.store = file.New(filepath.Join(c.Store.Dir, "collections"))
	case config.BackendRedis:
		client := backend.NewClient(&backend.Options{
			Addr:     c.Store.Redis.Addr,
			Password: c.Store.Redis.Password,
			DB:       c.Store.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", c.Store.Redis.Addr, err)
		}
		opts := []redis.Option{redis.WithPrefix(c.Store.Redis.Prefix)}
		if c.Store.Redis.TTL > 0 {
			opts = append(opts, redis.WithTTL(c.Store.Redis.TTL))
		}
		store := redis.NewFromClient(client, opts...)
		b.store = store
		b.close = store.Close
		if c.Store.Redis.Lock {
			b.locker = redis.NewLocker(client, c.Store.Redis.Prefix)
		}
	case config.BackendPostgres:
		store, err := postgres.Open(ctx, c.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		b.store = store
		b.close = store.Close
	default:
		return nil, fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	active, fallback, err := c.EncryptionKeys()
	if err != nil {
		_ = b.close()
		return nil, err
	}
	if active != nil {
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		})
		if err != nil {
			_ = b.close()
			return nil, fmt.Errorf("failed to configure encryption: %w", err)
		}
		b.store = middleware.Chain(b.store, enc)
	}
	return b, nil
}

func loadWorkflow(path string) (*workflow.Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workflow: %w", err)
	}
	defer f.Close()
	return workflow.ParseDefinition(f)
}

func turnOptions(c *config.Config) nodes.TurnOptions {
	return nodes.TurnOptions{
		RecentTurns:  c.Turn.RecentTurns,
		LoreWindow:   c.Turn.LoreWindow,
		PresetID:     c.Turn.PresetID,
		Model:        c.LLM.Model,
		Temperature:  c.LLM.Temperature,
		MaxTokens:    c.LLM.MaxTokens,
		MaxInputSize: c.Turn.MaxInputSize,
	}
}

// newApp wires the engine described by c.
func newApp(ctx context.Context, c *config.Config, log *slog.Logger) (*app, error) {
	gen, err := llm.New(llm.Config{
		Provider: c.LLM.Provider,
		APIKey:   c.LLM.APIKey,
		Model:    c.LLM.Model,
		BaseURL:  c.LLM.BaseURL,
	})
	if err != nil {
		return nil, err
	}

	b, err := openStore(ctx, c)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	opts := []taleweave.Option{
		taleweave.WithGenerator(gen),
		taleweave.WithLogger(log),
		taleweave.WithLifecycleHooks(m.Hooks().Merge(metrics.LogHooks(log))),
		taleweave.WithTurnOptions(turnOptions(c)),
		taleweave.WithSummaryRefresh(c.Turn.SummaryRefresh),
	}
	if b.locker != nil {
		opts = append(opts, taleweave.WithLocker(b.locker))
	}
	if c.Turn.Workflow != "" {
		def, err := loadWorkflow(c.Turn.Workflow)
		if err != nil {
			_ = b.close()
			return nil, err
		}
		opts = append(opts, taleweave.WithWorkflowDefinition(def))
	}

	engine, err := taleweave.New(b.store, opts...)
	if err != nil {
		_ = b.close()
		return nil, err
	}

	log.Debug("engine ready",
		"store", c.Store.Backend,
		"llm", c.LLM.Provider,
		"workflow", engine.Workflow().Name(),
	)
	return &app{Engine: engine, Metrics: m, closers: []func() error{b.close}}, nil
}

// Close waits for background summaries and releases the store.
func (a *app) Close() error {
	a.Engine.Wait()
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
