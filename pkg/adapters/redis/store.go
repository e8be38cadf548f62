package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/taleweave/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "taleweave:"

// Store implements ports.KVStore using Redis.
// Collections are JSON strings indexed in a sorted set; blobs are raw strings.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for collections and blobs.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Client exposes the underlying client so a Locker can share the connection pool.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) collectionKey(collection string) string {
	return s.prefix + "col:" + collection
}

func (s *Store) blobKey(key string) string {
	return s.prefix + "blob:" + key
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Read decodes the collection into dst.
func (s *Store) Read(ctx context.Context, collection string, dst any) (bool, error) {
	val, err := s.client.Get(ctx, s.collectionKey(collection)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get from redis: %w", err)
	}

	if err := json.Unmarshal(val, dst); err != nil {
		return false, fmt.Errorf("failed to unmarshal collection %s: %w", collection, err)
	}
	return true, nil
}

// Write replaces the collection and records it in the index.
func (s *Store) Write(ctx context.Context, collection string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal collection %s: %w", collection, err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.collectionKey(collection), data, s.ttl)

	// Score = expiry time; far future when there is no TTL.
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: collection,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// GetBlob returns the blob stored under key.
func (s *Store) GetBlob(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.blobKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get blob from redis: %w", err)
	}
	return val, nil
}

// SetBlob stores data under key.
func (s *Store) SetBlob(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, s.blobKey(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save blob to redis: %w", err)
	}
	return nil
}

// DeleteBlob removes the blob.
func (s *Store) DeleteBlob(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.blobKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete blob from redis: %w", err)
	}
	return nil
}

// Collections returns the names of live collections, pruning expired index entries first.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired collections: %w", err)
	}

	names, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return names, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
