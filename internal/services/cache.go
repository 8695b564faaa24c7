package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
)

// VectorCache is a content-addressed key-value store for embedding vectors.
// Keys already encode the model and input text, so entries are immutable and
// duplicate writes are idempotent; concurrent writers race benignly.
type VectorCache interface {
	Get(ctx context.Context, key string) ([]float32, bool)
	Put(ctx context.Context, key string, vector []float32) error
}

// CacheKey derives the content address for a (model, text) pair. Including
// the model name keeps vectors from different models from colliding.
func CacheKey(modelName, text string) string {
	h := sha256.New()
	h.Write([]byte(modelName))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

type diskVectorCache struct {
	dir string
}

// NewDiskVectorCache stores one JSON-encoded vector per key under dir.
// Entries persist indefinitely; there is no TTL and no invalidation beyond
// removing the directory.
func NewDiskVectorCache(dir string) (VectorCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create embedding cache dir: %w", err)
	}
	return &diskVectorCache{dir: dir}, nil
}

func (c *diskVectorCache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

func (c *diskVectorCache) Get(_ context.Context, key string) ([]float32, bool) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}

	var vector []float32
	if err := json.Unmarshal(data, &vector); err != nil {
		return nil, false
	}
	return vector, true
}

func (c *diskVectorCache) Put(_ context.Context, key string, vector []float32) error {
	data, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("failed to encode vector: %w", err)
	}

	// Write-then-rename so a concurrent reader never sees a partial entry.
	tmp := c.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := os.Rename(tmp, c.path(key)); err != nil {
		return fmt.Errorf("failed to publish cache entry: %w", err)
	}
	return nil
}

type redisVectorCache struct {
	client *redis.Client
	prefix string
}

// NewRedisVectorCache keeps the same content-addressed contract on a shared
// redis instance. No TTL: entries live until flushed manually.
func NewRedisVectorCache(addr string) VectorCache {
	return &redisVectorCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		prefix: "embedding:",
	}
}

func (c *redisVectorCache) Get(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}

	var vector []float32
	if err := json.Unmarshal(data, &vector); err != nil {
		return nil, false
	}
	return vector, true
}

func (c *redisVectorCache) Put(ctx context.Context, key string, vector []float32) error {
	data, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("failed to encode vector: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}
