// Package redis caches embedding vectors in Redis.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.EmbeddingCache = (*Cache)(nil)

const keyPrefix = "clause:embedding:"

// Config holds the Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	// TTL expires entries; zero keeps them forever.
	TTL time.Duration
}

// ConfigFromSettings maps cache settings onto a Config.
func ConfigFromSettings(s domain.CacheSettings) Config {
	return Config{
		Addr:     s.Addr,
		Password: s.Password,
		DB:       s.DB,
		TTL:      s.TTL.Std(),
	}
}

// Cache stores vectors as little-endian float32 blobs.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects and pings the server.
func New(ctx context.Context, cfg Config) (*Cache, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: cache address is required", domain.ErrConfiguration)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck // connection never became usable
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}

	return NewWithClient(client, cfg.TTL), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached vector for model and text.
func (c *Cache) Get(ctx context.Context, model, text string) ([]float32, bool, error) {
	data, err := c.client.Get(ctx, Key(model, text)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading embedding cache: %w", err)
	}

	vec, err := decodeVector(data)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

// Put stores the vector for model and text.
func (c *Cache) Put(ctx context.Context, model, text string, vec []float32) error {
	if err := c.client.Set(ctx, Key(model, text), encodeVector(vec), c.ttl).Err(); err != nil {
		return fmt.Errorf("writing embedding cache: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Key derives the cache key. Texts are hashed so chunk-sized inputs give
// fixed-size keys.
func Key(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return keyPrefix + model + ":" + hex.EncodeToString(sum[:])
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("corrupt cached embedding: %d bytes", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return vec, nil
}
