// Package redis caches extraction results keyed by the source page's DOM
// hash. When the portal markup has not changed since the last run, the
// cached schema document is served instead of rerunning the pipeline.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/config"
	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/domain"
)

// Cache provides Redis caching for schema documents
type Cache struct {
	client *redis.Client
}

// Key prefixes for different cache types
const (
	PrefixSchema  = "schema:"
	PrefixDOMHash = "domhash:"
)

// Default TTLs
const (
	SchemaTTL  = 24 * time.Hour
	DOMHashTTL = 1 * time.Hour
)

// New creates a new Redis cache client
func New(cfg config.RedisConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// schemaKey scopes a cached schema to one source page and markup revision
func schemaKey(source, domHash string) string {
	return PrefixSchema + source + ":" + domHash
}

// GetSchema retrieves a cached schema document for a source and DOM hash.
// A cache miss returns nil without error.
func (c *Cache) GetSchema(ctx context.Context, source, domHash string) (*domain.FormSchema, error) {
	data, err := c.client.Get(ctx, schemaKey(source, domHash)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var schema domain.FormSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, err
	}

	return &schema, nil
}

// SetSchema caches a schema document under its source and DOM hash
func (c *Cache) SetSchema(ctx context.Context, source, domHash string, schema *domain.FormSchema) error {
	data, err := json.Marshal(schema)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, schemaKey(source, domHash), data, SchemaTTL).Err()
}

// InvalidateSchema removes all cached schemas for a source
func (c *Cache) InvalidateSchema(ctx context.Context, source string) error {
	return c.deletePattern(ctx, PrefixSchema+source+":*")
}

// GetLastDOMHash returns the most recently observed DOM hash for a source,
// or empty on a miss
func (c *Cache) GetLastDOMHash(ctx context.Context, source string) (string, error) {
	hash, err := c.client.Get(ctx, PrefixDOMHash+source).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", err
	}
	return hash, nil
}

// SetLastDOMHash records the DOM hash observed for a source
func (c *Cache) SetLastDOMHash(ctx context.Context, source, domHash string) error {
	return c.client.Set(ctx, PrefixDOMHash+source, domHash, DOMHashTTL).Err()
}

func (c *Cache) deletePattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}

	if len(keys) > 0 {
		return c.client.Del(ctx, keys...).Err()
	}

	return nil
}
