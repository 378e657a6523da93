package questionbank

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abhisek/examprep/internal/docstore"
	"github.com/abhisek/examprep/internal/question"
)

// NameCache holds display names keyed by collection and id.
type NameCache interface {
	// GetNames returns the cached names among ids. Misses are omitted.
	GetNames(ctx context.Context, collection string, ids []string) (map[string]string, error)
	SetNames(ctx context.Context, collection string, names map[string]string) error
}

// NopCache caches nothing.
type NopCache struct{}

func (NopCache) GetNames(context.Context, string, []string) (map[string]string, error) {
	return nil, nil
}

func (NopCache) SetNames(context.Context, string, map[string]string) error { return nil }

// RedisNameCache stores names as plain string keys with a TTL.
type RedisNameCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisNameCache wraps client. A zero ttl defaults to one hour.
func NewRedisNameCache(client *redis.Client, ttl time.Duration) *RedisNameCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisNameCache{client: client, ttl: ttl}
}

func nameKey(collection, id string) string {
	return fmt.Sprintf("examprep:name:%s:%s", collection, id)
}

func (c *RedisNameCache) GetNames(ctx context.Context, collection string, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = nameKey(collection, id)
	}
	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	out := make(map[string]string, len(ids))
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[ids[i]] = s
		}
	}
	return out, nil
}

func (c *RedisNameCache) SetNames(ctx context.Context, collection string, names map[string]string) error {
	if len(names) == 0 {
		return nil
	}
	pipe := c.client.Pipeline()
	for id, name := range names {
		pipe.Set(ctx, nameKey(collection, id), name, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set names: %w", err)
	}
	return nil
}

// loadNames resolves ids to display names: cache first, then one bulk
// query for the misses. Cache failures fall through to the store.
func loadNames(ctx context.Context, cache NameCache, store docstore.Store, collection string, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	cached, err := cache.GetNames(ctx, collection, ids)
	if err == nil {
		for id, n := range cached {
			names[id] = n
		}
	}

	var missing []string
	for _, id := range ids {
		if _, ok := names[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return names, nil
	}

	docs, err := store.Query(ctx, collection, docstore.Query{
		Filters: []docstore.Filter{docstore.Where(docstore.IDField, docstore.OpIn, missing)},
	})
	if err != nil {
		return names, fmt.Errorf("load %s names: %w", collection, err)
	}

	fresh := make(map[string]string, len(docs))
	for _, d := range docs {
		fresh[d.ID] = d.String(question.FieldName)
		names[d.ID] = fresh[d.ID]
	}
	_ = cache.SetNames(ctx, collection, fresh)
	return names, nil
}
