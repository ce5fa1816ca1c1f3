package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash holding one JSON-encoded Restaurant per field.
const DefaultRedisKey = "restaurants"

// RedisCatalog reads restaurants from a Redis hash: field = id, value = JSON.
type RedisCatalog struct {
	client *redis.Client
	key    string
}

// NewRedisCatalog creates a catalog over the given hash key. An empty key
// means DefaultRedisKey.
func NewRedisCatalog(client *redis.Client, key string) *RedisCatalog {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisCatalog{client: client, key: key}
}

func (c *RedisCatalog) List(ctx context.Context) ([]Restaurant, error) {
	raw, err := c.client.HGetAll(ctx, c.key).Result()
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}

	out := make([]Restaurant, 0, len(raw))
	for id, data := range raw {
		r, err := decode(id, data)
		if err != nil {
			return nil, fmt.Errorf("catalog: list: %w", err)
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *RedisCatalog) Get(ctx context.Context, id string) (Restaurant, error) {
	data, err := c.client.HGet(ctx, c.key, id).Result()
	if errors.Is(err, redis.Nil) {
		return Restaurant{}, ErrNotFound
	}
	if err != nil {
		return Restaurant{}, fmt.Errorf("catalog: get %s: %w", id, err)
	}
	r, err := decode(id, data)
	if err != nil {
		return Restaurant{}, fmt.Errorf("catalog: get: %w", err)
	}
	return r, nil
}

// Put writes a restaurant. Used by seeding tools and tests; the fee cache never writes.
func (c *RedisCatalog) Put(ctx context.Context, r Restaurant) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return c.client.HSet(ctx, c.key, r.ID, data).Err()
}

func decode(id, data string) (Restaurant, error) {
	var r Restaurant
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return Restaurant{}, fmt.Errorf("decode %s: %w", id, err)
	}
	// the hash field is authoritative
	r.ID = id
	return r, nil
}
