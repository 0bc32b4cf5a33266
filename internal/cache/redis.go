// Package cache wraps Redis for data we can afford to re-fetch, like the
// gateway's bank catalogue. Nothing monetary is ever cached; balances and
// withdrawal state always come from the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTimeout = 2 * time.Second

type Cache struct {
	client *redis.Client
}

func New(redisAddr string, db int) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   db,
	})

	return &Cache{client: client}
}

func (c *Cache) Set(key string, value string, expiration time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	return c.client.Set(ctx, key, value, expiration).Err()
}

// Get returns an empty string, without error, when the key is missing.
func (c *Cache) Get(key string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	value, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return value, err
}

// SetJSON marshals value before storing it under key.
func (c *Cache) SetJSON(key string, value any, expiration time.Duration) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.Set(key, string(encoded), expiration)
}

// GetJSON unmarshals the cached value into dest. It reports false, without
// touching dest, when the key is missing.
func (c *Cache) GetJSON(key string, dest any) (bool, error) {
	value, err := c.Get(key)
	if err != nil || value == "" {
		return false, err
	}

	if err := json.Unmarshal([]byte(value), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	return c.client.Del(ctx, key).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}
