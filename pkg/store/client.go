package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Client provides record persistence, catalog access and structure reads against Redis.
// The client holds no state besides the connection and is safe for concurrent use.
type Client struct {
	rdb redis.UniversalClient
}

// NewClient creates a client from Redis connection options.
func NewClient(redisOpts *redis.Options) (*Client, error) {
	if redisOpts == nil {
		return nil, fmt.Errorf("redis options cannot be nil")
	}
	return &Client{rdb: redis.NewClient(redisOpts)}, nil
}

// NewClientFromRedis wraps an existing Redis client. Closing the returned client closes rdb.
func NewClientFromRedis(rdb redis.UniversalClient) *Client {
	return &Client{rdb: rdb}
}

// Redis returns the underlying command interface used for structure reads.
func (c *Client) Redis() redis.UniversalClient {
	return c.rdb
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
