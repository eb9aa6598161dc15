package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Client is a thin wrapper around Redis used for the webhook dedup fast
// path and as a cache of pending checkout sessions. The durable record of
// both lives in Postgres; losing Redis only costs a round trip.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// MarkEventSeen records a webhook event id with a TTL covering the payment
// provider's redelivery window. Returns true if this is the first sighting.
func (c *Client) MarkEventSeen(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("webhook:seen:%s", eventID), "1", ttl).Result()
}

// ForgetEvent removes a seen-marker so a redelivery can be retried after a
// downstream failure.
func (c *Client) ForgetEvent(ctx context.Context, eventID string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("webhook:seen:%s", eventID)).Err()
}

// CacheCheckoutSession remembers which checkout session belongs to an order.
func (c *Client) CacheCheckoutSession(ctx context.Context, orderID, sessionID string, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("checkout:order:%s", orderID), sessionID, ttl).Err()
}
