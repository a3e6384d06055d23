// Package redisclient mirrors catalog stock counts into Redis. The mirror
// is advisory: the store stays authoritative and business logic never
// branches on cache contents.
package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/set_stock.lua
var setStockScript string

type Client struct {
	rdb      *redis.Client
	setStock *redis.Script
}

// NewClient creates a new Redis client with the stock script loaded
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

	return &Client{
		rdb:      rdb,
		setStock: redis.NewScript(setStockScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func stockKey(productID int64) string {
	return fmt.Sprintf("stock:%d", productID)
}

// SetStock writes the stock count and the derived in-stock flag atomically
// using the embedded Lua script.
func (c *Client) SetStock(ctx context.Context, productID int64, stock int) error {
	_, err := c.setStock.Run(ctx, c.rdb, []string{stockKey(productID)}, stock).Result()
	if err != nil {
		return fmt.Errorf("set stock script failed: %w", err)
	}
	return nil
}

// GetStock reads the mirrored stock count for a product.
func (c *Client) GetStock(ctx context.Context, productID int64) (stock int, inStock bool, err error) {
	result, err := c.rdb.HGetAll(ctx, stockKey(productID)).Result()
	if err != nil {
		return 0, false, err
	}
	if len(result) == 0 {
		return 0, false, fmt.Errorf("stock not mirrored for product %d", productID)
	}

	stock, err = strconv.Atoi(result["stock"])
	if err != nil {
		return 0, false, fmt.Errorf("bad stock value %q: %w", result["stock"], err)
	}
	return stock, result["in_stock"] == "1", nil
}
