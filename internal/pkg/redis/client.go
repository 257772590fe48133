// internal/pkg/redis/client.go
package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// Client 封装了 go-redis 客户端，提供服务内用到的发布/订阅能力。
type Client struct {
	rdb *goredis.Client
}

// NewClient 创建并连通一个 Redis 客户端。
func NewClient(ctx context.Context, addr string) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &Client{rdb: rdb}, nil
}

// GetClient 暴露底层客户端，供 Pipeline 等高级用法使用。
func (c *Client) GetClient() *goredis.Client {
	return c.rdb
}

// Publish 向指定频道广播一条消息。
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	return c.rdb.Publish(ctx, channel, payload).Err()
}

// Subscribe 订阅指定频道，返回 go-redis 的 PubSub 对象。
func (c *Client) Subscribe(ctx context.Context, channel string) *goredis.PubSub {
	return c.rdb.Subscribe(ctx, channel)
}

// Close 关闭底层连接。
func (c *Client) Close() error {
	return c.rdb.Close()
}
