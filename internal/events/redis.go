package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisConfig 描述 Redis 发布通道的连接参数。
type RedisConfig struct {
	Address  string
	Username string
	Password string
	DB       int
	Channel  string
}

type redisPublishClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher 通过 Redis PUBLISH 广播事件。
type RedisPublisher struct {
	client  redisPublishClient
	closer  func() error
	channel string
}

// NewRedisPublisher 创建 Redis 发布器，并在启动时检测连通性。
func NewRedisPublisher(ctx context.Context, cfg RedisConfig) (*RedisPublisher, error) {
	if cfg.Address == "" {
		return nil, errors.New("Redis address 不能为空")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return newRedisPublisher(client, client.Close, cfg.Channel), nil
}

func newRedisPublisher(client redisPublishClient, closer func() error, channel string) *RedisPublisher {
	if channel == "" {
		channel = "proofbench:consent-events"
	}
	return &RedisPublisher{client: client, closer: closer, channel: channel}
}

// Publish 实现 Publisher 接口。
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := event.Encode()
	if err != nil {
		return fmt.Errorf("编码事件失败: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("Redis 发布事件失败: %w", err)
	}
	return nil
}

// Name 实现 Publisher 接口。
func (p *RedisPublisher) Name() string { return "redis" }

// Close 关闭 Redis 连接。
func (p *RedisPublisher) Close() error {
	if p == nil || p.closer == nil {
		return nil
	}
	return p.closer()
}
