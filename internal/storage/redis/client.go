package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"
)

// Config 描述 Redis 连接参数。
type Config struct {
	Address  string
	Username string
	Password string
	DB       int
	Prefix   string
}

const defaultPrefix = "proofbench"

// Dial 创建 go-redis 客户端并检测连通性。
func Dial(ctx context.Context, cfg Config) (*goredis.Client, error) {
	if strings.TrimSpace(cfg.Address) == "" {
		return nil, errors.New("Redis address 不能为空")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return client, nil
}

func keyPrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return defaultPrefix
	}
	return strings.TrimSuffix(prefix, ":")
}
