package marketcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "markets:"

// Redis 在多个网关实例之间共享市场列表。
type Redis struct {
	client *redis.Client
}

// NewRedis 包装已有的 redis 客户端。
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Get 读取缓存，键不存在时返回 ok=false。
func (r *Redis) Get(ctx context.Context, exchangeID string) ([]string, bool, error) {
	data, err := r.client.Get(ctx, redisKey(exchangeID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("marketcache: 读取 redis 失败: %w", err)
	}

	var symbols []string
	if err := json.Unmarshal(data, &symbols); err != nil {
		return nil, false, fmt.Errorf("marketcache: 解析缓存失败: %w", err)
	}
	return symbols, true, nil
}

// Set 写入缓存，ttl<=0 表示不过期。
func (r *Redis) Set(ctx context.Context, exchangeID string, symbols []string, ttl time.Duration) error {
	data, err := json.Marshal(symbols)
	if err != nil {
		return fmt.Errorf("marketcache: 序列化失败: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, redisKey(exchangeID), data, ttl).Err(); err != nil {
		return fmt.Errorf("marketcache: 写入 redis 失败: %w", err)
	}
	return nil
}

func redisKey(exchangeID string) string {
	return redisKeyPrefix + exchangeID
}
