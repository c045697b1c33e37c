package cache

import (
	"context"
	"fmt"
	"time"

	"campuscoin/internal/config"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// InitRedis 创建 Redis 客户端并探活，账户锁依赖它
func InitRedis(cfg *config.RedisConfig, log zerolog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}

	log.Info().Str("addr", client.Options().Addr).Msg("Redis 连接成功")
	return client, nil
}
