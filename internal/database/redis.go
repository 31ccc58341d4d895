package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nsxzhou1114/shock-api/internal/config"
	"github.com/nsxzhou1114/shock-api/internal/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis 全局Redis客户端实例
var (
	Redis    *redis.Client
	redisOne sync.Once
)

// InitRedis 初始化Redis连接
func InitRedis() (*redis.Client, error) {
	cfg := config.GlobalConfig.Redis

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("连接redis失败: %w", err)
	}

	logger.Info("redis连接成功", zap.String("addr", cfg.Addr()))
	return client, nil
}

// GetRedis 获取Redis客户端实例，未启用或连接失败时返回nil，调用方需降级处理
func GetRedis() *redis.Client {
	redisOne.Do(func() {
		if !config.GlobalConfig.Redis.Enabled {
			return
		}
		client, err := InitRedis()
		if err != nil {
			logger.Warn("redis不可用，缓存功能降级", zap.Error(err))
			return
		}
		Redis = client
	})
	return Redis
}
