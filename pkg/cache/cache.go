package cache

import (
	"context"
	"time"
)

// Cache 缓存接口
type Cache interface {
	// Get 获取缓存
	Get(ctx context.Context, key string) (string, error)

	// Set 设置缓存
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error

	// Delete 删除缓存
	Delete(ctx context.Context, keys ...string) error

	// GetJSON 获取JSON格式的缓存并反序列化，未命中时返回 redis.Nil
	GetJSON(ctx context.Context, key string, dest interface{}) error

	// SetJSON 序列化为JSON并设置缓存
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error

	// Close 关闭连接
	Close() error
}

// 缓存键
const (
	DashboardStatsKey    = "stats:dashboard"   // 仪表盘统计
	VisitSummaryKey      = "stats:visits:hour" // 最近一小时访问摘要
	BloomFilterDeviceKey = "bloom:device:seen" // 设备指纹布隆过滤器
)

// 过期时间
const (
	DashboardStatsExpiration = 30 * time.Second
	VisitSummaryExpiration   = 2 * time.Hour
	BloomFilterExpiration    = 24 * time.Hour
)
