package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 设备指纹过滤器容量与误判率
const (
	deviceFilterCapacity  = 1000000
	deviceFilterErrorRate = 0.01
)

// Manager 缓存管理器，Redis不可用时 Cache 返回 nil，布隆过滤器仅在内存中工作
type Manager struct {
	cache   Cache
	devices *RedisBloomFilter
	logger  *zap.SugaredLogger
	mutex   sync.RWMutex
}

// NewManager 创建缓存管理器，client 可为空
func NewManager(client *redis.Client, logger *zap.SugaredLogger) *Manager {
	m := &Manager{
		devices: NewRedisBloomFilter(client, BloomFilterDeviceKey, deviceFilterCapacity, deviceFilterErrorRate),
		logger:  logger,
	}
	if client != nil {
		m.cache = NewRedisCache(client)
	}
	return m
}

// Initialize 加载布隆过滤器快照，并用数据库中已有的设备指纹预热
func (m *Manager) Initialize(ctx context.Context, db *gorm.DB) error {
	if err := m.devices.LoadFromRedis(ctx); err != nil {
		m.logger.Warnf("加载设备布隆过滤器快照失败: %v", err)
	}
	if db == nil {
		return nil
	}

	var hashes []string
	if err := db.WithContext(ctx).Table("visitors").
		Where("device_hash <> ''").
		Distinct().
		Pluck("device_hash", &hashes).Error; err != nil {
		return fmt.Errorf("查询设备指纹失败: %w", err)
	}
	m.devices.BatchAdd(ctx, hashes)
	m.logger.Infof("预热设备布隆过滤器完成，添加了 %d 个设备指纹", len(hashes))
	return nil
}

// GetCache 获取基础缓存接口，Redis不可用时为 nil
func (m *Manager) GetCache() Cache {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.cache
}

// GetDeviceFilter 获取设备指纹布隆过滤器
func (m *Manager) GetDeviceFilter() BloomFilter {
	return m.devices
}

// SaveBloomFilters 保存布隆过滤器到Redis
func (m *Manager) SaveBloomFilters(ctx context.Context) error {
	return m.devices.SaveToRedis(ctx)
}

// Close 保存快照并关闭缓存连接
func (m *Manager) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := m.devices.SaveToRedis(context.Background()); err != nil {
		m.logger.Warnf("保存布隆过滤器失败: %v", err)
	}
	if m.cache == nil {
		return nil
	}
	if err := m.cache.Close(); err != nil {
		return fmt.Errorf("关闭缓存失败: %w", err)
	}
	m.cache = nil
	return nil
}
