package cache

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/redis/go-redis/v9"
)

// BloomFilter 布隆过滤器接口
type BloomFilter interface {
	// TestAndAdd 返回元素此前是否可能存在，并将其加入过滤器
	TestAndAdd(ctx context.Context, element string) bool

	// Test 测试元素是否可能存在
	Test(ctx context.Context, element string) bool

	// BatchAdd 批量添加元素
	BatchAdd(ctx context.Context, elements []string)

	// ApproximatedSize 估算已加入的元素数量
	ApproximatedSize() uint32

	// SaveToRedis 保存布隆过滤器到Redis
	SaveToRedis(ctx context.Context) error

	// LoadFromRedis 从Redis加载布隆过滤器
	LoadFromRedis(ctx context.Context) error
}

// RedisBloomFilter 内存布隆过滤器，定期以快照形式保存到Redis。
// client 为空时只在内存中工作。
type RedisBloomFilter struct {
	filter    *bloom.BloomFilter
	redisKey  string
	client    *redis.Client
	mutex     sync.RWMutex
	capacity  uint    // 预期元素数量
	errorRate float64 // 误判率
}

// NewRedisBloomFilter 创建Redis布隆过滤器
func NewRedisBloomFilter(client *redis.Client, redisKey string, capacity uint, errorRate float64) *RedisBloomFilter {
	return &RedisBloomFilter{
		filter:    bloom.NewWithEstimates(capacity, errorRate),
		redisKey:  redisKey,
		client:    client,
		capacity:  capacity,
		errorRate: errorRate,
	}
}

// TestAndAdd 返回元素此前是否可能存在，并将其加入过滤器
func (bf *RedisBloomFilter) TestAndAdd(ctx context.Context, element string) bool {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	return bf.filter.TestAndAddString(element)
}

// Test 测试元素是否可能存在
func (bf *RedisBloomFilter) Test(ctx context.Context, element string) bool {
	bf.mutex.RLock()
	defer bf.mutex.RUnlock()

	return bf.filter.TestString(element)
}

// BatchAdd 批量添加元素
func (bf *RedisBloomFilter) BatchAdd(ctx context.Context, elements []string) {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	for _, element := range elements {
		bf.filter.AddString(element)
	}
}

// ApproximatedSize 估算已加入的元素数量
func (bf *RedisBloomFilter) ApproximatedSize() uint32 {
	bf.mutex.RLock()
	defer bf.mutex.RUnlock()

	return bf.filter.ApproximatedSize()
}

// SaveToRedis 保存布隆过滤器到Redis
func (bf *RedisBloomFilter) SaveToRedis(ctx context.Context) error {
	if bf.client == nil {
		return nil
	}

	bf.mutex.RLock()
	data, err := bf.filter.GobEncode()
	bf.mutex.RUnlock()
	if err != nil {
		return fmt.Errorf("编码布隆过滤器失败: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	return bf.client.Set(ctx, bf.redisKey, encoded, BloomFilterExpiration).Err()
}

// LoadFromRedis 从Redis加载布隆过滤器，快照不存在时保留当前过滤器
func (bf *RedisBloomFilter) LoadFromRedis(ctx context.Context) error {
	if bf.client == nil {
		return nil
	}

	encoded, err := bf.client.Get(ctx, bf.redisKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("读取布隆过滤器快照失败: %w", err)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("解码布隆过滤器快照失败: %w", err)
	}

	filter := &bloom.BloomFilter{}
	if err := filter.GobDecode(data); err != nil {
		return fmt.Errorf("反序列化布隆过滤器失败: %w", err)
	}

	bf.mutex.Lock()
	bf.filter = filter
	bf.mutex.Unlock()
	return nil
}
