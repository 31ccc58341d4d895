package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRedisBloomFilter_TestAndAdd(t *testing.T) {
	ctx := context.Background()
	bf := NewRedisBloomFilter(nil, BloomFilterDeviceKey, 1000, 0.01)

	assert.False(t, bf.TestAndAdd(ctx, "1x2y3z"))
	assert.True(t, bf.TestAndAdd(ctx, "1x2y3z"))
	assert.True(t, bf.Test(ctx, "1x2y3z"))
	assert.False(t, bf.Test(ctx, "other"))

	bf.BatchAdd(ctx, []string{"a", "b", "c"})
	assert.True(t, bf.Test(ctx, "b"))
	assert.InDelta(t, 4, bf.ApproximatedSize(), 1)
}

func TestRedisBloomFilter_NoRedis(t *testing.T) {
	ctx := context.Background()
	bf := NewRedisBloomFilter(nil, BloomFilterDeviceKey, 1000, 0.01)
	bf.BatchAdd(ctx, []string{"kept"})

	require.NoError(t, bf.SaveToRedis(ctx))
	require.NoError(t, bf.LoadFromRedis(ctx))
	assert.True(t, bf.Test(ctx, "kept"))
}

func TestManager_WithoutRedis(t *testing.T) {
	m := NewManager(nil, zap.NewNop().Sugar())
	require.NoError(t, m.Initialize(context.Background(), nil))

	assert.Nil(t, m.GetCache())
	assert.False(t, m.GetDeviceFilter().TestAndAdd(context.Background(), "device"))
	assert.True(t, m.GetDeviceFilter().Test(context.Background(), "device"))
	assert.NoError(t, m.Close())
}
