package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/nsxzhou1114/shock-api/internal/geo"
	"github.com/nsxzhou1114/shock-api/internal/model"
	"github.com/nsxzhou1114/shock-api/pkg/idgen"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	if err := idgen.Init("2024-01-01", 1); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

var nopLogger = zap.NewNop().Sugar()

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "shock.db")), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, model.InitTables(db))
	return db
}

// fakeResolver 按IP返回预设结果，未预设的IP返回 ErrAllProvidersFailed
type fakeResolver struct {
	records map[string]*geo.Record
	calls   []string
	mu      sync.Mutex
}

func (f *fakeResolver) Resolve(ctx context.Context, ip string) (*geo.Record, error) {
	f.mu.Lock()
	f.calls = append(f.calls, ip)
	f.mu.Unlock()
	if rec, ok := f.records[ip]; ok {
		copied := *rec
		return &copied, nil
	}
	return nil, geo.ErrAllProvidersFailed
}

// memoryCache 内存实现的 cache.Cache
type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (m *memoryCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return string(v), nil
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case string:
		m.data[key] = []byte(v)
	case []byte:
		m.data[key] = v
	default:
		return errors.New("unsupported value")
	}
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	v, err := m.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(v), dest)
}

func (m *memoryCache) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return m.Set(ctx, key, b, expiration)
}

func (m *memoryCache) Close() error { return nil }
