package geo

import (
	"context"
	"io"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// breakerProvider 为服务商增加熔断，熔断打开时直接返回错误
type breakerProvider struct {
	Provider
	cb *gobreaker.CircuitBreaker[*Record]
}

// WithBreaker 连续失败 failures 次后熔断 openTimeout 时长
func WithBreaker(p Provider, failures uint32, openTimeout time.Duration, logger *zap.SugaredLogger) Provider {
	if failures == 0 {
		failures = 5
	}
	settings := gobreaker.Settings{
		Name:        p.Name(),
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Warnf("服务商熔断状态变化: %s %s -> %s", name, from, to)
			}
		},
	}
	return &breakerProvider{
		Provider: p,
		cb:       gobreaker.NewCircuitBreaker[*Record](settings),
	}
}

// Lookup 在熔断器保护下查询
func (b *breakerProvider) Lookup(ctx context.Context, ip string) (*Record, error) {
	return b.cb.Execute(func() (*Record, error) {
		return b.Provider.Lookup(ctx, ip)
	})
}

// Close 关闭被包装的服务商
func (b *breakerProvider) Close() error {
	if c, ok := b.Provider.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
