// Package geo 按顺序调用多个地理位置服务商，将响应归一化为统一记录
package geo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nsxzhou1114/shock-api/internal/clientip"
	"github.com/nsxzhou1114/shock-api/internal/config"
	"github.com/nsxzhou1114/shock-api/internal/metrics"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// ErrAllProvidersFailed 所有服务商均查询失败
var ErrAllProvidersFailed = errors.New("所有地理位置服务商均查询失败")

// DefaultTimeout 单个服务商的默认超时
const DefaultTimeout = 5 * time.Second

// PublicIPProber 内网地址时用于获取出口公网IP
type PublicIPProber interface {
	PublicIP(ctx context.Context) (string, error)
}

// Resolver 地理位置解析器
type Resolver struct {
	providers []Provider
	prober    PublicIPProber
	timeout   time.Duration
	logger    *zap.SugaredLogger
}

// Option 解析器选项
type Option func(*Resolver)

// WithTimeout 设置单个服务商超时
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithProber 设置公网IP探测器
func WithProber(p PublicIPProber) Option {
	return func(r *Resolver) {
		r.prober = p
	}
}

// WithLogger 设置日志
func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver 创建解析器，providers 的顺序即尝试顺序
func NewResolver(providers []Provider, opts ...Option) *Resolver {
	r := &Resolver{
		providers: providers,
		timeout:   DefaultTimeout,
		logger:    zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewFromConfig 根据配置组装服务商链，离线服务商追加在在线服务商之后
func NewFromConfig(cfg config.GeoConfig, client *http.Client, logger *zap.SugaredLogger) (*Resolver, error) {
	var providers []Provider
	for _, name := range cfg.Providers {
		p, err := NewBuiltin(name, client)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	if cfg.MaxMindCityDB != "" {
		p, err := NewMaxMind(cfg.MaxMindCityDB, cfg.MaxMindASNDB)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	if cfg.IP2RegionDB != "" {
		p, err := NewIP2Region(cfg.IP2RegionDB)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	if cfg.Breaker.Enabled {
		for i, p := range providers {
			providers[i] = WithBreaker(p, cfg.Breaker.ConsecutiveFailures, cfg.Breaker.OpenTimeout, logger)
		}
	}

	return NewResolver(providers,
		WithTimeout(cfg.Timeout),
		WithProber(NewProber(client, cfg.ProbeURL, cfg.ProbeTimeout)),
		WithLogger(logger),
	), nil
}

// Providers 返回服务商名称，按尝试顺序
func (r *Resolver) Providers() []string {
	names := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		names = append(names, p.Name())
	}
	return names
}

// Close 关闭持有本地资源的服务商
func (r *Resolver) Close() error {
	var errs []error
	for _, p := range r.providers {
		if c, ok := p.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

// Resolve 解析IP地理位置。
// 内网地址先探测出口公网IP，探测失败返回演示用的占位位置；
// 所有服务商失败时返回 ErrAllProvidersFailed，由调用方决定是否使用 Fallback。
func (r *Resolver) Resolve(ctx context.Context, ip string) (*Record, error) {
	if clientip.IsPrivate(ip) {
		if r.prober == nil {
			metrics.GeoResolutions.WithLabelValues(SourcePlaceholder).Inc()
			return Placeholder(ip), nil
		}
		public, err := r.prober.PublicIP(ctx)
		if err != nil {
			r.logger.Warnf("内网地址 %s 探测公网IP失败，使用占位位置: %v", ip, err)
			metrics.GeoResolutions.WithLabelValues(SourcePlaceholder).Inc()
			return Placeholder(ip), nil
		}
		r.logger.Debugf("内网地址 %s 使用公网IP %s 查询", ip, public)
		ip = public
	}

	rec, err := r.lookupChain(ctx, ip)
	if err != nil {
		return nil, err
	}
	metrics.GeoResolutions.WithLabelValues(rec.Source).Inc()
	return rec, nil
}

// lookupChain 依次尝试每个服务商，首个成功即返回
func (r *Resolver) lookupChain(ctx context.Context, ip string) (*Record, error) {
	var errs []error
	for _, p := range r.providers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		rec, err := r.attempt(ctx, p, ip)
		if err == nil {
			return rec, nil
		}
		r.logger.Warnf("地理位置服务商 %s 查询 %s 失败: %v", p.Name(), ip, err)
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("%w: %w", ErrAllProvidersFailed, errors.Join(errs...))
}

func (r *Resolver) attempt(ctx context.Context, p Provider, ip string) (*Record, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	rec, err := p.Lookup(attemptCtx, ip)
	metrics.GeoProviderLatency.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.GeoProviderAttempts.WithLabelValues(p.Name(), metrics.OutcomeSuccess).Inc()
		return rec, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.GeoProviderAttempts.WithLabelValues(p.Name(), metrics.OutcomeBreakerOpen).Inc()
	case errors.Is(err, context.DeadlineExceeded), errors.Is(attemptCtx.Err(), context.DeadlineExceeded):
		metrics.GeoProviderAttempts.WithLabelValues(p.Name(), metrics.OutcomeTimeout).Inc()
	default:
		metrics.GeoProviderAttempts.WithLabelValues(p.Name(), metrics.OutcomeFailure).Inc()
	}
	return nil, err
}
