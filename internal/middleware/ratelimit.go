package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nsxzhou1114/shock-api/pkg/response"
	"golang.org/x/time/rate"
)

// limiterIdleTTL 超过该时长未访问的IP限流器会被清理
const limiterIdleTTL = 10 * time.Minute

type visitorLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter 按客户端IP的令牌桶限流
type IPRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*visitorLimiter
	rps      rate.Limit
	burst    int
	lastGC   time.Time
	now      func() time.Time
}

// NewIPRateLimiter 创建限流器
func NewIPRateLimiter(rps float64, burst int) *IPRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &IPRateLimiter{
		limiters: make(map[string]*visitorLimiter),
		rps:      rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
	}
}

// Allow 判断该IP本次请求是否放行
func (l *IPRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.lastGC.IsZero() {
		l.lastGC = now
	}
	if now.Sub(l.lastGC) > limiterIdleTTL {
		for k, v := range l.limiters {
			if now.Sub(v.lastSeen) > limiterIdleTTL {
				delete(l.limiters, k)
			}
		}
		l.lastGC = now
	}

	v, ok := l.limiters[ip]
	if !ok {
		v = &visitorLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// RateLimit 限流中间件，按 gin 的 ClientIP 计数。
// 只有来自可信代理的转发头才会被采信，未配置可信代理时使用连接的对端地址。
func RateLimit(l *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			response.TooManyRequests(c, "请求过于频繁，请稍后再试")
			return
		}
		c.Next()
	}
}
