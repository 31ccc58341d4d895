// Package classifier 根据地理位置记录和User-Agent计算VPN、威胁等级、连接类型等启发式信号
package classifier

import (
	"strings"
	"sync"

	"github.com/nsxzhou1114/shock-api/internal/config"
)

// Policy 关键字规则表，全部按小写子串匹配
type Policy struct {
	VPNKeywords []string
	HostingOrgs []string
	BotTokens   []string
}

// DefaultPolicy 内置规则表
func DefaultPolicy() Policy {
	return Policy{
		VPNKeywords: []string{
			"vpn", "nordvpn", "expressvpn", "surfshark", "cyberghost", "protonvpn",
			"mullvad", "windscribe", "tunnelbear", "ipvanish", "purevpn", "hide.me",
			"private internet access", "hotspot shield", "proxy", "tor exit",
		},
		HostingOrgs: []string{
			"amazon", "aws", "google cloud", "microsoft", "azure", "digitalocean",
			"linode", "akamai", "vultr", "choopa", "ovh", "hetzner", "cloudflare",
			"oracle cloud", "alibaba", "tencent cloud", "contabo", "leaseweb", "scaleway",
		},
		BotTokens: []string{
			"bot", "crawler", "spider", "curl", "wget", "python", "headless",
			"phantom", "selenium", "puppeteer", "playwright", "scrapy",
			"go-http-client", "java/", "httpclient", "postman",
		},
	}
}

// PolicyFromConfig 用配置覆盖内置规则，未配置的列表保留默认值
func PolicyFromConfig(cfg config.ClassifierConfig) Policy {
	p := DefaultPolicy()
	if len(cfg.VPNKeywords) > 0 {
		p.VPNKeywords = lowerAll(cfg.VPNKeywords)
	}
	if len(cfg.HostingOrgs) > 0 {
		p.HostingOrgs = lowerAll(cfg.HostingOrgs)
	}
	if len(cfg.BotTokens) > 0 {
		p.BotTokens = lowerAll(cfg.BotTokens)
	}
	return p
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Classifier 持有可热更新的规则表
type Classifier struct {
	mu     sync.RWMutex
	policy Policy
}

// New 创建分类器
func New(p Policy) *Classifier {
	return &Classifier{policy: p}
}

// Policy 返回当前规则表
func (c *Classifier) Policy() Policy {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.policy
}

// SetPolicy 替换规则表
func (c *Classifier) SetPolicy(p Policy) {
	c.mu.Lock()
	c.policy = p
	c.mu.Unlock()
}

// WatchConfig 配置文件变化时重新加载规则表
func (c *Classifier) WatchConfig() {
	config.OnChange(func(cfg *config.Config) {
		c.SetPolicy(PolicyFromConfig(cfg.Classifier))
	})
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if t != "" && strings.Contains(s, t) {
			return true
		}
	}
	return false
}
