package classifier

import (
	"strconv"
	"strings"

	"github.com/nsxzhou1114/shock-api/internal/geo"
)

// 威胁等级
const (
	ThreatLow    = "low"
	ThreatMedium = "medium"
	ThreatHigh   = "high"
)

// 连接类型
const (
	ConnectionMobile    = "Mobile"
	ConnectionTablet    = "Tablet"
	ConnectionSmartTV   = "Smart TV"
	ConnectionConsole   = "Gaming Console"
	ConnectionBroadband = "Broadband"
)

var (
	smartTVTokens = []string{"smart-tv", "smarttv", "smart tv", "googletv", "appletv", "hbbtv", "roku", "tizen", "webos", "crkey", "bravia"}
	consoleTokens = []string{"playstation", "xbox", "nintendo"}
)

// Signals 一次访问的全部启发式信号
type Signals struct {
	VPN            bool
	Bot            bool
	ThreatLevel    string
	ConnectionType string
}

// Analyze 计算全部信号
func (c *Classifier) Analyze(rec *geo.Record, ua string) Signals {
	return Signals{
		VPN:            c.IsVPN(rec),
		Bot:            c.IsBot(ua),
		ThreatLevel:    c.ThreatLevel(rec, ua),
		ConnectionType: ConnectionType(rec, ua),
	}
}

// IsVPN ISP/组织命中VPN关键字、组织命中云厂商，或服务商标记了 proxy/hosting
func (c *Classifier) IsVPN(rec *geo.Record) bool {
	if rec == nil {
		return false
	}
	if rec.Proxy || rec.Hosting {
		return true
	}
	p := c.Policy()
	isp := strings.ToLower(rec.ISP)
	org := strings.ToLower(rec.Org)
	return containsAny(isp, p.VPNKeywords) ||
		containsAny(org, p.VPNKeywords) ||
		containsAny(org, p.HostingOrgs)
}

// IsBot User-Agent 命中自动化工具关键字
func (c *Classifier) IsBot(ua string) bool {
	return containsAny(strings.ToLower(ua), c.Policy().BotTokens)
}

// ThreatLevel 服务商给出的非 low 等级优先，其次根据本地信号判定
func (c *Classifier) ThreatLevel(rec *geo.Record, ua string) string {
	if rec != nil && rec.Threat != "" && !strings.EqualFold(rec.Threat, ThreatLow) {
		return rec.Threat
	}
	if c.IsVPN(rec) || c.IsBot(ua) {
		return ThreatMedium
	}
	return ThreatLow
}

// ConnectionType 根据服务商 mobile 标记和 User-Agent 推断连接类型
func ConnectionType(rec *geo.Record, ua string) string {
	lower := strings.ToLower(ua)
	switch {
	case (rec != nil && rec.Mobile) || strings.Contains(lower, "mobile"):
		return ConnectionMobile
	case strings.Contains(lower, "tablet") || strings.Contains(lower, "ipad"):
		return ConnectionTablet
	case containsAny(lower, smartTVTokens):
		return ConnectionSmartTV
	case containsAny(lower, consoleTokens):
		return ConnectionConsole
	default:
		return ConnectionBroadband
	}
}

// DeviceHash 对User-Agent及若干请求头做32位多项式滚动哈希(h = h*31 + b)，输出36进制。
// 各输入之间以 "|" 分隔后再参与计算，避免 ("ab","c") 与 ("a","bc") 这类边界移动得到相同结果，
// 因此结果与直接哈希拼接字符串不同。仅用作设备分组键。
func DeviceHash(ua string, parts ...string) string {
	var h uint32
	feed := func(s string) {
		for i := 0; i < len(s); i++ {
			h = h*31 + uint32(s[i])
		}
	}
	feed(ua)
	for _, p := range parts {
		feed("|")
		feed(p)
	}
	return strconv.FormatUint(uint64(h), 36)
}
