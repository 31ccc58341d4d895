// Package clientip 从请求头中提取客户端IP。
//
// 请求头由客户端或上游代理提供，可以被伪造，结果只用于展示，不能作为安全边界。
package clientip

import (
	"net"
	"net/http"
	"regexp"
	"strings"
)

// Loopback 无法从请求头解析IP时返回的回环地址
const Loopback = "127.0.0.1"

// headerOrder 按优先级排列的请求头，Forwarded 单独解析
var headerOrder = []string{
	"CF-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
	"X-Client-IP",
	"X-Forwarded",
	"Forwarded-For",
}

var forwardedFor = regexp.MustCompile(`(?i)for=("?)\[?([^";,\]]+)`)

// Resolve 返回优先级最高的非空请求头中的IP，全部缺失时返回 Loopback
func Resolve(h http.Header) string {
	for _, name := range headerOrder {
		if ip := firstEntry(h.Get(name)); ip != "" {
			return ip
		}
	}
	if ip := parseForwarded(h.Get("Forwarded")); ip != "" {
		return ip
	}
	return Loopback
}

// firstEntry 取逗号分隔列表中的第一项
func firstEntry(v string) string {
	if v == "" {
		return ""
	}
	first, _, _ := strings.Cut(v, ",")
	return strings.TrimSpace(first)
}

// parseForwarded 解析 RFC 7239 Forwarded 头中的 for= 参数
func parseForwarded(v string) string {
	if v == "" {
		return ""
	}
	m := forwardedFor.FindStringSubmatch(v)
	if len(m) < 3 {
		return ""
	}
	ip := strings.TrimSpace(m[2])
	// 去掉 IPv4 端口，例如 for="192.0.2.43:47011"
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return ip
}

var privateBlocks = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"100.64.0.0/10",
	"fc00::/7",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}

// IsPrivate 判断是否为内网、回环、链路本地或未指定地址，无法解析的字符串返回false
func IsPrivate(ipStr string) bool {
	ip := net.ParseIP(strings.TrimSpace(ipStr))
	if ip == nil {
		return false
	}
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return true
	}
	for _, block := range privateBlocks {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}
