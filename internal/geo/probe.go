package geo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// ErrProbeFailed 无法获取本机公网IP
var ErrProbeFailed = errors.New("公网IP探测失败")

// DefaultProbeURL 公网IP回显服务
const DefaultProbeURL = "https://api.ipify.org?format=json"

// Prober 公网IP探测器
type Prober struct {
	client  *http.Client
	url     string
	timeout time.Duration
}

// NewProber 创建公网IP探测器，timeout 为单次探测超时
func NewProber(client *http.Client, url string, timeout time.Duration) *Prober {
	if url == "" {
		url = DefaultProbeURL
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Prober{client: client, url: url, timeout: timeout}
}

// PublicIP 查询出口公网IP，支持 {"ip": "..."} 和纯文本两种响应
func (p *Prober) PublicIP(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: 返回状态码 %d", ErrProbeFailed, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}

	ip := string(bytes.TrimSpace(body))
	var payload struct {
		IP string `json:"ip"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.IP != "" {
		ip = payload.IP
	}
	if net.ParseIP(ip) == nil {
		return "", fmt.Errorf("%w: 无效的响应 %q", ErrProbeFailed, ip)
	}
	return ip, nil
}
