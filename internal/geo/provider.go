package geo

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Provider 地理位置服务商
type Provider interface {
	Name() string
	Lookup(ctx context.Context, ip string) (*Record, error)
}

// maxBodySize 服务商响应体上限
const maxBodySize = 1 << 20

// httpProvider 基于HTTP接口的服务商，由请求构造函数和响应归一化函数组成
type httpProvider struct {
	name   string
	client *http.Client
	// url 构造查询地址
	url func(ip string) string
	// parse 识别服务商自己的错误标识，并把响应映射为统一记录
	parse func(ip string, body []byte) (*Record, error)
}

// Name 返回服务商名称
func (p *httpProvider) Name() string {
	return p.name
}

// Lookup 查询IP地理位置
func (p *httpProvider) Lookup(ctx context.Context, ip string) (*Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url(ip), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%s: 创建请求失败: %w", p.name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: 请求失败: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: 返回状态码 %d", p.name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%s: 读取响应失败: %w", p.name, err)
	}

	record, err := p.parse(ip, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.name, err)
	}
	record.Source = p.name
	return record.fillDefaults(), nil
}
