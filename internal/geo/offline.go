package geo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/lionsoul2014/ip2region/binding/golang/xdb"
	"github.com/oschwald/geoip2-golang"
)

// 离线服务商名称
const (
	NameMaxMind   = "maxmind"
	NameIP2Region = "ip2region"
)

// ErrNotFound 离线库中没有该地址
var ErrNotFound = errors.New("离线库中未找到该地址")

// MaxMindProvider 基于 GeoLite2 City/ASN 数据库的离线服务商
type MaxMindProvider struct {
	city *geoip2.Reader
	asn  *geoip2.Reader
}

// NewMaxMind 打开 GeoLite2 数据库，asnPath 可为空
func NewMaxMind(cityPath, asnPath string) (*MaxMindProvider, error) {
	city, err := geoip2.Open(cityPath)
	if err != nil {
		return nil, fmt.Errorf("打开City数据库失败: %w", err)
	}
	p := &MaxMindProvider{city: city}
	if asnPath != "" {
		asn, err := geoip2.Open(asnPath)
		if err != nil {
			city.Close()
			return nil, fmt.Errorf("打开ASN数据库失败: %w", err)
		}
		p.asn = asn
	}
	return p, nil
}

// Name 返回服务商名称
func (p *MaxMindProvider) Name() string {
	return NameMaxMind
}

// Lookup 查询IP地理位置
func (p *MaxMindProvider) Lookup(ctx context.Context, ip string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, fmt.Errorf("%s: 无效的IP地址 %q", NameMaxMind, ip)
	}

	city, err := p.city.City(parsed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", NameMaxMind, err)
	}
	if city.Country.IsoCode == "" {
		return nil, fmt.Errorf("%s: %w", NameMaxMind, ErrNotFound)
	}

	rec := &Record{
		IP:          ip,
		Country:     city.Country.Names["en"],
		CountryCode: city.Country.IsoCode,
		City:        city.City.Names["en"],
		Latitude:    city.Location.Latitude,
		Longitude:   city.Location.Longitude,
		Timezone:    city.Location.TimeZone,
		Proxy:       city.Traits.IsAnonymousProxy,
		Source:      NameMaxMind,
	}
	if len(city.Subdivisions) > 0 {
		rec.Region = city.Subdivisions[0].Names["en"]
	}

	if p.asn != nil {
		if asn, err := p.asn.ASN(parsed); err == nil && asn.AutonomousSystemNumber > 0 {
			rec.ISP = asn.AutonomousSystemOrganization
			rec.Org = asn.AutonomousSystemOrganization
			rec.AS = fmt.Sprintf("AS%d %s", asn.AutonomousSystemNumber, asn.AutonomousSystemOrganization)
		}
	}
	return rec.fillDefaults(), nil
}

// Close 关闭数据库
func (p *MaxMindProvider) Close() error {
	var errs []error
	errs = append(errs, p.city.Close())
	if p.asn != nil {
		errs = append(errs, p.asn.Close())
	}
	return errors.Join(errs...)
}

// IP2RegionProvider 基于 ip2region xdb 的离线服务商，仅支持IPv4
type IP2RegionProvider struct {
	searcher *xdb.Searcher
}

// NewIP2Region 将 xdb 文件整体加载到内存
func NewIP2Region(dbPath string) (*IP2RegionProvider, error) {
	buf, err := xdb.LoadContentFromFile(dbPath)
	if err != nil {
		return nil, fmt.Errorf("加载xdb文件失败: %w", err)
	}
	searcher, err := xdb.NewWithBuffer(buf)
	if err != nil {
		return nil, fmt.Errorf("创建查询器失败: %w", err)
	}
	return &IP2RegionProvider{searcher: searcher}, nil
}

// Name 返回服务商名称
func (p *IP2RegionProvider) Name() string {
	return NameIP2Region
}

// Lookup 查询IP地理位置，结果格式为 国家|区域|省份|城市|ISP
func (p *IP2RegionProvider) Lookup(ctx context.Context, ip string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	region, err := p.searcher.SearchByStr(ip)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", NameIP2Region, err)
	}
	return parseIP2Region(ip, region)
}

// Close 释放查询器
func (p *IP2RegionProvider) Close() error {
	p.searcher.Close()
	return nil
}

func parseIP2Region(ip, region string) (*Record, error) {
	fields := strings.Split(region, "|")
	if len(fields) < 5 {
		return nil, fmt.Errorf("%s: 无法识别的结果 %q", NameIP2Region, region)
	}
	for i, f := range fields {
		if f == "0" {
			fields[i] = ""
		}
	}
	if fields[0] == "" {
		return nil, fmt.Errorf("%s: %w", NameIP2Region, ErrNotFound)
	}
	rec := &Record{
		IP:      ip,
		Country: fields[0],
		Region:  fields[2],
		City:    fields[3],
		ISP:     fields[4],
		Org:     fields[4],
		Source:  NameIP2Region,
	}
	return rec.fillDefaults(), nil
}
