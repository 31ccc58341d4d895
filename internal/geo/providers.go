package geo

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// 内置在线服务商名称
const (
	NameIPAPI   = "ip-api"
	NameIPAPICo = "ipapi.co"
	NameIPWhois = "ipwho.is"
)

// 内置服务商默认地址
const (
	IPAPIBaseURL   = "http://ip-api.com"
	IPAPICoBaseURL = "https://ipapi.co"
	IPWhoisBaseURL = "https://ipwho.is"
)

const ipAPIFields = "status,message,country,countryCode,regionName,city,lat,lon,timezone,isp,org,as,mobile,proxy,hosting,query"

type ipAPIResponse struct {
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	RegionName  string  `json:"regionName"`
	City        string  `json:"city"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Timezone    string  `json:"timezone"`
	ISP         string  `json:"isp"`
	Org         string  `json:"org"`
	AS          string  `json:"as"`
	Mobile      bool    `json:"mobile"`
	Proxy       bool    `json:"proxy"`
	Hosting     bool    `json:"hosting"`
	Query       string  `json:"query"`
}

// NewIPAPI 创建 ip-api.com 服务商，status 不为 success 视为失败
func NewIPAPI(client *http.Client, baseURL string) Provider {
	base := strings.TrimRight(baseURL, "/")
	return &httpProvider{
		name:   NameIPAPI,
		client: client,
		url: func(ip string) string {
			return fmt.Sprintf("%s/json/%s?fields=%s", base, url.PathEscape(ip), ipAPIFields)
		},
		parse: func(ip string, body []byte) (*Record, error) {
			var r ipAPIResponse
			if err := json.Unmarshal(body, &r); err != nil {
				return nil, fmt.Errorf("解析响应失败: %w", err)
			}
			if r.Status != "success" {
				return nil, fmt.Errorf("查询失败: %s", r.Message)
			}
			return &Record{
				IP:          firstNonEmpty(r.Query, ip),
				Country:     r.Country,
				CountryCode: r.CountryCode,
				Region:      r.RegionName,
				City:        r.City,
				Latitude:    r.Lat,
				Longitude:   r.Lon,
				Timezone:    r.Timezone,
				ISP:         r.ISP,
				Org:         r.Org,
				AS:          r.AS,
				Mobile:      r.Mobile,
				Proxy:       r.Proxy,
				Hosting:     r.Hosting,
			}, nil
		},
	}
}

type ipAPICoResponse struct {
	IP          string  `json:"ip"`
	Error       bool    `json:"error"`
	Reason      string  `json:"reason"`
	City        string  `json:"city"`
	Region      string  `json:"region"`
	CountryName string  `json:"country_name"`
	CountryCode string  `json:"country_code"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Timezone    string  `json:"timezone"`
	Org         string  `json:"org"`
	ASN         string  `json:"asn"`
}

// NewIPAPICo 创建 ipapi.co 服务商，error 为 true 视为失败
func NewIPAPICo(client *http.Client, baseURL string) Provider {
	base := strings.TrimRight(baseURL, "/")
	return &httpProvider{
		name:   NameIPAPICo,
		client: client,
		url: func(ip string) string {
			return fmt.Sprintf("%s/%s/json/", base, url.PathEscape(ip))
		},
		parse: func(ip string, body []byte) (*Record, error) {
			var r ipAPICoResponse
			if err := json.Unmarshal(body, &r); err != nil {
				return nil, fmt.Errorf("解析响应失败: %w", err)
			}
			if r.Error {
				return nil, fmt.Errorf("查询失败: %s", r.Reason)
			}
			// ipapi.co 不区分 ISP 与组织
			return &Record{
				IP:          firstNonEmpty(r.IP, ip),
				Country:     r.CountryName,
				CountryCode: r.CountryCode,
				Region:      r.Region,
				City:        r.City,
				Latitude:    r.Latitude,
				Longitude:   r.Longitude,
				Timezone:    r.Timezone,
				ISP:         r.Org,
				Org:         r.Org,
				AS:          r.ASN,
			}, nil
		},
	}
}

type ipWhoisResponse struct {
	IP          string  `json:"ip"`
	Success     bool    `json:"success"`
	Message     string  `json:"message"`
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
	Region      string  `json:"region"`
	City        string  `json:"city"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Timezone    struct {
		ID string `json:"id"`
	} `json:"timezone"`
	Connection struct {
		ASN int    `json:"asn"`
		Org string `json:"org"`
		ISP string `json:"isp"`
	} `json:"connection"`
	Security *struct {
		Anonymous bool `json:"anonymous"`
		Proxy     bool `json:"proxy"`
		VPN       bool `json:"vpn"`
		Tor       bool `json:"tor"`
		Hosting   bool `json:"hosting"`
	} `json:"security"`
}

// NewIPWhois 创建 ipwho.is 服务商，success 为 false 视为失败
func NewIPWhois(client *http.Client, baseURL string) Provider {
	base := strings.TrimRight(baseURL, "/")
	return &httpProvider{
		name:   NameIPWhois,
		client: client,
		url: func(ip string) string {
			return fmt.Sprintf("%s/%s", base, url.PathEscape(ip))
		},
		parse: func(ip string, body []byte) (*Record, error) {
			var r ipWhoisResponse
			if err := json.Unmarshal(body, &r); err != nil {
				return nil, fmt.Errorf("解析响应失败: %w", err)
			}
			if !r.Success {
				return nil, fmt.Errorf("查询失败: %s", r.Message)
			}
			rec := &Record{
				IP:          firstNonEmpty(r.IP, ip),
				Country:     r.Country,
				CountryCode: r.CountryCode,
				Region:      r.Region,
				City:        r.City,
				Latitude:    r.Latitude,
				Longitude:   r.Longitude,
				Timezone:    r.Timezone.ID,
				ISP:         r.Connection.ISP,
				Org:         r.Connection.Org,
			}
			if r.Connection.ASN > 0 {
				rec.AS = "AS" + strconv.Itoa(r.Connection.ASN)
			}
			if s := r.Security; s != nil {
				rec.Proxy = s.Proxy || s.VPN || s.Anonymous
				rec.Hosting = s.Hosting
				if s.Tor {
					rec.Threat = "high"
				}
			}
			return rec, nil
		},
	}
}

// errUnknownProvider 配置了未知的服务商名称
var errUnknownProvider = errors.New("未知的地理位置服务商")

// NewBuiltin 按名称创建内置在线服务商
func NewBuiltin(name string, client *http.Client) (Provider, error) {
	switch name {
	case NameIPAPI:
		return NewIPAPI(client, IPAPIBaseURL), nil
	case NameIPAPICo:
		return NewIPAPICo(client, IPAPICoBaseURL), nil
	case NameIPWhois:
		return NewIPWhois(client, IPWhoisBaseURL), nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownProvider, name)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
