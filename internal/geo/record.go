package geo

// Unknown 服务商未提供字段时的默认值
const Unknown = "Unknown"

// 记录来源
const (
	SourcePlaceholder = "placeholder"
	SourceFallback    = "fallback"
)

// Record 各服务商响应归一化后的地理位置记录
type Record struct {
	IP          string  `json:"ip"`
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
	Region      string  `json:"region"`
	City        string  `json:"city"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Timezone    string  `json:"timezone"`
	ISP         string  `json:"isp"`
	Org         string  `json:"org"`
	AS          string  `json:"as"`
	Mobile      bool    `json:"mobile"`
	Proxy       bool    `json:"proxy"`
	Hosting     bool    `json:"hosting"`
	// Threat 服务商给出的威胁等级，未提供时为空
	Threat string `json:"threat,omitempty"`
	// Source 产生该记录的服务商名称
	Source string `json:"source"`
}

// fillDefaults 将空字符串字段替换为 Unknown
func (r *Record) fillDefaults() *Record {
	for _, f := range []*string{&r.Country, &r.CountryCode, &r.Region, &r.City, &r.Timezone, &r.ISP, &r.Org, &r.AS} {
		if *f == "" {
			*f = Unknown
		}
	}
	return r
}

// Placeholder 内网地址且无法探测公网IP时使用的演示位置
func Placeholder(ip string) *Record {
	return &Record{
		IP:          ip,
		Country:     "United States",
		CountryCode: "US",
		Region:      "California",
		City:        "San Francisco",
		Latitude:    37.7749,
		Longitude:   -122.4194,
		Timezone:    "America/Los_Angeles",
		ISP:         "Local Network",
		Org:         "Local Network",
		AS:          Unknown,
		Source:      SourcePlaceholder,
	}
}

// Fallback 所有服务商均失败时调用方使用的静态记录
func Fallback(ip string) *Record {
	return (&Record{IP: ip, Source: SourceFallback}).fillDefaults()
}
