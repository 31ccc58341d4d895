package dto

import "time"

// ScreenInfo 屏幕信息
type ScreenInfo struct {
	Width      int     `json:"width" binding:"omitempty,min=0,max=100000"`
	Height     int     `json:"height" binding:"omitempty,min=0,max=100000"`
	ColorDepth int     `json:"colorDepth" binding:"omitempty,min=0,max=64"`
	PixelRatio float64 `json:"pixelRatio" binding:"omitempty,min=0,max=16"`
}

// ViewportInfo 视口大小
type ViewportInfo struct {
	Width  int `json:"width" binding:"omitempty,min=0,max=100000"`
	Height int `json:"height" binding:"omitempty,min=0,max=100000"`
}

// WebGLInfo WebGL渲染器信息
type WebGLInfo struct {
	Vendor   string `json:"vendor" binding:"omitempty,max=256"`
	Renderer string `json:"renderer" binding:"omitempty,max=256"`
}

// ClientFingerprint 浏览器上报的指纹信息，所有字段可选
type ClientFingerprint struct {
	UserAgent           string        `json:"userAgent" binding:"omitempty,max=1024"`
	Language            string        `json:"language" binding:"omitempty,max=64"`
	Languages           []string      `json:"languages" binding:"omitempty,max=32,dive,max=64"`
	Platform            string        `json:"platform" binding:"omitempty,max=128"`
	Screen              *ScreenInfo   `json:"screen"`
	Viewport            *ViewportInfo `json:"viewport"`
	Timezone            string        `json:"timezone" binding:"omitempty,max=64"`
	TimezoneOffset      *int          `json:"timezoneOffset" binding:"omitempty,min=-900,max=900"`
	CookiesEnabled      *bool         `json:"cookiesEnabled"`
	DoNotTrack          string        `json:"doNotTrack" binding:"omitempty,max=16"`
	HardwareConcurrency int           `json:"hardwareConcurrency" binding:"omitempty,min=0,max=1024"`
	DeviceMemory        float64       `json:"deviceMemory" binding:"omitempty,min=0,max=4096"`
	TouchPoints         int           `json:"touchPoints" binding:"omitempty,min=0,max=256"`
	Canvas              string        `json:"canvas" binding:"omitempty,max=65536"`
	WebGL               *WebGLInfo    `json:"webgl"`
	Fonts               []string      `json:"fonts" binding:"omitempty,max=512,dive,max=128"`
	Plugins             []string      `json:"plugins" binding:"omitempty,max=256,dive,max=256"`
}

// VisitorSummary 本次访问记录摘要
type VisitorSummary struct {
	ID        int64     `json:"id,string"`
	IP        string    `json:"ip"`
	Country   string    `json:"country"`
	City      string    `json:"city"`
	Browser   string    `json:"browser"`
	OS        string    `json:"os"`
	Device    string    `json:"device"`
	CreatedAt time.Time `json:"created_at"`
}

// SecurityAnalysis 安全分析
type SecurityAnalysis struct {
	VPN         bool   `json:"vpn"`
	Proxy       bool   `json:"proxy"`
	Hosting     bool   `json:"hosting"`
	Bot         bool   `json:"bot"`
	ThreatLevel string `json:"threat_level"`
}

// NetworkAnalysis 网络分析
type NetworkAnalysis struct {
	IP             string `json:"ip"`
	PublicIP       string `json:"public_ip"`
	Private        bool   `json:"private"`
	ISP            string `json:"isp"`
	Org            string `json:"org"`
	AS             string `json:"as"`
	ConnectionType string `json:"connection_type"`
	GeoSource      string `json:"geo_source"`
}

// LocationAnalysis 位置分析
type LocationAnalysis struct {
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
	Region      string  `json:"region"`
	City        string  `json:"city"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Timezone    string  `json:"timezone"`
}

// DeviceAnalysis 设备分析
type DeviceAnalysis struct {
	Type                string        `json:"type"`
	Browser             string        `json:"browser"`
	BrowserVersion      string        `json:"browser_version"`
	OS                  string        `json:"os"`
	OSVersion           string        `json:"os_version"`
	Model               string        `json:"model"`
	Platform            string        `json:"platform"`
	Screen              *ScreenInfo   `json:"screen,omitempty"`
	Viewport            *ViewportInfo `json:"viewport,omitempty"`
	HardwareConcurrency int           `json:"hardware_concurrency"`
	DeviceMemory        float64       `json:"device_memory"`
	TouchPoints         int           `json:"touch_points"`
}

// FingerprintAnalysis 指纹分析
type FingerprintAnalysis struct {
	DeviceHash    string `json:"device_hash"`
	Returning     bool   `json:"returning"`
	CanvasPresent bool   `json:"canvas_present"`
	WebGLVendor   string `json:"webgl_vendor"`
	WebGLRenderer string `json:"webgl_renderer"`
	FontCount     int    `json:"font_count"`
	PluginCount   int    `json:"plugin_count"`
	// VisitCount 搜索索引中该设备已记录的访问次数，未启用ES时省略
	VisitCount int64 `json:"visit_count,omitempty"`
}

// PrivacyAnalysis 隐私设置分析
type PrivacyAnalysis struct {
	DoNotTrack       bool     `json:"do_not_track"`
	CookiesEnabled   bool     `json:"cookies_enabled"`
	Language         string   `json:"language"`
	Languages        []string `json:"languages"`
	ClientTimezone   string   `json:"client_timezone"`
	TimezoneMismatch bool     `json:"timezone_mismatch"`
}

// TimingAnalysis 时间信息
type TimingAnalysis struct {
	ServerTime     time.Time `json:"server_time"`
	TimezoneOffset *int      `json:"timezone_offset,omitempty"`
	ProcessingMs   int64     `json:"processing_ms"`
}

// Analysis 访问分析结果
type Analysis struct {
	Security       SecurityAnalysis    `json:"security"`
	Network        NetworkAnalysis     `json:"network"`
	Location       LocationAnalysis    `json:"location"`
	Device         DeviceAnalysis      `json:"device"`
	Fingerprinting FingerprintAnalysis `json:"fingerprinting"`
	Privacy        PrivacyAnalysis     `json:"privacy"`
	Timing         TimingAnalysis      `json:"timing"`
}

// TrackResponse 访问记录响应
type TrackResponse struct {
	Visitor   VisitorSummary `json:"visitor"`
	Analysis  Analysis       `json:"analysis"`
	Persisted bool           `json:"persisted"`
}
