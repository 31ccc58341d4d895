package dto

import "time"

// NameCount 分组计数
type NameCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// HourlyBucket 每小时访问量
type HourlyBucket struct {
	Hour  time.Time `json:"hour"`
	Count int64     `json:"count"`
}

// MapLocation 地图上的访客位置
type MapLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Count     int64   `json:"count"`
}

// VisitorItem 访客列表项
type VisitorItem struct {
	ID          int64     `json:"id,string"`
	IP          string    `json:"ip"`
	Country     string    `json:"country"`
	CountryCode string    `json:"country_code"`
	Region      string    `json:"region"`
	City        string    `json:"city"`
	ISP         string    `json:"isp"`
	Browser     string    `json:"browser"`
	OS          string    `json:"os"`
	Device      string    `json:"device"`
	VPN         bool      `json:"vpn"`
	ThreatLevel string    `json:"threat_level"`
	CreatedAt   time.Time `json:"created_at"`
}

// DashboardStats 仪表盘统计
type DashboardStats struct {
	TotalVisitors     int64          `json:"total_visitors"`
	TodayVisitors     int64          `json:"today_visitors"`
	YesterdayVisitors int64          `json:"yesterday_visitors"`
	GrowthRate        float64        `json:"growth_rate"`
	VPNVisitors       int64          `json:"vpn_visitors"`
	Countries         []NameCount    `json:"countries"`
	Devices           []NameCount    `json:"devices"`
	Browsers          []NameCount    `json:"browsers"`
	OperatingSystems  []NameCount    `json:"operating_systems"`
	Hourly            []HourlyBucket `json:"hourly"`
	Recent            []VisitorItem  `json:"recent"`
	Locations         []MapLocation  `json:"locations"`
	GeneratedAt       time.Time      `json:"generated_at"`
}

// VisitorListRequest 访客列表请求
type VisitorListRequest struct {
	Page        int    `form:"page" binding:"omitempty,min=1"`
	PageSize    int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Country     string `form:"country" binding:"omitempty,max=64"`
	ThreatLevel string `form:"threat_level" binding:"omitempty,oneof=low medium high"`
}

// VisitorListResponse 访客列表响应
type VisitorListResponse struct {
	Total int64         `json:"total"`
	List  []VisitorItem `json:"list"`
}
