package model

import "time"

// Visitor 访客记录，每次页面访问写入一行，写入后不再修改
type Visitor struct {
	ID          int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	IP          string    `gorm:"size:64;not null;index" json:"ip"`
	Country     string    `gorm:"size:100;index" json:"country"`
	CountryCode string    `gorm:"size:8" json:"country_code"`
	Region      string    `gorm:"size:100" json:"region"`
	City        string    `gorm:"size:100" json:"city"`
	Latitude    float64   `gorm:"not null;default:0" json:"latitude"`
	Longitude   float64   `gorm:"not null;default:0" json:"longitude"`
	Timezone    string    `gorm:"size:64" json:"timezone"`
	ISP         string    `gorm:"size:255" json:"isp"`
	Browser     string    `gorm:"size:64;index" json:"browser"`
	OS          string    `gorm:"size:64;index" json:"os"`
	Device      string    `gorm:"size:32;index" json:"device"`
	UserAgent   string    `gorm:"size:1024" json:"user_agent"`
	DeviceHash  string    `gorm:"size:16;index" json:"device_hash"`
	VPN         bool      `gorm:"not null;default:false" json:"vpn"`
	ThreatLevel string    `gorm:"size:16" json:"threat_level"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (Visitor) TableName() string {
	return "visitors"
}
