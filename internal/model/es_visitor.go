package model

import (
	"strconv"
	"time"
)

// ESVisitor Elasticsearch访客文档模型
type ESVisitor struct {
	ID          string    `json:"id"`       // ES文档ID，即访客雪花ID
	IP          string    `json:"ip"`
	Country     string    `json:"country"`
	City        string    `json:"city"`
	Location    GeoPoint  `json:"location"` // 经纬度（用于地图聚合）
	ISP         string    `json:"isp"`
	Browser     string    `json:"browser"`
	OS          string    `json:"os"`
	Device      string    `json:"device"`
	UserAgent   string    `json:"user_agent"`
	DeviceHash  string    `json:"device_hash"`
	VPN         bool      `json:"vpn"`
	ThreatLevel string    `json:"threat_level"`
	CreatedAt   time.Time `json:"created_at"`
}

// GeoPoint ES geo_point 字段
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// NewESVisitor 由访客记录构建ES文档
func NewESVisitor(v *Visitor) *ESVisitor {
	return &ESVisitor{
		ID:          strconv.FormatInt(v.ID, 10),
		IP:          v.IP,
		Country:     v.Country,
		City:        v.City,
		Location:    GeoPoint{Lat: v.Latitude, Lon: v.Longitude},
		ISP:         v.ISP,
		Browser:     v.Browser,
		OS:          v.OS,
		Device:      v.Device,
		UserAgent:   v.UserAgent,
		DeviceHash:  v.DeviceHash,
		VPN:         v.VPN,
		ThreatLevel: v.ThreatLevel,
		CreatedAt:   v.CreatedAt,
	}
}

// ESIndexName 返回ES索引名称
func (ESVisitor) ESIndexName() string {
	return "visitor_index"
}

// ESMapping 返回ES索引映射
func (ESVisitor) ESMapping() string {
	return `{
		"settings": {
			"number_of_shards": 1,
			"number_of_replicas": 1
		},
		"mappings": {
			"properties": {
				"id": { "type": "keyword" },
				"ip": { "type": "ip" },
				"country": { "type": "keyword" },
				"city": { "type": "keyword" },
				"location": { "type": "geo_point" },
				"isp": {
					"type": "text",
					"fields": {
						"keyword": { "type": "keyword" }
					}
				},
				"browser": { "type": "keyword" },
				"os": { "type": "keyword" },
				"device": { "type": "keyword" },
				"user_agent": { "type": "text" },
				"device_hash": { "type": "keyword" },
				"vpn": { "type": "boolean" },
				"threat_level": { "type": "keyword" },
				"created_at": { "type": "date" }
			}
		}
	}`
}
