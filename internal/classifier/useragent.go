package classifier

import (
	"strings"

	"github.com/mileusna/useragent"
)

// 设备类别
const (
	DeviceMobile  = "Mobile"
	DeviceTablet  = "Tablet"
	DeviceDesktop = "Desktop"
	DeviceBot     = "Bot"
	DeviceSmartTV = "Smart TV"
	DeviceConsole = "Gaming Console"
	DeviceUnknown = "Unknown"
)

// UserAgentInfo User-Agent 解析结果
type UserAgentInfo struct {
	Browser        string `json:"browser"`
	BrowserVersion string `json:"browser_version"`
	OS             string `json:"os"`
	OSVersion      string `json:"os_version"`
	Device         string `json:"device"`
	DeviceModel    string `json:"device_model"`
}

// ParseUserAgent 解析浏览器、操作系统和设备类别
func ParseUserAgent(s string) UserAgentInfo {
	info := UserAgentInfo{
		Browser: "Unknown",
		OS:      "Unknown",
		Device:  DeviceUnknown,
	}
	if strings.TrimSpace(s) == "" {
		return info
	}

	ua := useragent.Parse(s)
	if ua.Name != "" {
		info.Browser = ua.Name
		info.BrowserVersion = ua.Version
	}
	if ua.OS != "" {
		info.OS = ua.OS
		info.OSVersion = ua.OSVersion
	}
	info.DeviceModel = ua.Device

	lower := strings.ToLower(s)
	switch {
	case ua.Bot:
		info.Device = DeviceBot
	case containsAny(lower, smartTVTokens):
		info.Device = DeviceSmartTV
	case containsAny(lower, consoleTokens):
		info.Device = DeviceConsole
	case ua.Tablet || strings.Contains(lower, "ipad") || strings.Contains(lower, "tablet"):
		info.Device = DeviceTablet
	case ua.Mobile || strings.Contains(lower, "mobile"):
		info.Device = DeviceMobile
	case ua.Desktop:
		info.Device = DeviceDesktop
	}
	return info
}
