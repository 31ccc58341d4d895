package classifier

import (
	"testing"

	"github.com/nsxzhou1114/shock-api/internal/config"
	"github.com/nsxzhou1114/shock-api/internal/geo"
	"github.com/stretchr/testify/assert"
)

const (
	desktopChrome = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	iphoneSafari  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
)

func TestIsVPN(t *testing.T) {
	c := New(DefaultPolicy())

	tests := []struct {
		name string
		rec  *geo.Record
		want bool
	}{
		{"hosting org without vpn keyword", &geo.Record{ISP: "Amazon.com, Inc.", Org: "Amazon"}, true},
		{"vpn keyword in isp", &geo.Record{ISP: "NordVPN S.A.", Org: "Unknown"}, true},
		{"vpn keyword in org", &geo.Record{ISP: "M247", Org: "Mullvad VPN AB"}, true},
		{"proxy flag", &geo.Record{ISP: "Comcast", Org: "Comcast", Proxy: true}, true},
		{"hosting flag", &geo.Record{ISP: "Some DC", Org: "Some DC", Hosting: true}, true},
		{"residential", &geo.Record{ISP: "Comcast Cable", Org: "Comcast Cable Communications"}, false},
		{"nil record", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsVPN(tt.rec))
		})
	}
}

func TestThreatLevel(t *testing.T) {
	c := New(DefaultPolicy())

	tests := []struct {
		name string
		rec  *geo.Record
		ua   string
		want string
	}{
		{"provider value wins over local medium", &geo.Record{Org: "Amazon", Threat: "high"}, desktopChrome, "high"},
		{"provider critical passes through", &geo.Record{Threat: "critical"}, desktopChrome, "critical"},
		{"provider low does not suppress local", &geo.Record{Org: "DigitalOcean", Threat: "low"}, desktopChrome, ThreatMedium},
		{"vpn is medium", &geo.Record{Org: "Amazon"}, desktopChrome, ThreatMedium},
		{"bot user agent is medium", &geo.Record{Org: "Comcast"}, "curl/8.4.0", ThreatMedium},
		{"headless browser is medium", &geo.Record{}, "Mozilla/5.0 HeadlessChrome/120.0", ThreatMedium},
		{"clean visit is low", &geo.Record{Org: "Comcast"}, desktopChrome, ThreatLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.ThreatLevel(tt.rec, tt.ua))
		})
	}
}

func TestConnectionType(t *testing.T) {
	tests := []struct {
		name string
		rec  *geo.Record
		ua   string
		want string
	}{
		{"provider mobile flag", &geo.Record{Mobile: true}, desktopChrome, ConnectionMobile},
		{"mobile user agent", &geo.Record{}, iphoneSafari, ConnectionMobile},
		{"ipad", &geo.Record{}, "Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X) Safari/604.1", ConnectionTablet},
		{"smart tv", &geo.Record{}, "Mozilla/5.0 (SMART-TV; Linux; Tizen 6.0) AppleWebKit/537.36", ConnectionSmartTV},
		{"console", &geo.Record{}, "Mozilla/5.0 (PlayStation; PlayStation 5/2.26) AppleWebKit/605.1.15", ConnectionConsole},
		{"default", nil, desktopChrome, ConnectionBroadband},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConnectionType(tt.rec, tt.ua))
		})
	}
}

func TestDeviceHash(t *testing.T) {
	headers := []string{"en-US,en;q=0.9", "gzip, deflate, br"}

	first := DeviceHash(desktopChrome, headers...)
	assert.Equal(t, first, DeviceHash(desktopChrome, headers...))
	assert.NotEmpty(t, first)

	// 任意一个字节变化都应改变哈希
	ua := []byte(desktopChrome)
	for i := range ua {
		changed := append([]byte{}, ua...)
		changed[i]++
		assert.NotEqual(t, first, DeviceHash(string(changed), headers...), "byte %d", i)
	}
	assert.NotEqual(t, first, DeviceHash(desktopChrome, "en-US,en;q=0.8", headers[1]))
	assert.NotEqual(t, first, DeviceHash(desktopChrome, headers[0], "gzip, deflate, bs"))
}

func TestDeviceHash_Base36(t *testing.T) {
	assert.Equal(t, "0", DeviceHash(""))
	// 'a' = 97
	assert.Equal(t, "2p", DeviceHash("a"))
}

func TestDeviceHash_Separator(t *testing.T) {
	// 输入之间先混入 '|' (124)
	assert.Equal(t, "22yv", DeviceHash("a", "b"))
	assert.NotEqual(t, DeviceHash("ab"), DeviceHash("a", "b"))
	assert.NotEqual(t, DeviceHash("ab", "c"), DeviceHash("a", "bc"))
}

func TestParseUserAgent(t *testing.T) {
	info := ParseUserAgent(iphoneSafari)
	assert.Equal(t, DeviceMobile, info.Device)
	assert.Equal(t, "iOS", info.OS)
	assert.Equal(t, "Safari", info.Browser)

	desktop := ParseUserAgent(desktopChrome)
	assert.Equal(t, DeviceDesktop, desktop.Device)
	assert.Equal(t, "Chrome", desktop.Browser)
	assert.Equal(t, "Windows", desktop.OS)

	empty := ParseUserAgent("")
	assert.Equal(t, DeviceUnknown, empty.Device)
	assert.Equal(t, "Unknown", empty.Browser)
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(config.ClassifierConfig{HostingOrgs: []string{"  ExampleCloud "}})
	assert.Equal(t, []string{"examplecloud"}, p.HostingOrgs)
	assert.Equal(t, DefaultPolicy().VPNKeywords, p.VPNKeywords)

	c := New(DefaultPolicy())
	rec := &geo.Record{ISP: "ExampleCloud", Org: "ExampleCloud Ltd"}
	assert.False(t, c.IsVPN(rec))
	c.SetPolicy(p)
	assert.True(t, c.IsVPN(rec))
}
