package clientip

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func header(kv ...string) http.Header {
	h := http.Header{}
	for i := 0; i+1 < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return h
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		header   http.Header
		expected string
	}{
		{"no headers", header(), Loopback},
		{"forwarded-for first entry", header("X-Forwarded-For", "8.8.8.8, 10.0.0.1"), "8.8.8.8"},
		{"forwarded-for trimmed", header("X-Forwarded-For", "  1.2.3.4  "), "1.2.3.4"},
		{"cloudflare wins", header("CF-Connecting-IP", "9.9.9.9", "X-Forwarded-For", "8.8.8.8"), "9.9.9.9"},
		{"real ip", header("X-Real-IP", "5.6.7.8"), "5.6.7.8"},
		{"forwarded-for beats real ip", header("X-Real-IP", "5.6.7.8", "X-Forwarded-For", "1.1.1.1"), "1.1.1.1"},
		{"client ip", header("X-Client-IP", "4.4.4.4"), "4.4.4.4"},
		{"x-forwarded", header("X-Forwarded", "3.3.3.3"), "3.3.3.3"},
		{"forwarded-for header", header("Forwarded-For", "2.2.2.2"), "2.2.2.2"},
		{"rfc7239 forwarded", header("Forwarded", "for=192.0.2.60;proto=http;by=203.0.113.43"), "192.0.2.60"},
		{"rfc7239 quoted with port", header("Forwarded", `For="192.0.2.43:47011"`), "192.0.2.43"},
		{"rfc7239 ipv6", header("Forwarded", `for="[2001:db8:cafe::17]:4711"`), "2001:db8:cafe::17"},
		{"empty forwarded-for falls through", header("X-Forwarded-For", "", "X-Real-IP", "6.6.6.6"), "6.6.6.6"},
		{"no validation", header("X-Real-IP", "not-an-ip"), "not-an-ip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Resolve(tt.header))
		})
	}
}

func TestIsPrivate(t *testing.T) {
	tests := []struct {
		ip       string
		expected bool
	}{
		{"127.0.0.1", true},
		{"::1", true},
		{"10.1.2.3", true},
		{"172.16.0.1", true},
		{"172.31.255.255", true},
		{"172.32.0.1", false},
		{"192.168.1.1", true},
		{"169.254.10.10", true},
		{"fe80::1", true},
		{"fd00::1", true},
		{"0.0.0.0", true},
		{"8.8.8.8", false},
		{"2001:4860:4860::8888", false},
		{"not-an-ip", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsPrivate(tt.ip))
		})
	}
}
