package http_test

import (
	"net/http/httptest"
	"testing"

	pkghttp "github.com/nornex-as/portal/pkg/http"
	"github.com/stretchr/testify/assert"
)

// X-Forwarded-For and X-Real-IP must only be trusted from configured proxies,
// otherwise any client could spoof the IP recorded on its sessions

func TestExtractClientIP_DirectConnection_IgnoresHeaders(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.10:54321"

	// Attacker tries to spoof their IP via X-Forwarded-For
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	req.Header.Set("X-Real-IP", "192.168.1.1")

	config := &pkghttp.IPConfig{
		TrustedProxies: []string{
			"10.0.0.0/8",
			"172.16.0.0/12",
			"127.0.0.1/32",
		},
	}

	ip := pkghttp.ExtractClientIP(req, config)

	assert.Equal(t, "203.0.113.10", ip, "Should extract IP from RemoteAddr when not from trusted proxy")
}

func TestExtractClientIP_TrustedProxy_UsesXForwardedFor(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:54321"

	req.Header.Set("X-Forwarded-For", "203.0.113.42, 10.0.0.5")
	req.Header.Set("X-Real-IP", "203.0.113.42")

	config := &pkghttp.IPConfig{
		TrustedProxies: []string{
			"10.0.0.0/8",
			"127.0.0.1/32",
		},
	}

	ip := pkghttp.ExtractClientIP(req, config)

	assert.Equal(t, "203.0.113.42", ip, "Should extract from X-Forwarded-For when from trusted proxy")
}

func TestExtractClientIP_NoConfig_DefaultsSecurely(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.10:54321"

	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	req.Header.Set("X-Real-IP", "192.168.1.1")

	ip := pkghttp.ExtractClientIP(req, nil)

	assert.Equal(t, "203.0.113.10", ip, "Should default to RemoteAddr when no trusted proxies configured")
}

func TestMaskIP(t *testing.T) {
	tests := []struct {
		name     string
		ip       string
		expected string
	}{
		{
			name:     "ipv4",
			ip:       "84.212.17.4",
			expected: "84.212.x.x",
		},
		{
			name:     "ipv4 localhost",
			ip:       "127.0.0.1",
			expected: "127.0.x.x",
		},
		{
			name:     "invalid input",
			ip:       "not-an-ip",
			expected: "unknown",
		},
		{
			name:     "empty input",
			ip:       "",
			expected: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, pkghttp.MaskIP(tt.ip))
		})
	}
}
