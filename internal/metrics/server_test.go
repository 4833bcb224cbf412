package metrics

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"github.com/foxzi/smartreach/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewServerAllowedIPs(t *testing.T) {
	tests := []struct {
		name       string
		allowedIPs []string
		wantCount  int
	}{
		{"empty list", nil, 0},
		{"single IP", []string{"192.168.1.1"}, 1},
		{"CIDR notation", []string{"192.168.0.0/16", "10.0.0.0/8"}, 2},
		{"with invalid", []string{"192.168.1.1", "invalid", "10.0.0.1", " "}, 2},
		{"IPv6", []string{"::1", "fe80::/10"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(New(), config.MetricsConfig{AllowedIPs: tt.allowedIPs}, testLogger())
			if len(s.allowed) != tt.wantCount {
				t.Errorf("expected %d allowed networks, got %d", tt.wantCount, len(s.allowed))
			}
		})
	}
}

func TestIsAllowed(t *testing.T) {
	s := NewServer(New(), config.MetricsConfig{AllowedIPs: []string{
		"192.168.1.100",
		"10.0.0.0/8",
		"172.16.0.0/12",
		"::1",
		"fe80::/10",
	}}, testLogger())

	tests := []struct {
		ip      string
		allowed bool
	}{
		{"192.168.1.100", true},
		{"192.168.1.101", false},
		{"10.255.255.255", true},
		{"11.0.0.1", false},
		{"172.31.255.255", true},
		{"172.32.0.1", false},
		{"::1", true},
		{"fe80::1", true},
		{"2001:db8::1", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			if got := s.isAllowed(netip.MustParseAddr(tt.ip)); got != tt.allowed {
				t.Errorf("isAllowed(%s) = %v, want %v", tt.ip, got, tt.allowed)
			}
		})
	}
}

func TestHandler(t *testing.T) {
	m := New()
	s := NewServer(m, config.MetricsConfig{AllowedIPs: []string{"192.168.1.0/24"}}, testLogger())
	h := s.Handler()

	tests := []struct {
		name       string
		path       string
		remoteAddr string
		headers    map[string]string
		wantStatus int
	}{
		{"health is open", "/health", "10.0.0.1:1234", nil, http.StatusOK},
		{"allowed IP", "/metrics", "192.168.1.100:1234", nil, http.StatusOK},
		{"denied IP", "/metrics", "10.0.0.1:1234", nil, http.StatusForbidden},
		{"forwarded client", "/metrics", "127.0.0.1:1234", map[string]string{"X-Real-IP": "192.168.1.7"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	req.RemoteAddr = "192.168.1.5:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if !strings.Contains(rec.Body.String(), "smartreach_uptime_seconds") {
		t.Error("metrics output does not contain smartreach_uptime_seconds")
	}
}
