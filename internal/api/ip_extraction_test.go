package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{name: "direct connection", remote: "203.0.113.100:12345", want: "203.0.113.100"},
		{name: "spoofed header from public peer", remote: "203.0.113.100:12345", xff: "1.2.3.4, 5.6.7.8", want: "203.0.113.100"},
		{name: "trusted proxy without header", remote: "10.0.0.1:8080", want: "10.0.0.1"},
		{name: "private 10/8 proxy", remote: "10.0.0.1:8080", xff: "203.0.113.7", want: "203.0.113.7"},
		{name: "private 172.16/12 proxy", remote: "172.20.1.1:8080", xff: "203.0.113.7", want: "203.0.113.7"},
		{name: "private 192.168/16 proxy", remote: "192.168.1.1:8080", xff: "203.0.113.7", want: "203.0.113.7"},
		{name: "loopback proxy", remote: "127.0.0.1:8080", xff: "203.0.113.7", want: "203.0.113.7"},
		{name: "rightmost untrusted hop wins", remote: "10.0.0.1:8080", xff: "1.1.1.1, 203.0.113.7, 10.0.0.2", want: "203.0.113.7"},
		{name: "all hops trusted", remote: "10.0.0.1:8080", xff: "192.168.0.5, 10.0.0.2", want: "192.168.0.5"},
		{name: "invalid hops skipped", remote: "10.0.0.1:8080", xff: "not-an-ip, 203.0.113.7, <script>", want: "203.0.113.7"},
		{name: "only invalid hops", remote: "10.0.0.1:8080", xff: "garbage", want: "10.0.0.1"},
		{name: "ipv6 loopback proxy", remote: "[::1]:8080", xff: "2001:db8::1", want: "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			c := echo.New().NewContext(req, httptest.NewRecorder())

			assert.Equal(t, tt.want, getClientIP(c))
		})
	}
}

func TestParseIP(t *testing.T) {
	assert.Equal(t, "192.0.2.1", parseIP("192.0.2.1:80"))
	assert.Equal(t, "192.0.2.1", parseIP(" 192.0.2.1 "))
	assert.Equal(t, "", parseIP("example.com"))
}
