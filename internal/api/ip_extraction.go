package api

import (
	"net"
	"strings"

	"github.com/labstack/echo/v4"
)

// trustedProxies are the only peers allowed to set X-Forwarded-For:
// private networks, loopback and link-local ranges
var trustedProxies = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			panic("invalid trusted proxy CIDR " + cidr + ": " + err.Error())
		}
		nets = append(nets, ipNet)
	}
	return nets
}

func isTrustedProxy(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, n := range trustedProxies {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// parseIP strips an optional port and returns the canonical IP, or "" when
// addr is not an IP address
func parseIP(addr string) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(addr))
	if err != nil {
		host = strings.TrimSpace(addr)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return ""
	}
	return ip.String()
}

// getClientIP returns the address used for rate limiting and anonymous
// voter sessions.
//
// X-Forwarded-For is only honoured when the direct peer is a trusted proxy.
// The chain is then walked right to left and the first untrusted address is
// the client; anything left of it was written by parties we cannot verify.
// When every hop is trusted the leftmost valid address wins.
func getClientIP(c echo.Context) string {
	remote := parseIP(c.Request().RemoteAddr)
	if !isTrustedProxy(remote) {
		return remote
	}

	xff := c.Request().Header.Get("X-Forwarded-For")
	if xff == "" {
		return remote
	}

	var hops []string
	for _, h := range strings.Split(xff, ",") {
		if ip := parseIP(h); ip != "" {
			hops = append(hops, ip)
		}
	}
	for i := len(hops) - 1; i >= 0; i-- {
		if !isTrustedProxy(hops[i]) {
			return hops[i]
		}
	}
	if len(hops) > 0 {
		return hops[0]
	}
	return remote
}
