// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the source IP of a request. It is the identity used for
// vote uniqueness, rate limiting and idempotency scoping.
package middleware

import (
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderForwardedFor is the proxy header consulted by ClientIP.
const HeaderForwardedFor = "X-Forwarded-For"

// ClientIP returns the first X-Forwarded-For entry when it parses as an IP
// address, otherwise the TCP peer address. IPv4-mapped IPv6 addresses are
// unmapped so one client always yields the same string.
func ClientIP(c *gin.Context) string {
	if xff := c.GetHeader(HeaderForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip, ok := NormalizeIP(first); ok {
			return ip
		}
	}
	if ip, ok := NormalizeIP(c.RemoteIP()); ok {
		return ip
	}
	return c.RemoteIP()
}

// NormalizeIP parses s (surrounding whitespace ignored, zone dropped) and
// returns its canonical text form.
func NormalizeIP(s string) (string, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return addr.Unmap().WithZone("").String(), true
}
