package guard

import (
	"net"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ClientIP resolves the caller's address through a deterministic proxy
// header precedence: CDN header, first X-Forwarded-For hop, X-Real-IP,
// then the socket address.
func ClientIP(c *fiber.Ctx) string {
	if ip := normalizeIP(c.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		first := strings.Split(xff, ",")[0]
		if ip := normalizeIP(first); ip != "" {
			return ip
		}
	}
	if ip := normalizeIP(c.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return c.IP()
}

func normalizeIP(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	// Tolerate host:port forms some proxies emit.
	if host, _, err := net.SplitHostPort(raw); err == nil {
		raw = host
	}
	if net.ParseIP(raw) == nil {
		return ""
	}
	return raw
}
