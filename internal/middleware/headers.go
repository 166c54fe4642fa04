package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flowoff/assistente/internal/monitoring"
)

// APIContentSecurityPolicy forbids every resource type; the API serves JSON only.
const APIContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'"

const hstsValue = "max-age=31536000; includeSubDomains"

// SecurityHeaders sets the response headers of a JSON-only admin API. HSTS is only
// sent when the request arrived over TLS, directly or through a proxy.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Content-Security-Policy", APIContentSecurityPolicy)
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
			h.Set("Strict-Transport-Security", hstsValue)
		}
		c.Next()
	}
}

// Metrics observes request latency labelled by route template. Paths in skip, such as
// the scrape endpoint itself, are not recorded.
func Metrics(skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, path := range skip {
		skipped[path] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := skipped[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		monitoring.ObserveAPILatency(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
