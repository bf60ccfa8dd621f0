package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// RealIP stores the client IP under "real_ip" for rate limiting. It checks
// CF-Connecting-IP, then the left-most X-Forwarded-For entry, then X-Real-IP
// and finally falls back to c.ClientIP().
func RealIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		candidates := []string{c.GetHeader("CF-Connecting-IP")}
		if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
			candidates = append(candidates, strings.SplitN(xff, ",", 2)[0])
		}
		candidates = append(candidates, c.GetHeader("X-Real-IP"))

		ip := c.ClientIP()
		for _, cand := range candidates {
			if parsed := net.ParseIP(strings.TrimSpace(cand)); parsed != nil {
				ip = parsed.String()
				break
			}
		}
		c.Set("real_ip", ip)
		c.Next()
	}
}
