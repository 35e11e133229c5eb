package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"huntbooking/internal/pkg/response"
)

// TrustProxies limits which peers may set X-Forwarded-For and X-Real-IP. With an empty
// list ClientIP is always the socket peer, so the webhook allowlist cannot be spoofed.
func TrustProxies(r *gin.Engine, proxies []string) error {
	if len(proxies) == 0 {
		r.ForwardedByClientIP = false
		return r.SetTrustedProxies(nil)
	}
	r.ForwardedByClientIP = true
	return r.SetTrustedProxies(proxies)
}

// WebhookIPAllowlist rejects gateway callbacks from unknown addresses.
// An empty list allows every address. The engine must be set up with TrustProxies.
func WebhookIPAllowlist(allowed []string, log zerolog.Logger) gin.HandlerFunc {
	set := make(map[string]struct{}, len(allowed))
	for _, ip := range allowed {
		if ip = strings.TrimSpace(ip); ip != "" {
			set[ip] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		if len(set) == 0 {
			c.Next()
			return
		}
		if _, ok := set[c.ClientIP()]; !ok {
			log.Warn().
				Str("client_ip", c.ClientIP()).
				Str("path", c.Request.URL.Path).
				Str("request_id", requestID(c)).
				Msg("webhook rejected: ip not allowed")
			response.Abort(c, http.StatusForbidden, "IP_NOT_ALLOWED", "IP not allowed")
			return
		}
		c.Next()
	}
}
