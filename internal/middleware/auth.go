package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"huntbooking/internal/pkg/jwt"
	"huntbooking/internal/pkg/response"
)

// WebSocketTokenProtocol is the subprotocol marker a browser sends before its token, as
// in new WebSocket(url, ["bearer", token]); browsers cannot set headers on an upgrade.
const WebSocketTokenProtocol = "bearer"

// JWTAuth validates the bearer token and stores user_id, email and role in the context.
// Websocket upgrades may carry the token in Sec-WebSocket-Protocol instead of Authorization.
func JWTAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			if token, ok := websocketToken(c); ok {
				authHeader = "Bearer " + token
			}
		}
		if authHeader == "" {
			response.Abort(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Authorization header is required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.Abort(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be 'Bearer <token>'")
			return
		}

		claims, err := jwtService.ValidateToken(parts[1])
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("role", claims.Role)
		c.Next()
	}
}

func websocketToken(c *gin.Context) (string, bool) {
	if !strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return "", false
	}
	protocols := strings.Split(c.GetHeader("Sec-WebSocket-Protocol"), ",")
	for i := 0; i+1 < len(protocols); i++ {
		if strings.TrimSpace(protocols[i]) == WebSocketTokenProtocol {
			if token := strings.TrimSpace(protocols[i+1]); token != "" {
				return token, true
			}
		}
	}
	return "", false
}
