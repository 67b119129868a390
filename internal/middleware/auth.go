package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/keepalive-app/keepalive/internal/config"
	"github.com/keepalive-app/keepalive/internal/modules/serializer"
)

// DashboardAuth guards the dashboard API. The external session system calls
// it with the service bearer token and forwards the authenticated owner's
// id; this server never authenticates owners itself.
func DashboardAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr("Unauthorized"))
			return
		}
		raw := strings.TrimPrefix(auth, "Bearer ")

		// An unset service token must fail closed rather than match an
		// empty bearer.
		if raw == "" || cfg.Root.ApiBearerToken == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr("Unauthorized"))
			return
		}

		if subtle.ConstantTimeCompare([]byte(raw), []byte(cfg.Root.ApiBearerToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr("Unauthorized"))
			return
		}

		ownerID, err := uuid.Parse(c.GetHeader("X-Owner-ID"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, serializer.AuthErr("Unauthorized"))
			return
		}

		c.Set("owner_id", ownerID)
		c.Next()
	}
}
