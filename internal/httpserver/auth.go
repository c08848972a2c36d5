package httpserver

import (
	"net/http"
	"strings"

	"storefront-api/internal/domain"
	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// authMiddleware resolves the bearer token into an Identity and aborts with
// 401 when it cannot.
func authMiddleware(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "not authorized, no token"})
			return
		}
		ident, err := tokens.Lookup(c.Request.Context(), raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "not authorized, token failed"})
			return
		}
		c.Set(identityKey, *ident)
		c.Next()
	}
}

// adminMiddleware requires an already-authenticated admin identity.
func adminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := identityFrom(c)
		if !ok || !ident.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "admin access required"})
			return
		}
		c.Next()
	}
}

func identityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	ident, ok := v.(domain.Identity)
	return ident, ok
}
