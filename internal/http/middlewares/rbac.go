package middlewares

import (
	"net/http"

	"github.com/annvlk/userdir/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// RequireRole enforces authorization on top of Identify. The role comes
// from the resolved identity, never from the token itself.
func (m *AuthMiddleware) RequireRole(required user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := RoleFromContext(c)

		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Authentication required",
				},
			})
			return
		}

		if role != required {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "forbidden",
					"message": "Insufficient role",
				},
			})
			return
		}

		c.Next()
	}
}
