package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/annvlk/userdir/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// IdentityResolver turns a raw credential string into a live identity.
// Keep this small interface so tests can fake it easily.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (user.Identity, bool)
}

type AuthMiddleware struct {
	resolver IdentityResolver
}

func NewAuthMiddleware(resolver IdentityResolver) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver}
}

// Identify resolves the Authorization header into a request identity.
// A missing header, a garbled token, or a subject deleted since issuance
// all mean the same thing: the request proceeds anonymously. Nothing at
// this layer ever blocks a request.
func (m *AuthMiddleware) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))

		// Accept both a bare token and the Bearer form.
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer"))

		if raw == "" {
			c.Next()
			return
		}

		id, ok := m.resolver.ResolveIdentity(c.Request.Context(), raw)
		if !ok {
			c.Next()
			return
		}

		c.Set(ctxUserIDKey, id.UserID)
		c.Set(ctxEmailKey, id.Email)
		c.Set(ctxRoleKey, id.Role)

		c.Next()
	}
}

// RequireAuth aborts with 401 when Identify did not attach an identity.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := RoleFromContext(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Authentication required",
				},
			})
			return
		}

		c.Next()
	}
}

// Helpers so handlers don't need to know the magic keys.

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

func EmailFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxEmailKey)
	if !ok {
		return "", false
	}
	email, ok := v.(string)
	return email, ok
}

func RoleFromContext(c *gin.Context) (user.Role, bool) {
	v, ok := c.Get(ctxRoleKey)
	if !ok {
		return 0, false
	}
	role, ok := v.(user.Role)
	return role, ok
}
