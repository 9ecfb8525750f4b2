package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"churchpay/internal/pkg/response"
)

const (
	RolePlatformAdmin = "platform_admin"
	RoleChurchAdmin   = "church_admin"
)

// RequireRole ensures that the authenticated user has one of the given roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(CtxRole)
		if role == "" {
			response.CustomError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Role not found in token")
			return
		}

		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		response.CustomError(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
	}
}

// PlatformAdminOnly requires the platform operator role.
func PlatformAdminOnly() gin.HandlerFunc {
	return RequireRole(RolePlatformAdmin)
}
