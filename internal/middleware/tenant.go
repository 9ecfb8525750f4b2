package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"churchpay/internal/pkg/response"
)

// RequireChurchAccess restricts church admins to the church named by the URL
// parameter. Platform admins may read any church.
func RequireChurchAccess(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		churchID := c.Param(param)
		if churchID == "" {
			response.CustomError(c, http.StatusBadRequest, "INVALID_ID", "Church ID is required")
			return
		}

		switch c.GetString(CtxRole) {
		case RolePlatformAdmin:
			c.Next()
		case RoleChurchAdmin:
			if c.GetString(CtxChurchID) != churchID {
				response.CustomError(c, http.StatusForbidden, "FORBIDDEN", "You don't have access to this church")
				return
			}
			c.Next()
		default:
			response.CustomError(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
		}
	}
}
