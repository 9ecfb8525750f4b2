package donation

import (
	"github.com/gin-gonic/gin"

	"churchpay/internal/middleware"
)

const NotifyPath = "/payments/payfast/notify"

// RegisterPublicRoutes mounts the donor-facing and gateway-facing endpoints.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST(NotifyPath, h.Notify)
	rg.POST("/donations", h.StartDonation)
}

// RegisterOperatorRoutes expects rg to already carry JWT authentication.
func (h *Handler) RegisterOperatorRoutes(rg *gin.RouterGroup) {
	churches := rg.Group("/churches/:church_id", middleware.RequireChurchAccess("church_id"))
	{
		churches.GET("/transactions", h.ListTransactions)
		churches.GET("/transactions/:id", h.GetTransaction)
	}

	admin := rg.Group("/admin", middleware.PlatformAdminOnly())
	{
		admin.GET("/payment-notifications", h.ListNotifications)
	}
}
