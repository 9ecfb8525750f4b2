package receipt

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"churchpay/internal/middleware"
	"churchpay/internal/pkg/response"
	"churchpay/internal/pkg/utils"
)

// Handler exposes the outbox to the email service, which polls pending
// receipts and acknowledges them.
type Handler struct {
	outbox *Outbox
}

func NewHandler(outbox *Outbox) *Handler {
	return &Handler{outbox: outbox}
}

type markRequest struct {
	Sent  bool   `json:"sent"`
	Error string `json:"error"`
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/admin/receipts", middleware.PlatformAdminOnly())
	{
		admin.GET("", h.List)
		admin.POST("/:id/ack", h.Ack)
	}
}

func (h *Handler) List(c *gin.Context) {
	_, limit := utils.Page("", c.Query("limit"))
	status := Status(c.DefaultQuery("status", string(StatusPending)))

	items, err := h.outbox.List(c.Request.Context(), status, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "FETCH_ERROR", "failed to list receipts")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"items": items})
}

func (h *Handler) Ack(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "invalid receipt id")
		return
	}

	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}

	if req.Sent {
		err = h.outbox.MarkSent(c.Request.Context(), id)
	} else {
		err = h.outbox.MarkFailed(c.Request.Context(), id, req.Error)
	}
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "receipt not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "UPDATE_FAILED", "failed to update receipt")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": id})
}
