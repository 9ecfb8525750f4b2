package donation

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"churchpay/internal/pkg/logger"
	"churchpay/internal/pkg/response"
	"churchpay/internal/pkg/utils"
	"churchpay/internal/pkg/validator"
)

const maxNotificationBody = 64 << 10

type Handler struct {
	service *Service
	log     logger.Logger
}

func NewHandler(service *Service, log logger.Logger) *Handler {
	if log == nil {
		log = logger.Noop()
	}
	return &Handler{service: service, log: log}
}

// Notify receives the gateway's server-to-server callback. Every outcome is
// acknowledged with 200 except store failures, which ask the gateway to retry.
func (h *Handler) Notify(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxNotificationBody))
	if err != nil {
		h.log.Warn("unreadable notification body", zap.Error(err), zap.String("client_ip", c.ClientIP()))
		c.String(http.StatusBadRequest, "bad request")
		return
	}

	if _, err := h.service.HandleCallback(c.Request.Context(), c.GetHeader("Content-Type"), body); err != nil && Retryable(err) {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "retry")
		return
	}
	c.String(http.StatusOK, "OK")
}

func (h *Handler) StartDonation(c *gin.Context) {
	var req StartDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid donation request", errs)
		return
	}

	resp, err := h.service.StartDonation(c.Request.Context(), req)
	if err != nil {
		status := http.StatusBadRequest
		if isStoreError(err) {
			status = http.StatusInternalServerError
		}
		response.Error(c, status, "PAYMENT_START_FAILED", ErrCouldNotStartPayment.Error())
		return
	}
	response.Success(c, http.StatusCreated, resp)
}

func (h *Handler) ListTransactions(c *gin.Context) {
	page, limit := utils.Page(c.Query("page"), c.Query("limit"))

	items, total, err := h.service.ListTransactions(c.Request.Context(), c.Param("church_id"), TransactionStatus(c.Query("status")), page, limit)
	if err != nil {
		if errors.Is(err, ErrInvalidFilter) {
			response.Error(c, http.StatusBadRequest, "INVALID_FILTER", err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, "FETCH_ERROR", "failed to list transactions")
		return
	}
	response.Paginated(c, http.StatusOK, items, total, page, limit)
}

func (h *Handler) GetTransaction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "invalid transaction id")
		return
	}

	t, err := h.service.GetTransaction(c.Request.Context(), c.Param("church_id"), id)
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "transaction not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "FETCH_ERROR", "failed to load transaction")
		return
	}
	response.Success(c, http.StatusOK, t)
}

func (h *Handler) ListNotifications(c *gin.Context) {
	page, limit := utils.Page(c.Query("page"), c.Query("limit"))

	items, total, err := h.service.ListNotifications(c.Request.Context(), NotificationOutcome(c.Query("outcome")), page, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "FETCH_ERROR", "failed to list notifications")
		return
	}
	response.Paginated(c, http.StatusOK, items, total, page, limit)
}
