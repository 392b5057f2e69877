package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/b3nzuk3/gameCity-sub001/internal/logger"
	"github.com/b3nzuk3/gameCity-sub001/internal/middleware"
	"github.com/b3nzuk3/gameCity-sub001/internal/models"
	"github.com/b3nzuk3/gameCity-sub001/internal/mpesa"
	"github.com/b3nzuk3/gameCity-sub001/internal/services"
	"github.com/b3nzuk3/gameCity-sub001/pkg/apperrors"
)

// maxCallbackBody caps the provider payload we are willing to read.
const maxCallbackBody = 1 << 20

type CheckoutInput struct {
	OrderID     string `json:"order_id" validate:"required,uuid4"`
	PhoneNumber string `json:"phone_number" validate:"required,is-msisdn"`
}

type PaymentHandler struct {
	BaseHandler
	paymentService services.PaymentService
}

func NewPaymentHandler(base BaseHandler, paymentService services.PaymentService) *PaymentHandler {
	return &PaymentHandler{BaseHandler: base, paymentService: paymentService}
}

func (h *PaymentHandler) RegisterRoutes(api *gin.RouterGroup) {
	payments := api.Group("/payments")
	payments.Use(middleware.AuthMiddleware())
	{
		payments.POST("/checkout", h.Checkout)
		payments.POST("/cancel/:orderId", h.Cancel)
		payments.GET("/status/:orderId", h.Status)
	}

	admin := api.Group("/admin/payments")
	admin.Use(middleware.AuthMiddleware(), middleware.RoleMiddleware(models.UserRoleAdmin))
	{
		admin.GET("/callbacks/:checkoutRequestId", h.CallbackTrail)
	}

	// The provider calls this unauthenticated; the reverse proxy restricts
	// it to Safaricom's IP ranges.
	api.POST("/payments/mpesa/callback", h.MpesaCallback)
}

func (h *PaymentHandler) Checkout(c *gin.Context) {
	userID, ok := h.CurrentUserID(c)
	if !ok {
		return
	}

	var input CheckoutInput
	if !h.BindAndValidateJSON(c, &input) {
		return
	}

	resp, err := h.paymentService.InitiateCheckout(c.Request.Context(), userID, input.OrderID, input.PhoneNumber)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.RespondOK(c, resp)
}

func (h *PaymentHandler) Cancel(c *gin.Context) {
	if _, ok := h.CurrentUserID(c); !ok {
		return
	}

	if err := h.paymentService.CancelPayment(c.Param("orderId")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.RespondOK(c, gin.H{"message": "Payment cancelled"})
}

func (h *PaymentHandler) Status(c *gin.Context) {
	if _, ok := h.CurrentUserID(c); !ok {
		return
	}

	resp, err := h.paymentService.GetStatus(c.Param("orderId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.RespondOK(c, resp)
}

// CallbackTrail exposes the audit trail for one checkout request id to
// operators.
func (h *PaymentHandler) CallbackTrail(c *gin.Context) {
	logs, err := h.paymentService.GetCallbackTrail(c.Param("checkoutRequestId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.RespondOK(c, gin.H{"callbacks": logs})
}

// MpesaCallback receives STK push confirmations from Daraja.
//
// The provider treats any non-200 as undelivered and keeps retrying, so this
// endpoint acknowledges every processed request with 200 regardless of the
// business outcome. Validation failures are logged and audited, never
// surfaced as HTTP errors. The only 500 is an audit-store failure, where a
// provider retry is exactly what we want.
func (h *PaymentHandler) MpesaCallback(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBody))
	if err != nil {
		logger.CtxWithError(c.Request.Context(), "failed to read callback body", err)
		c.JSON(http.StatusInternalServerError, mpesa.AckInternal)
		return
	}

	if err := h.paymentService.ProcessCallback(c.Request.Context(), raw); err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok && appErr.Code == apperrors.CodeInternalError {
			c.JSON(http.StatusInternalServerError, mpesa.AckInternal)
			return
		}
		// Logged inside the service and recorded in the audit trail.
		logger.CtxWithError(c.Request.Context(), "callback not applied", err)
	}

	c.JSON(http.StatusOK, mpesa.AckAccepted)
}
