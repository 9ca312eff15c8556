package handlers

import (
	"io"
	"net/http"

	"tutorbook/services/payment"
	"tutorbook/utils"

	"github.com/gin-gonic/gin"
)

const maxWebhookBytes = 64 << 10

type PaymentHandler struct {
	Service payment.PaymentService
}

func NewPaymentHandler(svc payment.PaymentService) *PaymentHandler {
	return &PaymentHandler{Service: svc}
}

func (h *PaymentHandler) CreateOrderHandler(c *gin.Context) {
	order, err := h.Service.CreateOrder(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// WebhookHandler needs the raw body for signature verification.
func (h *PaymentHandler) WebhookHandler(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		utils.RespondError(c, utils.ValidationError("could not read webhook body"))
		return
	}
	if err := h.Service.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}
