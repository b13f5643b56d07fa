package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sma-dispatch/internal/dto"
	"github.com/noah-isme/sma-dispatch/internal/models"
	"github.com/noah-isme/sma-dispatch/internal/pricing"
	"github.com/noah-isme/sma-dispatch/internal/service"
	"github.com/noah-isme/sma-dispatch/pkg/response"
)

type paymentCalculator interface {
	Calculate(ctx context.Context, assignmentID string, opts pricing.PaymentOptions) (*service.PaymentPreview, error)
}

type completedJobProcessor interface {
	ProcessCompletedJob(ctx context.Context, assignmentID string, opts pricing.PaymentOptions) (*models.Payment, error)
}

// AssignmentHandler exposes payout endpoints for completed assignments.
type AssignmentHandler struct {
	payments  paymentCalculator
	processor completedJobProcessor
	validate  *validator.Validate
}

// NewAssignmentHandler constructs an assignment handler.
func NewAssignmentHandler(payments paymentCalculator, processor completedJobProcessor, validate *validator.Validate) *AssignmentHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &AssignmentHandler{payments: payments, processor: processor, validate: validate}
}

// PreviewPayment godoc
// @Summary Compute the payout of a completed assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body dto.PaymentRequest false "Payout overrides"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/payment/preview [post]
func (h *AssignmentHandler) PreviewPayment(c *gin.Context) {
	var req dto.PaymentRequest
	if err := bindOptional(c, h.validate, &req); err != nil {
		response.Error(c, err)
		return
	}
	preview, err := h.payments.Calculate(c.Request.Context(), c.Param("id"), paymentOptionsFrom(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview)
}

// CreatePayment godoc
// @Summary Record the payout of a completed assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body dto.PaymentRequest false "Payout overrides"
// @Success 201 {object} response.Envelope
// @Router /assignments/{id}/payment [post]
func (h *AssignmentHandler) CreatePayment(c *gin.Context) {
	var req dto.PaymentRequest
	if err := bindOptional(c, h.validate, &req); err != nil {
		response.Error(c, err)
		return
	}
	payment, err := h.processor.ProcessCompletedJob(c.Request.Context(), c.Param("id"), paymentOptionsFrom(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payment)
}
