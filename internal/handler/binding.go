package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sma-dispatch/internal/dto"
	"github.com/noah-isme/sma-dispatch/internal/pricing"
	"github.com/noah-isme/sma-dispatch/internal/service"
	appErrors "github.com/noah-isme/sma-dispatch/pkg/errors"
)

// bindOptional decodes an optional JSON body into dest and validates it. An
// empty body leaves dest at its zero value.
func bindOptional(c *gin.Context, validate *validator.Validate, dest interface{}) error {
	if err := c.ShouldBindJSON(dest); err != nil && !errors.Is(err, io.EOF) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid request payload")
	}
	if err := validate.Struct(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, err.Error())
	}
	return nil
}

func quoteRequestFrom(req dto.QuoteRequest) service.QuoteRequest {
	return service.QuoteRequest{
		Options: pricing.QuoteOptions{
			SessionFee:             req.SessionFee,
			TransportFee:           req.TransportFee,
			MaterialCostPerStudent: req.MaterialCostPerStudent,
			AssistantCount:         req.AssistantCount,
			MarginRate:             req.MarginRate,
			Discount:               req.Discount,
		},
		FitToBudget:  req.FitToBudget,
		TargetBudget: req.TargetBudget,
	}
}

func paymentOptionsFrom(req dto.PaymentRequest) pricing.PaymentOptions {
	return pricing.PaymentOptions{
		SessionFee: req.SessionFee,
		Bonus:      req.Bonus,
		Deductions: req.Deductions,
	}
}
