package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sma-dispatch/internal/dto"
	"github.com/noah-isme/sma-dispatch/internal/models"
	"github.com/noah-isme/sma-dispatch/internal/pricing"
	appErrors "github.com/noah-isme/sma-dispatch/pkg/errors"
	"github.com/noah-isme/sma-dispatch/pkg/response"
)

type rateService interface {
	Current(ctx context.Context) (*pricing.RateTables, error)
	Reload(ctx context.Context) (*pricing.RateTables, error)
	Update(ctx context.Context, updates []models.RateSetting) (*pricing.RateTables, error)
}

// RateHandler exposes the active rate tables.
type RateHandler struct {
	rates    rateService
	validate *validator.Validate
	now      func() time.Time
}

// NewRateHandler constructs a rate handler.
func NewRateHandler(rates rateService, validate *validator.Validate) *RateHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &RateHandler{rates: rates, validate: validate, now: time.Now}
}

// Current godoc
// @Summary Show the active rate tables
// @Tags Rates
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /rates [get]
func (h *RateHandler) Current(c *gin.Context) {
	tables, err := h.rates.Current(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rateTablesResponse(tables))
}

// Reload godoc
// @Summary Rebuild the rate tables from storage
// @Tags Rates
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /rates/reload [post]
func (h *RateHandler) Reload(c *gin.Context) {
	tables, err := h.rates.Reload(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rateTablesResponse(tables))
}

// Update godoc
// @Summary Store rate settings and activate them
// @Tags Rates
// @Accept json
// @Produce json
// @Param payload body dto.UpdateRatesRequest true "Rate settings"
// @Success 200 {object} response.Envelope
// @Router /rates [put]
func (h *RateHandler) Update(c *gin.Context) {
	var req dto.UpdateRatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rate payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, err.Error()))
		return
	}

	now := h.now().UTC()
	updates := make([]models.RateSetting, 0, len(req.Items))
	for _, item := range req.Items {
		updates = append(updates, models.RateSetting{
			Key:         item.Key,
			Value:       item.Value,
			Description: item.Description,
			UpdatedBy:   req.UpdatedBy,
			UpdatedAt:   now,
		})
	}
	tables, err := h.rates.Update(c.Request.Context(), updates)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rateTablesResponse(tables))
}

func rateTablesResponse(rt *pricing.RateTables) dto.RateTablesResponse {
	bands := rt.Distance().Bands()
	out := dto.RateTablesResponse{
		Version:                rt.Version(),
		SessionFeeTiers:        rt.SessionFeeTiers(),
		ExtraSessionFee:        rt.ExtraSessionFee(),
		MaterialCostPerStudent: rt.MaterialCostPerStudent(),
		AssistantFeePerSession: rt.AssistantFeePerSession(),
		OverheadRate:           rt.OverheadRate(),
		MarginRate:             rt.MarginRate(),
		MarginFloorRate:        rt.MarginFloorRate(),
		VATRate:                rt.VATRate(),
		WithholdingRate:        rt.WithholdingRate(),
		TransportFeeBands:      make([]dto.TransportBand, 0, len(bands)),
	}
	for _, band := range bands {
		out.TransportFeeBands = append(out.TransportFeeBands, dto.TransportBand{FromKm: band.FromKm, Fee: band.Fee})
	}
	return out
}
