package dto

import "github.com/shopspring/decimal"

// RateSettingInput is one key to store.
type RateSettingInput struct {
	Key         string  `json:"key" validate:"required"`
	Value       string  `json:"value" validate:"required"`
	Description *string `json:"description"`
}

// UpdateRatesRequest replaces a set of rate settings.
type UpdateRatesRequest struct {
	Items     []RateSettingInput `json:"items" validate:"required,min=1,dive"`
	UpdatedBy *string            `json:"updated_by"`
}

// TransportBand mirrors one distance band.
type TransportBand struct {
	FromKm int             `json:"from_km"`
	Fee    decimal.Decimal `json:"fee"`
}

// RateTablesResponse describes the active rate snapshot.
type RateTablesResponse struct {
	Version                string                  `json:"version"`
	SessionFeeTiers        map[int]decimal.Decimal `json:"session_fee_tiers"`
	ExtraSessionFee        decimal.Decimal         `json:"session_fee_extra_per_session"`
	MaterialCostPerStudent decimal.Decimal         `json:"material_cost_per_student"`
	AssistantFeePerSession decimal.Decimal         `json:"assistant_fee_per_session"`
	OverheadRate           decimal.Decimal         `json:"overhead_rate"`
	MarginRate             decimal.Decimal         `json:"margin_rate"`
	MarginFloorRate        decimal.Decimal         `json:"margin_floor_rate"`
	VATRate                decimal.Decimal         `json:"vat_rate"`
	WithholdingRate        decimal.Decimal         `json:"withholding_rate"`
	TransportFeeBands      []TransportBand         `json:"transport_fee_bands"`
}
