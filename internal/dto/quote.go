package dto

import "github.com/shopspring/decimal"

// QuoteOptionsRequest carries caller overrides for the quote chain.
type QuoteOptionsRequest struct {
	SessionFee             decimal.NullDecimal `json:"session_fee"`
	TransportFee           decimal.NullDecimal `json:"transport_fee"`
	MaterialCostPerStudent decimal.NullDecimal `json:"material_cost_per_student"`
	AssistantCount         *int                `json:"assistant_count" validate:"omitempty,min=0"`
	MarginRate             decimal.NullDecimal `json:"margin_rate"`
	Discount               decimal.Decimal     `json:"discount"`
}

// QuoteRequest is the body of the quote preview and create endpoints.
type QuoteRequest struct {
	QuoteOptionsRequest
	FitToBudget  bool                `json:"fit_to_budget"`
	TargetBudget decimal.NullDecimal `json:"target_budget"`
}

// ProcessJobRequest runs the new-job workflow.
type ProcessJobRequest struct {
	QuoteRequest
	AutoAssign bool `json:"auto_assign"`
}
