package dto

import "github.com/shopspring/decimal"

// PaymentRequest carries payout overrides.
type PaymentRequest struct {
	SessionFee decimal.NullDecimal `json:"session_fee"`
	Bonus      decimal.Decimal     `json:"bonus"`
	Deductions decimal.Decimal     `json:"deductions"`
}
