package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

// Quote is the persisted priced offer for a job.
type Quote struct {
	ID               string          `db:"id" json:"id"`
	JobID            string          `db:"job_id" json:"job_id"`
	SessionFee       decimal.Decimal `db:"session_fee" json:"session_fee"`
	TransportFee     decimal.Decimal `db:"transport_fee" json:"transport_fee"`
	MaterialCost     decimal.Decimal `db:"material_cost" json:"material_cost"`
	AssistantFee     decimal.Decimal `db:"assistant_fee" json:"assistant_fee"`
	Overhead         decimal.Decimal `db:"overhead" json:"overhead"`
	Subtotal         decimal.Decimal `db:"subtotal" json:"subtotal"`
	MarginRate       decimal.Decimal `db:"margin_rate" json:"margin_rate"`
	Margin           decimal.Decimal `db:"margin" json:"margin"`
	VAT              decimal.Decimal `db:"vat" json:"vat"`
	Total            decimal.Decimal `db:"total" json:"total"`
	Discount         decimal.Decimal `db:"discount" json:"discount"`
	FinalTotal       decimal.Decimal `db:"final_total" json:"final_total"`
	Adjustments      types.JSONText  `db:"adjustments" json:"adjustments"`
	RateTableVersion string          `db:"rate_table_version" json:"rate_table_version"`
	ValidFrom        time.Time       `db:"valid_from" json:"valid_from"`
	ValidUntil       time.Time       `db:"valid_until" json:"valid_until"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}
