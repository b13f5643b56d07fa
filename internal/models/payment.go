package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is the payout owed to a worker for a completed assignment.
type Payment struct {
	ID               string          `db:"id" json:"id"`
	AssignmentID     string          `db:"assignment_id" json:"assignment_id"`
	JobID            string          `db:"job_id" json:"job_id"`
	WorkerID         string          `db:"worker_id" json:"worker_id"`
	SessionFee       decimal.Decimal `db:"session_fee" json:"session_fee"`
	TransportFee     decimal.Decimal `db:"transport_fee" json:"transport_fee"`
	Bonus            decimal.Decimal `db:"bonus" json:"bonus"`
	Subtotal         decimal.Decimal `db:"subtotal" json:"subtotal"`
	WithholdingRate  decimal.Decimal `db:"withholding_rate" json:"withholding_rate"`
	TaxWithholding   decimal.Decimal `db:"tax_withholding" json:"tax_withholding"`
	Deductions       decimal.Decimal `db:"deductions" json:"deductions"`
	NetAmount        decimal.Decimal `db:"net_amount" json:"net_amount"`
	AccountingPeriod string          `db:"accounting_period" json:"accounting_period"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}
