package pricing

import (
	"github.com/shopspring/decimal"

	appErrors "github.com/noah-isme/sma-dispatch/pkg/errors"
)

// PaymentInput is the assignment data the payout chain reads.
type PaymentInput struct {
	SessionCount       int
	DistanceKm         int
	WorkerSessionFee   decimal.NullDecimal
	PresetTransportFee decimal.NullDecimal
}

// PaymentOptions enumerates every payout override.
type PaymentOptions struct {
	SessionFee decimal.NullDecimal `json:"session_fee"`
	Bonus      decimal.Decimal     `json:"bonus"`
	Deductions decimal.Decimal     `json:"deductions"`
}

// PaymentBreakdown is the itemised worker payout.
type PaymentBreakdown struct {
	SessionFee       decimal.Decimal `json:"session_fee"`
	TransportFee     decimal.Decimal `json:"transport_fee"`
	Bonus            decimal.Decimal `json:"bonus"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	WithholdingRate  decimal.Decimal `json:"withholding_rate"`
	TaxWithholding   decimal.Decimal `json:"tax_withholding"`
	Deductions       decimal.Decimal `json:"deductions"`
	NetAmount        decimal.Decimal `json:"net_amount"`
	RateTableVersion string          `json:"rate_table_version"`
}

// CalculatePayment derives the net payout. Withholding is rounded down.
func CalculatePayment(rates *RateTables, in PaymentInput, opts PaymentOptions) (PaymentBreakdown, error) {
	if opts.Bonus.IsNegative() {
		return PaymentBreakdown{}, appErrors.Clone(appErrors.ErrValidation, "bonus must not be negative")
	}
	if opts.Deductions.IsNegative() {
		return PaymentBreakdown{}, appErrors.Clone(appErrors.ErrValidation, "deductions must not be negative")
	}
	if opts.SessionFee.Valid && opts.SessionFee.Decimal.IsNegative() {
		return PaymentBreakdown{}, appErrors.Clone(appErrors.ErrValidation, "session fee must not be negative")
	}

	b := PaymentBreakdown{
		Bonus:            opts.Bonus,
		Deductions:       opts.Deductions,
		WithholdingRate:  rates.WithholdingRate(),
		RateTableVersion: rates.Version(),
	}

	switch {
	case opts.SessionFee.Valid:
		b.SessionFee = opts.SessionFee.Decimal
	case in.WorkerSessionFee.Valid:
		b.SessionFee = in.WorkerSessionFee.Decimal
	default:
		fee, err := rates.SessionFee(in.SessionCount)
		if err != nil {
			return PaymentBreakdown{}, err
		}
		b.SessionFee = fee
	}

	if in.PresetTransportFee.Valid {
		b.TransportFee = in.PresetTransportFee.Decimal
	} else {
		b.TransportFee = rates.Distance().TransportFee(in.DistanceKm)
	}

	b.Subtotal = b.SessionFee.Add(b.TransportFee).Add(b.Bonus)
	b.TaxWithholding = b.Subtotal.Mul(b.WithholdingRate).Floor()
	b.NetAmount = b.Subtotal.Sub(b.TaxWithholding).Sub(b.Deductions)
	if b.NetAmount.IsNegative() {
		return PaymentBreakdown{}, appErrors.Clone(appErrors.ErrValidation, "deductions exceed payable amount")
	}
	return b, nil
}
