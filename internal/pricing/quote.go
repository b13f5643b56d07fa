package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	appErrors "github.com/noah-isme/sma-dispatch/pkg/errors"
)

// marginRatePlaces bounds the precision of a fitted margin rate.
const marginRatePlaces = 6

// QuoteInput is the job data the quote chain reads.
type QuoteInput struct {
	SessionCount        int
	StudentCount        int
	AssistantCount      int
	DistanceKm          int
	PresetTransportFee  decimal.NullDecimal
	ProgramSessionFee   decimal.NullDecimal
	ProgramMaterialCost decimal.NullDecimal
}

// QuoteOptions enumerates every caller override. Unset values use the job,
// program and rate table in that order.
type QuoteOptions struct {
	SessionFee             decimal.NullDecimal `json:"session_fee"`
	TransportFee           decimal.NullDecimal `json:"transport_fee"`
	MaterialCostPerStudent decimal.NullDecimal `json:"material_cost_per_student"`
	AssistantCount         *int                `json:"assistant_count,omitempty"`
	MarginRate             decimal.NullDecimal `json:"margin_rate"`
	Discount               decimal.Decimal     `json:"discount"`
}

// QuoteBreakdown is the itemised result of the quote chain.
type QuoteBreakdown struct {
	SessionFee       decimal.Decimal `json:"session_fee"`
	TransportFee     decimal.Decimal `json:"transport_fee"`
	MaterialCost     decimal.Decimal `json:"material_cost"`
	AssistantFee     decimal.Decimal `json:"assistant_fee"`
	Overhead         decimal.Decimal `json:"overhead"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	MarginRate       decimal.Decimal `json:"margin_rate"`
	Margin           decimal.Decimal `json:"margin"`
	VAT              decimal.Decimal `json:"vat"`
	Total            decimal.Decimal `json:"total"`
	Discount         decimal.Decimal `json:"discount"`
	FinalTotal       decimal.Decimal `json:"final_total"`
	RateTableVersion string          `json:"rate_table_version"`
}

// AdjustmentKind names a budget-fitting step.
type AdjustmentKind string

const (
	AdjustmentMarginRate AdjustmentKind = "MARGIN_RATE"
	AdjustmentDiscount   AdjustmentKind = "DISCOUNT"
)

// Adjustment records one budget-fitting step.
type Adjustment struct {
	Kind   AdjustmentKind  `json:"kind"`
	Before decimal.Decimal `json:"before"`
	After  decimal.Decimal `json:"after"`
	Saving decimal.Decimal `json:"saving"`
	Note   string          `json:"note"`
}

// FitResult is a quote fitted under a budget.
type FitResult struct {
	Quote       QuoteBreakdown `json:"quote"`
	Base        QuoteBreakdown `json:"base"`
	Adjustments []Adjustment   `json:"adjustments"`
}

type normalizedQuote struct {
	sessions         int
	students         int64
	assistants       int64
	sessionFee       decimal.NullDecimal
	transportFee     decimal.NullDecimal
	materialPerHead  decimal.NullDecimal
	marginRate       decimal.Decimal
	discount         decimal.Decimal
	distanceKm       int
	presetTransport  decimal.NullDecimal
	programSession   decimal.NullDecimal
	programMaterials decimal.NullDecimal
}

func normalizeQuote(rates *RateTables, in QuoteInput, opts QuoteOptions) (normalizedQuote, error) {
	n := normalizedQuote{
		sessions:         in.SessionCount,
		students:         int64(in.StudentCount),
		assistants:       int64(in.AssistantCount),
		sessionFee:       opts.SessionFee,
		transportFee:     opts.TransportFee,
		materialPerHead:  opts.MaterialCostPerStudent,
		marginRate:       rates.MarginRate(),
		discount:         opts.Discount,
		distanceKm:       in.DistanceKm,
		presetTransport:  in.PresetTransportFee,
		programSession:   in.ProgramSessionFee,
		programMaterials: in.ProgramMaterialCost,
	}
	if n.sessions <= 0 {
		return n, appErrors.Clone(appErrors.ErrValidation, "session count must be positive")
	}
	if n.students <= 0 {
		return n, appErrors.Clone(appErrors.ErrValidation, "student count must be positive")
	}
	if opts.AssistantCount != nil {
		n.assistants = int64(*opts.AssistantCount)
	}
	if n.assistants < 0 {
		return n, appErrors.Clone(appErrors.ErrValidation, "assistant count must not be negative")
	}
	if opts.MarginRate.Valid {
		n.marginRate = opts.MarginRate.Decimal
	}
	if n.marginRate.IsNegative() || n.marginRate.GreaterThanOrEqual(maxRate) {
		return n, appErrors.Clone(appErrors.ErrValidation, "margin rate must be within [0, 1)")
	}
	if n.discount.IsNegative() {
		return n, appErrors.Clone(appErrors.ErrValidation, "discount must not be negative")
	}
	for name, v := range map[string]decimal.NullDecimal{
		"session fee":          n.sessionFee,
		"transport fee":        n.transportFee,
		"material cost":        n.materialPerHead,
		"preset transport fee": n.presetTransport,
		"program session fee":  n.programSession,
		"program material":     n.programMaterials,
	} {
		if v.Valid && v.Decimal.IsNegative() {
			return n, appErrors.Clone(appErrors.ErrValidation, name+" must not be negative")
		}
	}
	if n.distanceKm < 0 {
		n.distanceKm = 0
	}
	return n, nil
}

// CalculateQuote runs the quote chain. It is pure: identical inputs give identical breakdowns.
func CalculateQuote(rates *RateTables, in QuoteInput, opts QuoteOptions) (QuoteBreakdown, error) {
	n, err := normalizeQuote(rates, in, opts)
	if err != nil {
		return QuoteBreakdown{}, err
	}
	return calculate(rates, n)
}

func calculate(rates *RateTables, n normalizedQuote) (QuoteBreakdown, error) {
	var b QuoteBreakdown
	b.RateTableVersion = rates.Version()

	switch {
	case n.sessionFee.Valid:
		b.SessionFee = n.sessionFee.Decimal
	case n.programSession.Valid:
		b.SessionFee = n.programSession.Decimal
	default:
		fee, err := rates.SessionFee(n.sessions)
		if err != nil {
			return QuoteBreakdown{}, err
		}
		b.SessionFee = fee
	}

	switch {
	case n.transportFee.Valid:
		b.TransportFee = n.transportFee.Decimal
	case n.presetTransport.Valid:
		b.TransportFee = n.presetTransport.Decimal
	default:
		b.TransportFee = rates.Distance().TransportFee(n.distanceKm)
	}

	perHead := rates.MaterialCostPerStudent()
	switch {
	case n.materialPerHead.Valid:
		perHead = n.materialPerHead.Decimal
	case n.programMaterials.Valid:
		perHead = n.programMaterials.Decimal
	}
	b.MaterialCost = perHead.Mul(decimal.NewFromInt(n.students))

	b.AssistantFee = rates.AssistantFeePerSession().
		Mul(decimal.NewFromInt(int64(n.sessions))).
		Mul(decimal.NewFromInt(n.assistants))

	costs := b.SessionFee.Add(b.TransportFee).Add(b.MaterialCost).Add(b.AssistantFee)
	b.Overhead = costs.Mul(rates.OverheadRate()).Ceil()
	b.Subtotal = costs.Add(b.Overhead)

	b.MarginRate = n.marginRate
	b.Margin = b.Subtotal.Mul(n.marginRate).Ceil()
	b.VAT = b.Subtotal.Add(b.Margin).Mul(rates.VATRate()).Ceil()
	b.Total = b.Subtotal.Add(b.Margin).Add(b.VAT)

	b.Discount = n.discount
	if b.Discount.GreaterThan(b.Total) {
		return QuoteBreakdown{}, appErrors.Clone(appErrors.ErrValidation, "discount exceeds quote total")
	}
	b.FinalTotal = b.Total.Sub(b.Discount)
	return b, nil
}

// FitToBudget lowers the margin rate toward the floor, then discounts the
// remaining excess, recomputing the whole chain after every step.
func FitToBudget(rates *RateTables, in QuoteInput, opts QuoteOptions, target decimal.Decimal) (FitResult, error) {
	if target.IsNegative() {
		return FitResult{}, appErrors.Clone(appErrors.ErrValidation, "target budget must not be negative")
	}
	n, err := normalizeQuote(rates, in, opts)
	if err != nil {
		return FitResult{}, err
	}
	base, err := calculate(rates, n)
	if err != nil {
		return FitResult{}, err
	}
	result := FitResult{Quote: base, Base: base, Adjustments: []Adjustment{}}
	if base.FinalTotal.LessThanOrEqual(target) {
		return result, nil
	}

	current := base
	floor := rates.MarginFloorRate()
	if n.marginRate.GreaterThan(floor) && current.Subtotal.IsPositive() {
		rate := fittedMarginRate(current.Subtotal, rates.VATRate(), target.Add(n.discount), floor)
		n.marginRate = rate
		current, err = calculate(rates, n)
		if err != nil {
			return FitResult{}, err
		}
		result.Adjustments = append(result.Adjustments, Adjustment{
			Kind:   AdjustmentMarginRate,
			Before: base.MarginRate,
			After:  rate,
			Saving: base.FinalTotal.Sub(current.FinalTotal),
			Note:   fmt.Sprintf("margin rate lowered from %s to %s", base.MarginRate.String(), rate.String()),
		})
	}

	if current.FinalTotal.GreaterThan(target) {
		excess := current.FinalTotal.Sub(target)
		before := n.discount
		n.discount = n.discount.Add(excess)
		current, err = calculate(rates, n)
		if err != nil {
			return FitResult{}, err
		}
		result.Adjustments = append(result.Adjustments, Adjustment{
			Kind:   AdjustmentDiscount,
			Before: before,
			After:  n.discount,
			Saving: excess,
			Note:   fmt.Sprintf("discount of %s applied to reach budget %s", excess.String(), target.String()),
		})
	}

	result.Quote = current
	return result, nil
}

// fittedMarginRate returns the highest rate, not below floor, whose total
// (subtotal + margin + VAT) fits ceiling. The floor is returned when nothing fits.
func fittedMarginRate(subtotal, vatRate, ceiling, floor decimal.Decimal) decimal.Decimal {
	room := ceiling.Sub(subtotal)
	fits := func(margin decimal.Decimal) bool {
		vat := subtotal.Add(margin).Mul(vatRate).Ceil()
		return margin.Add(vat).LessThanOrEqual(room)
	}

	one := decimal.NewFromInt(1)
	margin := room.Sub(subtotal.Mul(vatRate)).Div(one.Add(vatRate)).Floor()
	for margin.IsPositive() && !fits(margin) {
		margin = margin.Sub(one)
	}
	for fits(margin.Add(one)) {
		margin = margin.Add(one)
	}

	floorMargin := subtotal.Mul(floor).Ceil()
	if margin.IsNegative() || margin.LessThan(floorMargin) || !fits(margin) {
		return floor
	}
	rate := margin.DivRound(subtotal, marginRatePlaces+2).Truncate(marginRatePlaces)
	step := decimal.New(1, -marginRatePlaces)
	for rate.IsPositive() && subtotal.Mul(rate).Ceil().GreaterThan(margin) {
		rate = rate.Sub(step)
	}
	if rate.LessThan(floor) {
		return floor
	}
	return rate
}
