package pricing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	appErrors "github.com/noah-isme/sma-dispatch/pkg/errors"
)

// DefaultVersion labels a snapshot built purely from compiled-in defaults.
const DefaultVersion = "default"

// RateValues is the mutable input used to build a RateTables snapshot.
// Zero-valued fields fall back to the documented defaults.
type RateValues struct {
	Version                string
	SessionFeeTiers        map[int]decimal.Decimal
	ExtraSessionFee        decimal.NullDecimal
	MaterialCostPerStudent decimal.NullDecimal
	AssistantFeePerSession decimal.NullDecimal
	OverheadRate           decimal.NullDecimal
	MarginRate             decimal.NullDecimal
	MarginFloorRate        decimal.NullDecimal
	VATRate                decimal.NullDecimal
	WithholdingRate        decimal.NullDecimal
	TransportFeeBands      []FeeBand
}

// DefaultSessionFeeTiers are the flat session-count fees for 2 to 6 sessions.
func DefaultSessionFeeTiers() map[int]decimal.Decimal {
	return map[int]decimal.Decimal{
		2: decimal.NewFromInt(60000),
		3: decimal.NewFromInt(90000),
		4: decimal.NewFromInt(120000),
		5: decimal.NewFromInt(150000),
		6: decimal.NewFromInt(180000),
	}
}

var (
	defaultExtraSessionFee  = decimal.NewFromInt(25000)
	defaultMaterialPerPupil = decimal.NewFromInt(5000)
	defaultAssistantFee     = decimal.NewFromInt(30000)
	defaultOverheadRate     = decimal.RequireFromString("0.10")
	defaultMarginRate       = decimal.RequireFromString("0.20")
	defaultMarginFloorRate  = decimal.RequireFromString("0.10")
	defaultVATRate          = decimal.RequireFromString("0.10")
	defaultWithholdingRate  = decimal.RequireFromString("0.033")
	maxRate                 = decimal.NewFromInt(1)
)

// RateTables is an immutable snapshot of every rate used by the calculators.
// Build a new snapshot to change a value.
type RateTables struct {
	version         string
	tiers           map[int]decimal.Decimal
	minTier         int
	maxTier         int
	extraSession    decimal.Decimal
	materialPerHead decimal.Decimal
	assistantFee    decimal.Decimal
	overheadRate    decimal.Decimal
	marginRate      decimal.Decimal
	marginFloor     decimal.Decimal
	vatRate         decimal.Decimal
	withholdingRate decimal.Decimal
	distance        *DistanceFeeTable
}

// DefaultRateTables returns the snapshot built from defaults only.
func DefaultRateTables() *RateTables {
	rt, err := NewRateTables(RateValues{})
	if err != nil {
		panic(fmt.Sprintf("default rate tables invalid: %v", err))
	}
	return rt
}

// NewRateTables validates values and freezes them into a snapshot.
func NewRateTables(values RateValues) (*RateTables, error) {
	rt := &RateTables{
		version:         values.Version,
		extraSession:    orDefault(values.ExtraSessionFee, defaultExtraSessionFee),
		materialPerHead: orDefault(values.MaterialCostPerStudent, defaultMaterialPerPupil),
		assistantFee:    orDefault(values.AssistantFeePerSession, defaultAssistantFee),
		overheadRate:    orDefault(values.OverheadRate, defaultOverheadRate),
		marginRate:      orDefault(values.MarginRate, defaultMarginRate),
		marginFloor:     orDefault(values.MarginFloorRate, defaultMarginFloorRate),
		vatRate:         orDefault(values.VATRate, defaultVATRate),
		withholdingRate: orDefault(values.WithholdingRate, defaultWithholdingRate),
	}
	if rt.version == "" {
		rt.version = DefaultVersion
	}

	tiers := values.SessionFeeTiers
	if len(tiers) == 0 {
		tiers = DefaultSessionFeeTiers()
	}
	if err := rt.setTiers(tiers); err != nil {
		return nil, err
	}

	bands := values.TransportFeeBands
	if len(bands) == 0 {
		bands = DefaultFeeBands()
	}
	table, err := NewDistanceFeeTable(bands)
	if err != nil {
		return nil, err
	}
	rt.distance = table

	for name, amount := range map[string]decimal.Decimal{
		"extra session fee": rt.extraSession,
		"material cost":     rt.materialPerHead,
		"assistant fee":     rt.assistantFee,
		"margin floor rate": rt.marginFloor,
	} {
		if amount.IsNegative() {
			return nil, appErrors.Clone(appErrors.ErrValidation, name+" must not be negative")
		}
	}
	for name, rate := range map[string]decimal.Decimal{
		"overhead rate":    rt.overheadRate,
		"margin rate":      rt.marginRate,
		"vat rate":         rt.vatRate,
		"withholding rate": rt.withholdingRate,
	} {
		if rate.IsNegative() || rate.GreaterThanOrEqual(maxRate) {
			return nil, appErrors.Clone(appErrors.ErrValidation, name+" must be within [0, 1)")
		}
	}
	if rt.marginFloor.GreaterThan(rt.marginRate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "margin floor rate exceeds margin rate")
	}
	return rt, nil
}

func (rt *RateTables) setTiers(tiers map[int]decimal.Decimal) error {
	counts := make([]int, 0, len(tiers))
	for n, fee := range tiers {
		if n <= 0 {
			return appErrors.Clone(appErrors.ErrValidation, "session fee tier must be for a positive session count")
		}
		if fee.IsNegative() {
			return appErrors.Clone(appErrors.ErrValidation, "session fee tier must not be negative")
		}
		counts = append(counts, n)
	}
	sort.Ints(counts)
	for i := 1; i < len(counts); i++ {
		if counts[i] != counts[i-1]+1 {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("session fee tiers skip %d sessions", counts[i-1]+1))
		}
	}
	rt.tiers = make(map[int]decimal.Decimal, len(tiers))
	for n, fee := range tiers {
		rt.tiers[n] = fee
	}
	rt.minTier = counts[0]
	rt.maxTier = counts[len(counts)-1]
	return nil
}

func orDefault(v decimal.NullDecimal, fallback decimal.Decimal) decimal.Decimal {
	if v.Valid {
		return v.Decimal
	}
	return fallback
}

// SessionFee looks up the tier table. Counts below the lowest tier bill the
// lowest tier; counts above the highest extrapolate linearly.
func (rt *RateTables) SessionFee(sessions int) (decimal.Decimal, error) {
	if sessions <= 0 {
		return decimal.Zero, appErrors.Clone(appErrors.ErrValidation, "session count must be positive")
	}
	switch {
	case sessions < rt.minTier:
		return rt.tiers[rt.minTier], nil
	case sessions <= rt.maxTier:
		return rt.tiers[sessions], nil
	default:
		extra := rt.extraSession.Mul(decimal.NewFromInt(int64(sessions - rt.maxTier)))
		return rt.tiers[rt.maxTier].Add(extra), nil
	}
}

// SessionFeeTiers returns a copy of the tier table.
func (rt *RateTables) SessionFeeTiers() map[int]decimal.Decimal {
	out := make(map[int]decimal.Decimal, len(rt.tiers))
	for n, fee := range rt.tiers {
		out[n] = fee
	}
	return out
}

// Version identifies the settings the snapshot was built from.
func (rt *RateTables) Version() string {
	return rt.version
}

// Distance is the transport fee table.
func (rt *RateTables) Distance() *DistanceFeeTable {
	return rt.distance
}

// ExtraSessionFee is billed per session above the highest tier.
func (rt *RateTables) ExtraSessionFee() decimal.Decimal {
	return rt.extraSession
}

// MaterialCostPerStudent is the default material cost per student.
func (rt *RateTables) MaterialCostPerStudent() decimal.Decimal {
	return rt.materialPerHead
}

// AssistantFeePerSession is charged per assistant and session.
func (rt *RateTables) AssistantFeePerSession() decimal.Decimal {
	return rt.assistantFee
}

// OverheadRate is applied to direct costs.
func (rt *RateTables) OverheadRate() decimal.Decimal {
	return rt.overheadRate
}

// MarginRate is the default margin on the subtotal.
func (rt *RateTables) MarginRate() decimal.Decimal {
	return rt.marginRate
}

// MarginFloorRate is the lowest margin budget fitting may reach.
func (rt *RateTables) MarginFloorRate() decimal.Decimal {
	return rt.marginFloor
}

// VATRate is applied to subtotal plus margin.
func (rt *RateTables) VATRate() decimal.Decimal {
	return rt.vatRate
}

// WithholdingRate is withheld from worker payouts.
func (rt *RateTables) WithholdingRate() decimal.Decimal {
	return rt.withholdingRate
}
