package pricing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	appErrors "github.com/noah-isme/sma-dispatch/pkg/errors"
)

const earthRadiusKm = 6371.0

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64
	Lng float64
}

// PointFrom builds a Point from nullable columns. ok is false when either half is missing.
func PointFrom(lat, lng *float64) (Point, bool) {
	if lat == nil || lng == nil {
		return Point{}, false
	}
	return Point{Lat: *lat, Lng: *lng}, true
}

func (p Point) valid() bool {
	return !math.IsNaN(p.Lat) && !math.IsNaN(p.Lng) &&
		p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// DistanceKm returns the great-circle distance between a and b in whole kilometres.
func DistanceKm(a, b Point) (int, error) {
	if !a.valid() || !b.valid() {
		return 0, appErrors.Clone(appErrors.ErrInvalidCoordinate, "coordinate out of range")
	}
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return int(math.Round(earthRadiusKm * c)), nil
}

// ResolveDistance applies the preset-first policy: a preset distance wins,
// otherwise both points are required.
func ResolveDistance(preset *int, from, to *Point) (int, error) {
	if preset != nil {
		if *preset < 0 {
			return 0, nil
		}
		return *preset, nil
	}
	if from == nil || to == nil {
		return 0, appErrors.ErrInvalidCoordinate
	}
	return DistanceKm(*from, *to)
}

// FeeBand starts at FromKm and runs up to the next band's FromKm.
type FeeBand struct {
	FromKm int             `json:"from_km"`
	Fee    decimal.Decimal `json:"fee"`
}

// DistanceFeeTable maps a distance onto a transport fee. The last band is unbounded.
type DistanceFeeTable struct {
	bands []FeeBand
}

// DefaultFeeBands is [0,40)→0, [40,70)→15000, [70,100)→30000, [100,∞)→45000.
func DefaultFeeBands() []FeeBand {
	return []FeeBand{
		{FromKm: 0, Fee: decimal.Zero},
		{FromKm: 40, Fee: decimal.NewFromInt(15000)},
		{FromKm: 70, Fee: decimal.NewFromInt(30000)},
		{FromKm: 100, Fee: decimal.NewFromInt(45000)},
	}
}

// NewDistanceFeeTable validates bands: first must start at 0, bounds strictly
// increasing, fees non-negative and non-decreasing.
func NewDistanceFeeTable(bands []FeeBand) (*DistanceFeeTable, error) {
	if len(bands) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "transport fee table is empty")
	}
	if bands[0].FromKm != 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "transport fee table must start at 0 km")
	}
	copied := make([]FeeBand, len(bands))
	copy(copied, bands)
	for i, band := range copied {
		if band.Fee.IsNegative() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("transport fee band %d is negative", i))
		}
		if i == 0 {
			continue
		}
		prev := copied[i-1]
		if band.FromKm <= prev.FromKm {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("transport fee band %d is not strictly ordered", i))
		}
		if band.Fee.LessThan(prev.Fee) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("transport fee band %d decreases", i))
		}
	}
	return &DistanceFeeTable{bands: copied}, nil
}

// TransportFee is defined for every distance; negatives count as 0 km.
func (t *DistanceFeeTable) TransportFee(distanceKm int) decimal.Decimal {
	fee := t.bands[0].Fee
	for _, band := range t.bands[1:] {
		if distanceKm < band.FromKm {
			break
		}
		fee = band.Fee
	}
	return fee
}

// Bands returns a copy of the table.
func (t *DistanceFeeTable) Bands() []FeeBand {
	out := make([]FeeBand, len(t.bands))
	copy(out, t.bands)
	return out
}

// CanTravel reports whether distanceKm is within the worker's range.
func CanTravel(maxDistanceKm, distanceKm int) bool {
	return distanceKm <= maxDistanceKm
}
