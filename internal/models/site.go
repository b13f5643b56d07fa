package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Site is the school where a job takes place.
type Site struct {
	ID                 string              `db:"id" json:"id"`
	Name               string              `db:"name" json:"name"`
	Region             string              `db:"region" json:"region"`
	Latitude           *float64            `db:"latitude" json:"latitude,omitempty"`
	Longitude          *float64            `db:"longitude" json:"longitude,omitempty"`
	DistanceKm         *int                `db:"distance_km" json:"distance_km,omitempty"`
	PresetTransportFee decimal.NullDecimal `db:"preset_transport_fee" json:"preset_transport_fee"`
	AnnualBudget       decimal.NullDecimal `db:"annual_budget" json:"annual_budget"`
	UpdatedAt          time.Time           `db:"updated_at" json:"updated_at"`
}
