package models

import "github.com/shopspring/decimal"

// Program is an entry in the educational program catalog.
type Program struct {
	ID                     string              `db:"id" json:"id"`
	Name                   string              `db:"name" json:"name"`
	Category               string              `db:"category" json:"category"`
	BaseSessionFee         decimal.NullDecimal `db:"base_session_fee" json:"base_session_fee"`
	MaterialCostPerStudent decimal.NullDecimal `db:"material_cost_per_student" json:"material_cost_per_student"`
}
