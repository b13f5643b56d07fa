package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

// AssignmentStatus enumerates the binding lifecycle between worker and job.
type AssignmentStatus string

const (
	AssignmentStatusProposed  AssignmentStatus = "PROPOSED"
	AssignmentStatusAccepted  AssignmentStatus = "ACCEPTED"
	AssignmentStatusConfirmed AssignmentStatus = "CONFIRMED"
	AssignmentStatusCompleted AssignmentStatus = "COMPLETED"
	AssignmentStatusCancelled AssignmentStatus = "CANCELLED"
	AssignmentStatusDeclined  AssignmentStatus = "DECLINED"
)

// Active reports whether the assignment still occupies the job.
func (s AssignmentStatus) Active() bool {
	return s != AssignmentStatusCancelled && s != AssignmentStatusDeclined
}

// Assignment binds one worker to one job.
type Assignment struct {
	ID            string           `db:"id" json:"id"`
	JobID         string           `db:"job_id" json:"job_id"`
	WorkerID      string           `db:"worker_id" json:"worker_id"`
	Status        AssignmentStatus `db:"status" json:"status"`
	ScheduledDate *time.Time       `db:"scheduled_date" json:"scheduled_date,omitempty"`
	DistanceKm    int              `db:"distance_km" json:"distance_km"`
	TransportFee  decimal.Decimal  `db:"transport_fee" json:"transport_fee"`
	MatchScore    int              `db:"match_score" json:"match_score"`
	Reasons       types.JSONText   `db:"reasons" json:"reasons"`
	CompletedAt   *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}
