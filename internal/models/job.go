package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// JobStatus enumerates the lifecycle of a school request.
type JobStatus string

const (
	JobStatusSubmitted JobStatus = "SUBMITTED"
	JobStatusQuoted    JobStatus = "QUOTED"
	JobStatusAssigned  JobStatus = "ASSIGNED"
	JobStatusAccepted  JobStatus = "ACCEPTED"
	JobStatusConfirmed JobStatus = "CONFIRMED"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusPaid      JobStatus = "PAID"
	JobStatusCancelled JobStatus = "CANCELLED"
)

// Closed reports whether no further automation may run for the job.
func (s JobStatus) Closed() bool {
	switch s {
	case JobStatusCompleted, JobStatusPaid, JobStatusCancelled:
		return true
	}
	return false
}

// Job is a school's request for an educational program.
type Job struct {
	ID                string              `db:"id" json:"id"`
	SiteID            string              `db:"site_id" json:"site_id"`
	ProgramID         *string             `db:"program_id" json:"program_id,omitempty"`
	CustomProgramName *string             `db:"custom_program_name" json:"custom_program_name,omitempty"`
	SessionCount      int                 `db:"session_count" json:"session_count"`
	StudentCount      int                 `db:"student_count" json:"student_count"`
	AssistantCount    int                 `db:"assistant_count" json:"assistant_count"`
	TargetGrade       *string             `db:"target_grade" json:"target_grade,omitempty"`
	DesiredDate       *time.Time          `db:"desired_date" json:"desired_date,omitempty"`
	FlexibleDate      bool                `db:"flexible_date" json:"flexible_date"`
	BudgetCeiling     decimal.NullDecimal `db:"budget_ceiling" json:"budget_ceiling"`
	Status            JobStatus           `db:"status" json:"status"`
	CreatedAt         time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time           `db:"updated_at" json:"updated_at"`
}
