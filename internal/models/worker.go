package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// WorkerStatus enumerates instructor account states.
type WorkerStatus string

const (
	WorkerStatusActive     WorkerStatus = "ACTIVE"
	WorkerStatusPending    WorkerStatus = "PENDING"
	WorkerStatusSuspended  WorkerStatus = "SUSPENDED"
	WorkerStatusTerminated WorkerStatus = "TERMINATED"
)

// Worker is an instructor that can be matched to jobs.
type Worker struct {
	ID                string              `db:"id" json:"id"`
	Name              string              `db:"name" json:"name"`
	Status            WorkerStatus        `db:"status" json:"status"`
	HomeRegion        string              `db:"home_region" json:"home_region"`
	HomeLatitude      *float64            `db:"home_latitude" json:"home_latitude,omitempty"`
	HomeLongitude     *float64            `db:"home_longitude" json:"home_longitude,omitempty"`
	MaxTravelKm       int                 `db:"max_travel_km" json:"max_travel_km"`
	AvailableWeekdays pq.StringArray      `db:"available_weekdays" json:"available_weekdays"`
	SpecialtyTags     pq.StringArray      `db:"specialty_tags" json:"specialty_tags"`
	ExperienceYears   int                 `db:"experience_years" json:"experience_years"`
	Rating            *float64            `db:"rating" json:"rating,omitempty"`
	DefaultSessionFee decimal.NullDecimal `db:"default_session_fee" json:"default_session_fee"`
	CreatedAt         time.Time           `db:"created_at" json:"created_at"`
}

var weekdayCodes = [...]string{"SUN", "MON", "TUE", "WED", "THU", "FRI", "SAT"}

// WeekdayCode returns the three letter code stored in available_weekdays.
func WeekdayCode(d time.Weekday) string {
	return weekdayCodes[d]
}

// AvailableOn reports whether the worker lists the weekday as available.
func (w Worker) AvailableOn(d time.Weekday) bool {
	code := WeekdayCode(d)
	for _, day := range w.AvailableWeekdays {
		if strings.EqualFold(strings.TrimSpace(day), code) {
			return true
		}
	}
	return false
}
