package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-dispatch/internal/models"
)

func TestWorkerRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewWorkerRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "status", "home_region", "home_latitude", "home_longitude", "max_travel_km",
		"available_weekdays", "specialty_tags", "experience_years", "rating", "default_session_fee", "created_at"}).
		AddRow("w-1", "Kim", "ACTIVE", "Seoul", 37.55, 126.98, 60, "{MON,WED}", "{AI,coding}", 5, 4.7, nil, time.Now()).
		AddRow("w-2", "Lee", "ACTIVE", "Busan", nil, nil, 30, "{}", "{art}", 2, nil, "70000", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM workers WHERE status = $1 ORDER BY id ASC")).
		WithArgs(models.WorkerStatusActive).
		WillReturnRows(rows)

	workers, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, workers, 2)
	assert.Equal(t, []string{"MON", "WED"}, []string(workers[0].AvailableWeekdays))
	assert.Equal(t, []string{"AI", "coding"}, []string(workers[0].SpecialtyTags))
	assert.True(t, workers[0].AvailableOn(time.Wednesday))
	assert.False(t, workers[0].AvailableOn(time.Friday))
	assert.Nil(t, workers[1].HomeLatitude)
	assert.Nil(t, workers[1].Rating)
	assert.Equal(t, "70000", workers[1].DefaultSessionFee.Decimal.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSiteAndProgramRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("FROM sites WHERE id = $1")).
		WithArgs("site-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "region", "latitude", "longitude", "distance_km",
			"preset_transport_fee", "annual_budget", "updated_at"}).
			AddRow("site-1", "Hanbit Elementary", "Seoul", nil, nil, 54, nil, "5000000", time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("FROM programs WHERE id = $1")).
		WithArgs("prog-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "category", "base_session_fee", "material_cost_per_student"}).
			AddRow("prog-1", "AI Coding Camp", "fourth_industry", nil, "4000"))

	site, err := NewSiteRepository(db).FindByID(context.Background(), "site-1")
	require.NoError(t, err)
	require.NotNil(t, site.DistanceKm)
	assert.Equal(t, 54, *site.DistanceKm)
	assert.False(t, site.PresetTransportFee.Valid)

	program, err := NewProgramRepository(db).FindByID(context.Background(), "prog-1")
	require.NoError(t, err)
	assert.False(t, program.BaseSessionFee.Valid)
	assert.Equal(t, "4000", program.MaterialCostPerStudent.Decimal.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}
