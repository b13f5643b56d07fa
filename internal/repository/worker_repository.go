package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-dispatch/internal/models"
)

// WorkerRepository reads instructors.
type WorkerRepository struct {
	db *sqlx.DB
}

// NewWorkerRepository constructs the repository.
func NewWorkerRepository(db *sqlx.DB) *WorkerRepository {
	return &WorkerRepository{db: db}
}

const workerColumns = `id, name, status, home_region, home_latitude, home_longitude, max_travel_km,
       available_weekdays, specialty_tags, experience_years, rating, default_session_fee, created_at`

// FindByID loads a worker regardless of status.
func (r *WorkerRepository) FindByID(ctx context.Context, id string) (*models.Worker, error) {
	query := `SELECT ` + workerColumns + ` FROM workers WHERE id = $1`
	var worker models.Worker
	if err := r.db.GetContext(ctx, &worker, query, id); err != nil {
		return nil, err
	}
	return &worker, nil
}

// ListActive returns every ACTIVE worker ordered by id.
func (r *WorkerRepository) ListActive(ctx context.Context) ([]models.Worker, error) {
	query := `SELECT ` + workerColumns + ` FROM workers WHERE status = $1 ORDER BY id ASC`
	var workers []models.Worker
	if err := r.db.SelectContext(ctx, &workers, query, models.WorkerStatusActive); err != nil {
		return nil, fmt.Errorf("list active workers: %w", err)
	}
	return workers, nil
}
