package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-dispatch/internal/models"
)

// JobRepository reads school requests and moves them through their lifecycle.
type JobRepository struct {
	executor
}

// NewJobRepository constructs the repository.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{executor{db: db}}
}

const jobColumns = `id, site_id, program_id, custom_program_name, session_count, student_count, assistant_count,
       target_grade, desired_date, flexible_date, budget_ceiling, status, created_at, updated_at`

// FindByID loads a job.
func (r *JobRepository) FindByID(ctx context.Context, id string) (*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	var job models.Job
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateStatus sets the job status, inside exec when provided.
func (r *JobRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.JobStatus) error {
	const query = `UPDATE jobs SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.target(exec).ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("job status rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
