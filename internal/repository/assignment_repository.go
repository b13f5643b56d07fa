package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-dispatch/internal/models"
)

// AssignmentRepository persists worker-job bindings. A partial unique index on
// job_id over active statuses backs the one-active-assignment rule.
type AssignmentRepository struct {
	executor
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{executor{db: db}}
}

const assignmentColumns = `id, job_id, worker_id, status, scheduled_date, distance_km, transport_fee,
       match_score, reasons, completed_at, created_at, updated_at`

// FindByID loads an assignment.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// FindActiveByJob returns the job's active assignment or sql.ErrNoRows.
func (r *AssignmentRepository) FindActiveByJob(ctx context.Context, jobID string) (*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments
WHERE job_id = $1 AND status NOT IN ($2, $3)
ORDER BY created_at DESC LIMIT 1`
	var assignment models.Assignment
	err := r.db.GetContext(ctx, &assignment, query, jobID, models.AssignmentStatusCancelled, models.AssignmentStatusDeclined)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find active assignment: %w", err)
	}
	return &assignment, nil
}

// Create inserts the assignment, inside exec when provided. A second active
// assignment for the job yields ErrDuplicate.
func (r *AssignmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	assignment.CreatedAt = now
	assignment.UpdatedAt = now
	if len(assignment.Reasons) == 0 {
		assignment.Reasons = []byte("[]")
	}
	const query = `INSERT INTO assignments (id, job_id, worker_id, status, scheduled_date, distance_km, transport_fee,
       match_score, reasons, completed_at, created_at, updated_at)
VALUES (:id, :job_id, :worker_id, :status, :scheduled_date, :distance_km, :transport_fee,
       :match_score, :reasons, :completed_at, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.target(exec), query, assignment); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}
