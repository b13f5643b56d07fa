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

// PaymentRepository persists worker payouts. payments.assignment_id is unique.
type PaymentRepository struct {
	executor
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{executor{db: db}}
}

// ExistsByAssignment reports whether the assignment has been paid out.
func (r *PaymentRepository) ExistsByAssignment(ctx context.Context, assignmentID string) (bool, error) {
	const query = `SELECT 1 FROM payments WHERE assignment_id = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, assignmentID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check payment: %w", err)
	}
	return true, nil
}

// Create inserts the payment, inside exec when provided.
func (r *PaymentRepository) Create(ctx context.Context, exec sqlx.ExtContext, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	payment.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO payments (id, assignment_id, job_id, worker_id, session_fee, transport_fee, bonus, subtotal,
       withholding_rate, tax_withholding, deductions, net_amount, accounting_period, created_at)
VALUES (:id, :assignment_id, :job_id, :worker_id, :session_fee, :transport_fee, :bonus, :subtotal,
       :withholding_rate, :tax_withholding, :deductions, :net_amount, :accounting_period, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.target(exec), query, payment); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}
