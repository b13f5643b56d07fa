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

// QuoteRepository persists priced offers. quotes.job_id is unique.
type QuoteRepository struct {
	executor
}

// NewQuoteRepository constructs the repository.
func NewQuoteRepository(db *sqlx.DB) *QuoteRepository {
	return &QuoteRepository{executor{db: db}}
}

// ExistsByJob reports whether the job already has a quote.
func (r *QuoteRepository) ExistsByJob(ctx context.Context, jobID string) (bool, error) {
	const query = `SELECT 1 FROM quotes WHERE job_id = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, jobID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check quote: %w", err)
	}
	return true, nil
}

// FindByJob loads the job's quote.
func (r *QuoteRepository) FindByJob(ctx context.Context, jobID string) (*models.Quote, error) {
	const query = `SELECT id, job_id, session_fee, transport_fee, material_cost, assistant_fee, overhead, subtotal,
       margin_rate, margin, vat, total, discount, final_total, adjustments, rate_table_version,
       valid_from, valid_until, created_at
FROM quotes WHERE job_id = $1`
	var quote models.Quote
	if err := r.db.GetContext(ctx, &quote, query, jobID); err != nil {
		return nil, err
	}
	return &quote, nil
}

// Create inserts the quote, inside exec when provided.
func (r *QuoteRepository) Create(ctx context.Context, exec sqlx.ExtContext, quote *models.Quote) error {
	if quote.ID == "" {
		quote.ID = uuid.NewString()
	}
	quote.CreatedAt = time.Now().UTC()
	if len(quote.Adjustments) == 0 {
		quote.Adjustments = []byte("[]")
	}
	const query = `INSERT INTO quotes (id, job_id, session_fee, transport_fee, material_cost, assistant_fee, overhead,
       subtotal, margin_rate, margin, vat, total, discount, final_total, adjustments, rate_table_version,
       valid_from, valid_until, created_at)
VALUES (:id, :job_id, :session_fee, :transport_fee, :material_cost, :assistant_fee, :overhead,
       :subtotal, :margin_rate, :margin, :vat, :total, :discount, :final_total, :adjustments, :rate_table_version,
       :valid_from, :valid_until, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.target(exec), query, quote); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create quote: %w", err)
	}
	return nil
}
