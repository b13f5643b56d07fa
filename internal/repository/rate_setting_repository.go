package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-dispatch/internal/models"
)

// RateSettingRepository persists the key/value rate configuration.
type RateSettingRepository struct {
	db *sqlx.DB
}

// NewRateSettingRepository constructs the repository.
func NewRateSettingRepository(db *sqlx.DB) *RateSettingRepository {
	return &RateSettingRepository{db: db}
}

const upsertRateSettingQuery = `INSERT INTO rate_settings (key, value, description, updated_by, updated_at)
VALUES (:key, :value, :description, :updated_by, :updated_at)
ON CONFLICT (key)
DO UPDATE SET value = EXCLUDED.value, description = EXCLUDED.description,
              updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`

// ListAll returns every setting ordered by key.
func (r *RateSettingRepository) ListAll(ctx context.Context) ([]models.RateSetting, error) {
	const query = `SELECT key, value, description, updated_by, updated_at FROM rate_settings ORDER BY key ASC`
	var settings []models.RateSetting
	if err := r.db.SelectContext(ctx, &settings, query); err != nil {
		return nil, fmt.Errorf("list rate settings: %w", err)
	}
	return settings, nil
}

// BulkUpsert writes all settings in one transaction.
func (r *RateSettingRepository) BulkUpsert(ctx context.Context, settings []models.RateSetting) error {
	if len(settings) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rate settings tx: %w", err)
	}
	now := time.Now().UTC()
	for i := range settings {
		settings[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, upsertRateSettingQuery, settings[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert rate setting %s: %w", settings[i].Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rate settings tx: %w", err)
	}
	return nil
}
