package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-dispatch/internal/repository"
	appErrors "github.com/noah-isme/sma-dispatch/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// withTx runs fn inside one transaction. Any error from fn rolls back every write.
func withTx(ctx context.Context, provider txProvider, fn func(tx *sqlx.Tx) error) (err error) {
	if provider == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := provider.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Repository(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Repository(err, "failed to commit transaction")
	}
	return nil
}

// storageError classifies a repository failure. Typed errors pass through.
func storageError(err error, notFound, duplicate *appErrors.Error, message string) error {
	var typed *appErrors.Error
	switch {
	case errors.As(err, &typed):
		return typed
	case notFound != nil && errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(notFound, "")
	case duplicate != nil && errors.Is(err, repository.ErrDuplicate):
		return appErrors.Clone(duplicate, "")
	default:
		return appErrors.Repository(err, message)
	}
}
