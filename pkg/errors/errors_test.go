package errors

import (
	"database/sql"
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	clone := Clone(ErrNoEligibleWorker, "no instructor within range")
	wrapped := fmt.Errorf("auto assign: %w", clone)

	assert.True(t, stdErrors.Is(wrapped, ErrNoEligibleWorker))
	assert.False(t, stdErrors.Is(wrapped, ErrWorkerUnavailable))
}

func TestRepositoryKeepsCause(t *testing.T) {
	err := Repository(sql.ErrConnDone, "failed to load job")

	assert.Equal(t, ErrRepositoryFailure.Code, err.Code)
	assert.True(t, stdErrors.Is(err, sql.ErrConnDone))
	assert.Contains(t, err.Error(), "failed to load job")
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	err := FromError(stdErrors.New("boom"))
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Nil(t, FromError(nil))
}
