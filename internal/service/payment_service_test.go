package service

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-dispatch/internal/models"
	"github.com/noah-isme/sma-dispatch/internal/pricing"
	"github.com/noah-isme/sma-dispatch/internal/repository"
	appErrors "github.com/noah-isme/sma-dispatch/pkg/errors"
)

type paymentFixture struct {
	svc         *PaymentService
	assignments *assignmentRepoStub
	jobs        *jobRepoStub
	payments    *paymentRepoStub
	workers     *workerRepoStub
	notifier    *notifierStub
	mock        sqlmock.Sqlmock
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	tx, mock := newTxProviderMock(t)
	assignments := &assignmentRepoStub{items: map[string]*models.Assignment{
		"as-1": {
			ID: "as-1", JobID: "job-1", WorkerID: "w-1", Status: models.AssignmentStatusCompleted,
			ScheduledDate: datePtr(2026, 11, 4), DistanceKm: 50,
		},
		"as-2": {ID: "as-2", JobID: "job-1", WorkerID: "w-1", Status: models.AssignmentStatusConfirmed, DistanceKm: 50},
	}}
	jobs := &jobRepoStub{items: map[string]*models.Job{
		"job-1": {ID: "job-1", SiteID: "site-1", SessionCount: 3, StudentCount: 20, Status: models.JobStatusCompleted},
	}}
	workers := &workerRepoStub{workers: []models.Worker{{ID: "w-1"}}}
	payments := &paymentRepoStub{}
	notifier := &notifierStub{}
	svc := NewPaymentService(assignments, jobs, siteRepoStub{"site-1": {ID: "site-1"}}, workers, payments, staticRates{}, tx, notifier, nil)
	svc.now = func() time.Time { return time.Date(2027, 1, 3, 0, 0, 0, 0, time.UTC) }
	return &paymentFixture{svc: svc, assignments: assignments, jobs: jobs, payments: payments, workers: workers, notifier: notifier, mock: mock}
}

func TestPaymentCalculateRequiresCompletedAssignment(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.svc.Calculate(context.Background(), "as-2", pricing.PaymentOptions{})
	assert.ErrorIs(t, err, appErrors.ErrAssignmentNotCompleted)

	_, err = f.svc.AutoGenerate(context.Background(), "as-2", pricing.PaymentOptions{})
	assert.ErrorIs(t, err, appErrors.ErrAssignmentNotCompleted)
	assert.Empty(t, f.payments.created)
	assert.Empty(t, f.jobs.updates)
	assert.NoError(t, f.mock.ExpectationsWereMet())

	_, err = f.svc.Calculate(context.Background(), "missing", pricing.PaymentOptions{})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestPaymentCalculateDefaults(t *testing.T) {
	f := newPaymentFixture(t)

	preview, err := f.svc.Calculate(context.Background(), "as-1", pricing.PaymentOptions{})
	require.NoError(t, err)
	assert.Equal(t, "90000", preview.Breakdown.SessionFee.String())
	assert.Equal(t, "15000", preview.Breakdown.TransportFee.String())
	assert.Equal(t, "3465", preview.Breakdown.TaxWithholding.String())
	assert.Equal(t, "101535", preview.Breakdown.NetAmount.String())
	assert.Equal(t, "2026-11", preview.AccountingPeriod)
}

func TestPaymentCalculateUsesWorkerFee(t *testing.T) {
	f := newPaymentFixture(t)
	f.workers.workers[0].DefaultSessionFee = decimal.NewNullDecimal(decimal.NewFromInt(70000))

	preview, err := f.svc.Calculate(context.Background(), "as-1", pricing.PaymentOptions{Deductions: decimal.NewFromInt(2000)})
	require.NoError(t, err)
	assert.Equal(t, "70000", preview.Breakdown.SessionFee.String())
	assert.Equal(t, "85000", preview.Breakdown.Subtotal.String())
	assert.Equal(t, "2805", preview.Breakdown.TaxWithholding.String())
	assert.Equal(t, "80195", preview.Breakdown.NetAmount.String())
}

func TestPaymentAutoGenerateRecordsPaymentAndMarksPaid(t *testing.T) {
	f := newPaymentFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	payment, err := f.svc.AutoGenerate(context.Background(), "as-1", pricing.PaymentOptions{Bonus: decimal.NewFromInt(1234)})
	require.NoError(t, err)
	require.Len(t, f.payments.created, 1)
	assert.Equal(t, "pay-new", payment.ID)
	assert.Equal(t, "job-1", payment.JobID)
	assert.Equal(t, "w-1", payment.WorkerID)
	assert.Equal(t, "106234", payment.Subtotal.String())
	assert.Equal(t, "3505", payment.TaxWithholding.String())
	assert.Equal(t, "102729", payment.NetAmount.String())
	assert.Equal(t, "0.033", payment.WithholdingRate.String())
	assert.Equal(t, "2026-11", payment.AccountingPeriod)
	assert.Equal(t, []models.JobStatus{models.JobStatusPaid}, f.jobs.updates)
	require.Len(t, f.notifier.payments, 1)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestPaymentAutoGenerateRejectsDuplicate(t *testing.T) {
	f := newPaymentFixture(t)
	f.payments.exists = true

	_, err := f.svc.AutoGenerate(context.Background(), "as-1", pricing.PaymentOptions{})
	assert.ErrorIs(t, err, appErrors.ErrPaymentAlreadyExists)
	assert.Empty(t, f.jobs.updates)

	f.payments.exists = false
	f.payments.createErr = repository.ErrDuplicate
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err = f.svc.AutoGenerate(context.Background(), "as-1", pricing.PaymentOptions{})
	assert.ErrorIs(t, err, appErrors.ErrPaymentAlreadyExists)
	assert.Empty(t, f.jobs.updates)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestPaymentAccountingPeriodFallbacks(t *testing.T) {
	f := newPaymentFixture(t)
	completed := time.Date(2026, 12, 30, 15, 0, 0, 0, time.UTC)

	assert.Equal(t, "2026-12", f.svc.accountingPeriod(&models.Assignment{CompletedAt: &completed}))
	assert.Equal(t, "2027-01", f.svc.accountingPeriod(&models.Assignment{}))
}
