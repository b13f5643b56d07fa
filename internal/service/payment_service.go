package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-dispatch/internal/models"
	"github.com/noah-isme/sma-dispatch/internal/pricing"
	appErrors "github.com/noah-isme/sma-dispatch/pkg/errors"
)

type paymentRepository interface {
	ExistsByAssignment(ctx context.Context, assignmentID string) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, payment *models.Payment) error
}

type workerReader interface {
	FindByID(ctx context.Context, id string) (*models.Worker, error)
}

// PaymentPreview is a computed payout that has not been stored.
type PaymentPreview struct {
	Assignment       *models.Assignment       `json:"assignment"`
	Breakdown        pricing.PaymentBreakdown `json:"breakdown"`
	AccountingPeriod string                   `json:"accounting_period"`
}

// PaymentService computes and records worker payouts.
type PaymentService struct {
	assignments assignmentRepository
	jobs        jobRepository
	sites       siteReader
	workers     workerReader
	payments    paymentRepository
	rates       rateSource
	tx          txProvider
	notifier    Notifier
	logger      *zap.Logger
	now         func() time.Time
}

// NewPaymentService wires payment dependencies.
func NewPaymentService(
	assignments assignmentRepository,
	jobs jobRepository,
	sites siteReader,
	workers workerReader,
	payments paymentRepository,
	rates rateSource,
	tx txProvider,
	notifier Notifier,
	logger *zap.Logger,
) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &PaymentService{
		assignments: assignments,
		jobs:        jobs,
		sites:       sites,
		workers:     workers,
		payments:    payments,
		rates:       rates,
		tx:          tx,
		notifier:    notifier,
		logger:      logger,
		now:         time.Now,
	}
}

// Calculate computes the payout for a COMPLETED assignment without writing.
func (s *PaymentService) Calculate(ctx context.Context, assignmentID string, opts pricing.PaymentOptions) (*PaymentPreview, error) {
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, storageError(err, appErrors.Clone(appErrors.ErrNotFound, "assignment not found"), nil, "failed to load assignment")
	}
	if assignment.Status != models.AssignmentStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrAssignmentNotCompleted, fmt.Sprintf("assignment is %s", assignment.Status))
	}

	job, err := s.jobs.FindByID(ctx, assignment.JobID)
	if err != nil {
		return nil, storageError(err, appErrors.Clone(appErrors.ErrNotFound, "job not found"), nil, "failed to load job")
	}
	site, err := s.sites.FindByID(ctx, job.SiteID)
	if err != nil {
		return nil, storageError(err, appErrors.Clone(appErrors.ErrNotFound, "site not found"), nil, "failed to load site")
	}
	worker, err := s.workers.FindByID(ctx, assignment.WorkerID)
	if err != nil {
		return nil, storageError(err, appErrors.Clone(appErrors.ErrNotFound, "worker not found"), nil, "failed to load worker")
	}

	rates, err := s.rates.Current(ctx)
	if err != nil {
		return nil, err
	}
	breakdown, err := pricing.CalculatePayment(rates, pricing.PaymentInput{
		SessionCount:       job.SessionCount,
		DistanceKm:         assignment.DistanceKm,
		WorkerSessionFee:   worker.DefaultSessionFee,
		PresetTransportFee: site.PresetTransportFee,
	}, opts)
	if err != nil {
		return nil, err
	}
	return &PaymentPreview{
		Assignment:       assignment,
		Breakdown:        breakdown,
		AccountingPeriod: s.accountingPeriod(assignment),
	}, nil
}

// AutoGenerate computes and stores the payout, moving the job to PAID in the
// same transaction.
func (s *PaymentService) AutoGenerate(ctx context.Context, assignmentID string, opts pricing.PaymentOptions) (*models.Payment, error) {
	preview, err := s.Calculate(ctx, assignmentID, opts)
	if err != nil {
		return nil, err
	}
	exists, err := s.payments.ExistsByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, appErrors.Repository(err, "failed to check existing payment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrPaymentAlreadyExists, "")
	}

	assignment, b := preview.Assignment, preview.Breakdown
	payment := &models.Payment{
		AssignmentID:     assignment.ID,
		JobID:            assignment.JobID,
		WorkerID:         assignment.WorkerID,
		SessionFee:       b.SessionFee,
		TransportFee:     b.TransportFee,
		Bonus:            b.Bonus,
		Subtotal:         b.Subtotal,
		WithholdingRate:  b.WithholdingRate,
		TaxWithholding:   b.TaxWithholding,
		Deductions:       b.Deductions,
		NetAmount:        b.NetAmount,
		AccountingPeriod: preview.AccountingPeriod,
	}

	err = withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if err := s.payments.Create(ctx, tx, payment); err != nil {
			return storageError(err, nil, appErrors.ErrPaymentAlreadyExists, "failed to create payment")
		}
		if err := s.jobs.UpdateStatus(ctx, tx, assignment.JobID, models.JobStatusPaid); err != nil {
			return storageError(err, appErrors.Clone(appErrors.ErrNotFound, "job not found"), nil, "failed to update job status")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment recorded",
		zap.String("assignment_id", assignment.ID),
		zap.String("worker_id", assignment.WorkerID),
		zap.String("net_amount", payment.NetAmount.String()),
		zap.String("period", payment.AccountingPeriod),
	)
	notifyAfterCommit(s.logger, "payment", payment.ID, s.notifier.NotifyPaymentProcessed(ctx, payment))
	return payment, nil
}

// accountingPeriod is the YYYY-MM of the scheduled date, then of completion,
// then of now.
func (s *PaymentService) accountingPeriod(a *models.Assignment) string {
	switch {
	case a.ScheduledDate != nil:
		return a.ScheduledDate.Format("2006-01")
	case a.CompletedAt != nil:
		return a.CompletedAt.Format("2006-01")
	default:
		return s.now().UTC().Format("2006-01")
	}
}
