package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-dispatch/internal/models"
	"github.com/noah-isme/sma-dispatch/internal/pricing"
	appErrors "github.com/noah-isme/sma-dispatch/pkg/errors"
)

// NewJobOutcome tags how far new-job processing got.
type NewJobOutcome string

const (
	OutcomeQuoted            NewJobOutcome = "QUOTED"
	OutcomeQuotedAndAssigned NewJobOutcome = "QUOTED_AND_ASSIGNED"
	OutcomeQuoteFailed       NewJobOutcome = "QUOTE_FAILED"
	OutcomeAssignmentFailed  NewJobOutcome = "ASSIGNMENT_FAILED"
)

// Automation stage labels.
const (
	stageQuote      = "quote"
	stageAssignment = "assignment"
	stagePayment    = "payment"
)

type quoteCreator interface {
	CreateQuote(ctx context.Context, jobID string, req QuoteRequest) (*QuoteResult, error)
}

type autoAssigner interface {
	AutoAssign(ctx context.Context, jobID string) (*AssignmentResult, error)
}

type paymentGenerator interface {
	AutoGenerate(ctx context.Context, assignmentID string, opts pricing.PaymentOptions) (*models.Payment, error)
}

// NewJobOptions selects the stages run for a new job.
type NewJobOptions struct {
	Quote      QuoteRequest
	AutoAssign bool
}

// NewJobResult reports each stage. On ASSIGNMENT_FAILED the quote stands and
// Error describes the matching failure.
type NewJobResult struct {
	JobID      string            `json:"job_id"`
	Outcome    NewJobOutcome     `json:"outcome"`
	Quote      *QuoteResult      `json:"quote,omitempty"`
	Assignment *AssignmentResult `json:"assignment,omitempty"`
	Error      *appErrors.Error  `json:"error,omitempty"`
}

// AutomationService sequences quoting, matching and payment. Each stage
// commits on its own.
type AutomationService struct {
	quotes   quoteCreator
	matcher  autoAssigner
	payments paymentGenerator
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewAutomationService wires the workflow.
func NewAutomationService(quotes quoteCreator, matcher autoAssigner, payments paymentGenerator, metrics *MetricsService, logger *zap.Logger) *AutomationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutomationService{quotes: quotes, matcher: matcher, payments: payments, metrics: metrics, logger: logger}
}

// ProcessNewJob quotes the job and, when requested, assigns a worker. A quote
// failure stops processing before matching.
func (s *AutomationService) ProcessNewJob(ctx context.Context, jobID string, opts NewJobOptions) *NewJobResult {
	result := &NewJobResult{JobID: jobID}
	log := s.logger.With(zap.String("job_id", jobID))

	quote, err := s.quotes.CreateQuote(ctx, jobID, opts.Quote)
	if err != nil {
		result.Outcome = OutcomeQuoteFailed
		result.Error = appErrors.FromError(err)
		s.metrics.ObserveStage(stageQuote, result.Error.Code)
		log.Warn("quote stage failed", zap.String("code", result.Error.Code), zap.Error(err))
		return result
	}
	result.Quote = quote
	result.Outcome = OutcomeQuoted
	s.metrics.ObserveStage(stageQuote, "ok")

	if !opts.AutoAssign {
		return result
	}

	assignment, err := s.matcher.AutoAssign(ctx, jobID)
	if err != nil {
		result.Outcome = OutcomeAssignmentFailed
		result.Error = appErrors.FromError(err)
		s.metrics.ObserveStage(stageAssignment, result.Error.Code)
		log.Warn("assignment stage failed, quote kept", zap.String("code", result.Error.Code), zap.Error(err))
		return result
	}
	result.Assignment = assignment
	result.Outcome = OutcomeQuotedAndAssigned
	s.metrics.ObserveStage(stageAssignment, "ok")
	return result
}

// ProcessCompletedJob records the payout of a completed assignment.
func (s *AutomationService) ProcessCompletedJob(ctx context.Context, assignmentID string, opts pricing.PaymentOptions) (*models.Payment, error) {
	payment, err := s.payments.AutoGenerate(ctx, assignmentID, opts)
	if err != nil {
		code := appErrors.FromError(err).Code
		s.metrics.ObserveStage(stagePayment, code)
		s.logger.Warn("payment stage failed", zap.String("assignment_id", assignmentID), zap.String("code", code), zap.Error(err))
		return nil, err
	}
	s.metrics.ObserveStage(stagePayment, "ok")
	return payment, nil
}
