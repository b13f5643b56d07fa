package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-dispatch/internal/models"
	"github.com/noah-isme/sma-dispatch/internal/pricing"
	appErrors "github.com/noah-isme/sma-dispatch/pkg/errors"
)

type quoteCreatorStub struct {
	result *QuoteResult
	err    error
	calls  int
}

func (s *quoteCreatorStub) CreateQuote(ctx context.Context, jobID string, req QuoteRequest) (*QuoteResult, error) {
	s.calls++
	return s.result, s.err
}

type autoAssignerStub struct {
	result *AssignmentResult
	err    error
	calls  int
}

func (s *autoAssignerStub) AutoAssign(ctx context.Context, jobID string) (*AssignmentResult, error) {
	s.calls++
	return s.result, s.err
}

type paymentGeneratorStub struct {
	payment *models.Payment
	err     error
}

func (s *paymentGeneratorStub) AutoGenerate(ctx context.Context, assignmentID string, opts pricing.PaymentOptions) (*models.Payment, error) {
	return s.payment, s.err
}

func TestProcessNewJobQuotesAndAssigns(t *testing.T) {
	metrics := NewMetricsService()
	quotes := &quoteCreatorStub{result: &QuoteResult{Quote: &models.Quote{ID: "q-1"}}}
	matcher := &autoAssignerStub{result: &AssignmentResult{Assignment: &models.Assignment{ID: "as-1"}}}
	svc := NewAutomationService(quotes, matcher, nil, metrics, nil)

	result := svc.ProcessNewJob(context.Background(), "job-1", NewJobOptions{AutoAssign: true})
	assert.Equal(t, OutcomeQuotedAndAssigned, result.Outcome)
	assert.Equal(t, "q-1", result.Quote.Quote.ID)
	assert.Equal(t, "as-1", result.Assignment.Assignment.ID)
	assert.Nil(t, result.Error)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.stageOutcomes.WithLabelValues(stageQuote, "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.stageOutcomes.WithLabelValues(stageAssignment, "ok")))
}

func TestProcessNewJobWithoutAutoAssign(t *testing.T) {
	quotes := &quoteCreatorStub{result: &QuoteResult{}}
	matcher := &autoAssignerStub{}
	svc := NewAutomationService(quotes, matcher, nil, nil, nil)

	result := svc.ProcessNewJob(context.Background(), "job-1", NewJobOptions{})
	assert.Equal(t, OutcomeQuoted, result.Outcome)
	assert.Zero(t, matcher.calls)
}

func TestProcessNewJobStopsOnQuoteFailure(t *testing.T) {
	metrics := NewMetricsService()
	quotes := &quoteCreatorStub{err: appErrors.Clone(appErrors.ErrInvalidCoordinate, "site has no coordinates")}
	matcher := &autoAssignerStub{}
	svc := NewAutomationService(quotes, matcher, nil, metrics, nil)

	result := svc.ProcessNewJob(context.Background(), "job-1", NewJobOptions{AutoAssign: true})
	assert.Equal(t, OutcomeQuoteFailed, result.Outcome)
	require.NotNil(t, result.Error)
	assert.Equal(t, appErrors.ErrInvalidCoordinate.Code, result.Error.Code)
	assert.Nil(t, result.Quote)
	assert.Zero(t, matcher.calls)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.stageOutcomes.WithLabelValues(stageQuote, "INVALID_COORDINATE")))
}

func TestProcessNewJobKeepsQuoteWhenAssignmentFails(t *testing.T) {
	quotes := &quoteCreatorStub{result: &QuoteResult{Quote: &models.Quote{ID: "q-1"}}}
	matcher := &autoAssignerStub{err: appErrors.ErrNoEligibleWorker}
	svc := NewAutomationService(quotes, matcher, nil, nil, nil)

	result := svc.ProcessNewJob(context.Background(), "job-1", NewJobOptions{AutoAssign: true})
	assert.Equal(t, OutcomeAssignmentFailed, result.Outcome)
	require.NotNil(t, result.Quote)
	assert.Equal(t, "q-1", result.Quote.Quote.ID)
	assert.Nil(t, result.Assignment)
	assert.Equal(t, appErrors.ErrNoEligibleWorker.Code, result.Error.Code)
}

func TestProcessNewJobNormalisesUntypedErrors(t *testing.T) {
	quotes := &quoteCreatorStub{err: errors.New("boom")}
	svc := NewAutomationService(quotes, &autoAssignerStub{}, nil, nil, nil)

	result := svc.ProcessNewJob(context.Background(), "job-1", NewJobOptions{})
	assert.Equal(t, appErrors.ErrInternal.Code, result.Error.Code)
}

func TestProcessCompletedJob(t *testing.T) {
	metrics := NewMetricsService()
	payments := &paymentGeneratorStub{payment: &models.Payment{ID: "pay-1"}}
	svc := NewAutomationService(nil, nil, payments, metrics, nil)

	payment, err := svc.ProcessCompletedJob(context.Background(), "as-1", pricing.PaymentOptions{})
	require.NoError(t, err)
	assert.Equal(t, "pay-1", payment.ID)

	payments.err = appErrors.Clone(appErrors.ErrAssignmentNotCompleted, "assignment is CONFIRMED")
	_, err = svc.ProcessCompletedJob(context.Background(), "as-1", pricing.PaymentOptions{})
	assert.ErrorIs(t, err, appErrors.ErrAssignmentNotCompleted)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.stageOutcomes.WithLabelValues(stagePayment, "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.stageOutcomes.WithLabelValues(stagePayment, "ASSIGNMENT_NOT_COMPLETED")))
}
