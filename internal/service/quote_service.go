package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-dispatch/internal/models"
	"github.com/noah-isme/sma-dispatch/internal/pricing"
	appErrors "github.com/noah-isme/sma-dispatch/pkg/errors"
)

type quoteRepository interface {
	ExistsByJob(ctx context.Context, jobID string) (bool, error)
	FindByJob(ctx context.Context, jobID string) (*models.Quote, error)
	Create(ctx context.Context, exec sqlx.ExtContext, quote *models.Quote) error
}

// QuoteRequest carries caller overrides for one quote.
type QuoteRequest struct {
	Options     pricing.QuoteOptions
	FitToBudget bool
	// TargetBudget replaces the job's budget ceiling as the fitting target.
	TargetBudget decimal.NullDecimal
}

// QuoteResult is a priced job. Base is set only when budget fitting ran.
type QuoteResult struct {
	Breakdown    pricing.QuoteBreakdown  `json:"breakdown"`
	Base         *pricing.QuoteBreakdown `json:"base,omitempty"`
	Adjustments  []pricing.Adjustment    `json:"adjustments"`
	TargetBudget decimal.NullDecimal     `json:"target_budget"`
	Quote        *models.Quote           `json:"quote,omitempty"`
}

// QuoteConfig holds quoting parameters that are not rates.
type QuoteConfig struct {
	// BaseLocation is the office sites are measured from when no preset distance exists.
	BaseLocation pricing.Point
	Validity     time.Duration
}

// QuoteService prices jobs and persists quotes.
type QuoteService struct {
	loader   jobLoader
	quotes   quoteRepository
	rates    rateSource
	tx       txProvider
	notifier Notifier
	logger   *zap.Logger
	cfg      QuoteConfig
	now      func() time.Time
}

// NewQuoteService wires quote dependencies.
func NewQuoteService(
	jobs jobRepository,
	sites siteReader,
	programs programReader,
	quotes quoteRepository,
	rates rateSource,
	tx txProvider,
	notifier Notifier,
	logger *zap.Logger,
	cfg QuoteConfig,
) *QuoteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if cfg.Validity <= 0 {
		cfg.Validity = 30 * 24 * time.Hour
	}
	return &QuoteService{
		loader:   jobLoader{jobs: jobs, sites: sites, programs: programs},
		quotes:   quotes,
		rates:    rates,
		tx:       tx,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Preview prices the job without writing anything.
func (s *QuoteService) Preview(ctx context.Context, jobID string, req QuoteRequest) (*QuoteResult, error) {
	bundle, err := s.loader.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	rates, err := s.rates.Current(ctx)
	if err != nil {
		return nil, err
	}
	return s.price(rates, bundle, req)
}

// GetQuote returns the stored quote of the job.
func (s *QuoteService) GetQuote(ctx context.Context, jobID string) (*models.Quote, error) {
	quote, err := s.quotes.FindByJob(ctx, jobID)
	if err != nil {
		return nil, storageError(err, appErrors.Clone(appErrors.ErrNotFound, "quote not found"), nil, "failed to load quote")
	}
	return quote, nil
}

// CreateQuote prices the job and stores the quote. A SUBMITTED job moves to
// QUOTED in the same transaction.
func (s *QuoteService) CreateQuote(ctx context.Context, jobID string, req QuoteRequest) (*QuoteResult, error) {
	bundle, err := s.loader.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	job := bundle.job
	if job.Status.Closed() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("job is %s", job.Status))
	}
	exists, err := s.quotes.ExistsByJob(ctx, jobID)
	if err != nil {
		return nil, appErrors.Repository(err, "failed to check existing quote")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrQuoteAlreadyExists, "")
	}

	rates, err := s.rates.Current(ctx)
	if err != nil {
		return nil, err
	}
	result, err := s.price(rates, bundle, req)
	if err != nil {
		return nil, err
	}
	adjustments, err := json.Marshal(result.Adjustments)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode quote adjustments")
	}

	now := s.now().UTC()
	b := result.Breakdown
	quote := &models.Quote{
		JobID:            job.ID,
		SessionFee:       b.SessionFee,
		TransportFee:     b.TransportFee,
		MaterialCost:     b.MaterialCost,
		AssistantFee:     b.AssistantFee,
		Overhead:         b.Overhead,
		Subtotal:         b.Subtotal,
		MarginRate:       b.MarginRate,
		Margin:           b.Margin,
		VAT:              b.VAT,
		Total:            b.Total,
		Discount:         b.Discount,
		FinalTotal:       b.FinalTotal,
		Adjustments:      types.JSONText(adjustments),
		RateTableVersion: b.RateTableVersion,
		ValidFrom:        now,
		ValidUntil:       now.Add(s.cfg.Validity),
	}

	err = withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if err := s.quotes.Create(ctx, tx, quote); err != nil {
			return storageError(err, nil, appErrors.ErrQuoteAlreadyExists, "failed to create quote")
		}
		if job.Status != models.JobStatusSubmitted {
			return nil
		}
		if err := s.loader.jobs.UpdateStatus(ctx, tx, job.ID, models.JobStatusQuoted); err != nil {
			return storageError(err, appErrors.Clone(appErrors.ErrNotFound, "job not found"), nil, "failed to update job status")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("quote created",
		zap.String("job_id", job.ID),
		zap.String("quote_id", quote.ID),
		zap.String("final_total", quote.FinalTotal.String()),
		zap.Int("adjustments", len(result.Adjustments)),
	)
	notifyAfterCommit(s.logger, "quote", quote.ID, s.notifier.NotifyQuoteGenerated(ctx, quote))
	result.Quote = quote
	return result, nil
}

func (s *QuoteService) price(rates *pricing.RateTables, bundle *jobBundle, req QuoteRequest) (*QuoteResult, error) {
	in, err := s.quoteInput(bundle, req.Options)
	if err != nil {
		return nil, err
	}
	target := req.TargetBudget
	if !target.Valid {
		target = bundle.job.BudgetCeiling
	}
	if req.FitToBudget && target.Valid {
		fit, err := pricing.FitToBudget(rates, in, req.Options, target.Decimal)
		if err != nil {
			return nil, err
		}
		base := fit.Base
		return &QuoteResult{Breakdown: fit.Quote, Base: &base, Adjustments: fit.Adjustments, TargetBudget: target}, nil
	}
	breakdown, err := pricing.CalculateQuote(rates, in, req.Options)
	if err != nil {
		return nil, err
	}
	return &QuoteResult{Breakdown: breakdown, Adjustments: []pricing.Adjustment{}, TargetBudget: target}, nil
}

func (s *QuoteService) quoteInput(bundle *jobBundle, opts pricing.QuoteOptions) (pricing.QuoteInput, error) {
	job, site := bundle.job, bundle.site
	in := pricing.QuoteInput{
		SessionCount:       job.SessionCount,
		StudentCount:       job.StudentCount,
		AssistantCount:     job.AssistantCount,
		PresetTransportFee: site.PresetTransportFee,
	}
	if bundle.program != nil {
		in.ProgramSessionFee = bundle.program.BaseSessionFee
		in.ProgramMaterialCost = bundle.program.MaterialCostPerStudent
	}
	if opts.TransportFee.Valid || site.PresetTransportFee.Valid {
		return in, nil
	}

	var to *pricing.Point
	if p, ok := pricing.PointFrom(site.Latitude, site.Longitude); ok {
		to = &p
	}
	base := s.cfg.BaseLocation
	km, err := pricing.ResolveDistance(site.DistanceKm, &base, to)
	if err != nil {
		return in, appErrors.Clone(appErrors.ErrInvalidCoordinate, fmt.Sprintf("site %s has no usable coordinates or preset distance", site.ID))
	}
	in.DistanceKm = km
	return in, nil
}
