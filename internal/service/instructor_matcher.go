package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-dispatch/internal/models"
	"github.com/noah-isme/sma-dispatch/internal/pricing"
	appErrors "github.com/noah-isme/sma-dispatch/pkg/errors"
)

type workerLister interface {
	ListActive(ctx context.Context) ([]models.Worker, error)
}

type assignmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	FindActiveByJob(ctx context.Context, jobID string) (*models.Assignment, error)
	Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.Assignment) error
}

// MatcherConfig tunes the ranking heuristics.
type MatcherConfig struct {
	// CategoryTags maps a program category to specialty keywords scored as related expertise.
	CategoryTags map[string][]string
}

// DefaultCategoryTags is the built-in category to related-keyword map.
func DefaultCategoryTags() map[string][]string {
	return map[string][]string{
		"fourth_industry": {"ai", "coding", "robotics", "drone", "metaverse", "3d printing"},
		"science":         {"experiment", "chemistry", "physics", "biology"},
		"art":             {"design", "craft", "drawing"},
		"career":          {"counseling", "career"},
	}
}

// ScoreBreakdown holds the four bounded sub-scores of a match.
type ScoreBreakdown struct {
	Distance     int `json:"distance"`
	Expertise    int `json:"expertise"`
	Availability int `json:"availability"`
	Rating       int `json:"rating"`
}

// Total sums the sub-scores.
func (b ScoreBreakdown) Total() int {
	return b.Distance + b.Expertise + b.Availability + b.Rating
}

// Match is one ranked candidate with the reasons behind its score.
type Match struct {
	Worker      models.Worker  `json:"worker"`
	Score       int            `json:"score"`
	Breakdown   ScoreBreakdown `json:"breakdown"`
	Reasons     []string       `json:"reasons"`
	DistanceKm  int            `json:"distance_km"`
	IsAvailable bool           `json:"is_available"`
}

// AssignmentResult is the outcome of a successful auto-assignment.
type AssignmentResult struct {
	Assignment *models.Assignment `json:"assignment"`
	Match      Match              `json:"match"`
	Eligible   int                `json:"eligible"`
}

// InstructorMatcher ranks workers for a job and commits the winner.
type InstructorMatcher struct {
	loader       jobLoader
	workers      workerLister
	assignments  assignmentRepository
	rates        rateSource
	tx           txProvider
	notifier     Notifier
	metrics      *MetricsService
	logger       *zap.Logger
	categoryTags map[string][]string
}

// NewInstructorMatcher wires matcher dependencies.
func NewInstructorMatcher(
	jobs jobRepository,
	sites siteReader,
	programs programReader,
	workers workerLister,
	assignments assignmentRepository,
	rates rateSource,
	tx txProvider,
	notifier Notifier,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg MatcherConfig,
) *InstructorMatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	tags := cfg.CategoryTags
	if tags == nil {
		tags = DefaultCategoryTags()
	}
	normalized := make(map[string][]string, len(tags))
	for category, keywords := range tags {
		words := make([]string, 0, len(keywords))
		for _, kw := range keywords {
			if kw = normalizeWords(kw); kw != "" {
				words = append(words, kw)
			}
		}
		normalized[normalizeCategory(category)] = words
	}
	return &InstructorMatcher{
		loader:       jobLoader{jobs: jobs, sites: sites, programs: programs},
		workers:      workers,
		assignments:  assignments,
		rates:        rates,
		tx:           tx,
		notifier:     notifier,
		metrics:      metrics,
		logger:       logger,
		categoryTags: normalized,
	}
}

// Rank scores every candidate and returns the eligible ones, best first.
// Equal scores are ordered by worker id.
func (m *InstructorMatcher) Rank(job *models.Job, site *models.Site, program *models.Program, candidates []models.Worker) []Match {
	matches := make([]Match, 0, len(candidates))
	for _, worker := range candidates {
		match, ok := m.score(job, site, program, worker)
		if !ok || match.Score <= 0 {
			continue
		}
		matches = append(matches, match)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Worker.ID < matches[j].Worker.ID
	})
	return matches
}

// RankForJob loads the job context and ranks all active workers.
func (m *InstructorMatcher) RankForJob(ctx context.Context, jobID string) ([]Match, error) {
	bundle, err := m.loader.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	workers, err := m.workers.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Repository(err, "failed to list workers")
	}
	matches := m.Rank(bundle.job, bundle.site, bundle.program, workers)
	m.metrics.ObserveRanking(len(matches))
	return matches, nil
}

// AutoAssign proposes the best ranked worker for the job. It never falls back
// to a lower ranked worker when the best one is unavailable.
func (m *InstructorMatcher) AutoAssign(ctx context.Context, jobID string) (*AssignmentResult, error) {
	bundle, err := m.loader.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	job := bundle.job
	if job.Status.Closed() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("job is %s", job.Status))
	}

	existing, err := m.assignments.FindActiveByJob(ctx, jobID)
	switch {
	case err == nil && existing != nil:
		return nil, appErrors.Clone(appErrors.ErrDuplicateAssignment, "")
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Repository(err, "failed to check active assignment")
	}

	workers, err := m.workers.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Repository(err, "failed to list workers")
	}
	matches := m.Rank(job, bundle.site, bundle.program, workers)
	m.metrics.ObserveRanking(len(matches))
	if len(matches) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoEligibleWorker, "")
	}
	top := matches[0]
	if !top.IsAvailable {
		return nil, appErrors.Clone(appErrors.ErrWorkerUnavailable,
			fmt.Sprintf("best matching worker %s is unavailable on the desired date", top.Worker.ID))
	}

	rates, err := m.rates.Current(ctx)
	if err != nil {
		return nil, err
	}
	reasons, err := json.Marshal(top.Reasons)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode match reasons")
	}

	assignment := &models.Assignment{
		JobID:         job.ID,
		WorkerID:      top.Worker.ID,
		Status:        models.AssignmentStatusProposed,
		ScheduledDate: job.DesiredDate,
		DistanceKm:    top.DistanceKm,
		TransportFee:  transportFeeFor(rates, bundle.site, top.DistanceKm),
		MatchScore:    top.Score,
		Reasons:       types.JSONText(reasons),
	}

	err = withTx(ctx, m.tx, func(tx *sqlx.Tx) error {
		if err := m.assignments.Create(ctx, tx, assignment); err != nil {
			return storageError(err, nil, appErrors.ErrDuplicateAssignment, "failed to create assignment")
		}
		if err := m.loader.jobs.UpdateStatus(ctx, tx, job.ID, models.JobStatusAssigned); err != nil {
			return storageError(err, appErrors.Clone(appErrors.ErrNotFound, "job not found"), nil, "failed to update job status")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("assignment proposed",
		zap.String("job_id", job.ID),
		zap.String("worker_id", top.Worker.ID),
		zap.Int("score", top.Score),
		zap.Int("eligible", len(matches)),
	)
	notifyAfterCommit(m.logger, "assignment", assignment.ID, m.notifier.NotifyAssignment(ctx, assignment))
	return &AssignmentResult{Assignment: assignment, Match: top, Eligible: len(matches)}, nil
}

func (m *InstructorMatcher) score(job *models.Job, site *models.Site, program *models.Program, worker models.Worker) (Match, bool) {
	match := Match{Worker: worker}
	km, ok := candidateDistance(site, worker)
	if !ok || !pricing.CanTravel(worker.MaxTravelKm, km) {
		return match, false
	}
	match.DistanceKm = km

	var reason string
	match.Breakdown.Distance, reason = distanceScore(site, worker, km)
	match.Reasons = append(match.Reasons, reason)
	match.Breakdown.Expertise, reason = m.expertiseScore(program, worker)
	match.Reasons = append(match.Reasons, reason)
	match.Breakdown.Availability, reason = availabilityScore(job, worker)
	match.Reasons = append(match.Reasons, reason)
	match.Breakdown.Rating, reason = ratingScore(worker)
	match.Reasons = append(match.Reasons, reason)

	match.Score = match.Breakdown.Total()
	match.IsAvailable = match.Breakdown.Availability > 0
	return match, true
}

// candidateDistance prefers the site's preset distance and otherwise needs
// both the worker's home and the site's coordinates.
func candidateDistance(site *models.Site, worker models.Worker) (int, bool) {
	var from, to *pricing.Point
	if p, ok := pricing.PointFrom(worker.HomeLatitude, worker.HomeLongitude); ok {
		from = &p
	}
	if p, ok := pricing.PointFrom(site.Latitude, site.Longitude); ok {
		to = &p
	}
	km, err := pricing.ResolveDistance(site.DistanceKm, from, to)
	return km, err == nil
}

func distanceScore(site *models.Site, worker models.Worker, km int) (int, string) {
	region := strings.TrimSpace(site.Region)
	if region != "" && strings.EqualFold(region, strings.TrimSpace(worker.HomeRegion)) {
		return 40, fmt.Sprintf("distance: same region %s (+40)", region)
	}
	var points int
	switch {
	case km <= 30:
		points = 35
	case km <= 60:
		points = 25
	case km <= 90:
		points = 15
	default:
		points = 5
	}
	return points, fmt.Sprintf("distance: %dkm (+%d)", km, points)
}

func (m *InstructorMatcher) expertiseScore(program *models.Program, worker models.Worker) (int, string) {
	if program == nil {
		return 10, "expertise: custom program (+10)"
	}
	name := strings.ToLower(strings.TrimSpace(program.Name))
	for _, tag := range worker.SpecialtyTags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" || name == "" {
			continue
		}
		if strings.Contains(name, t) || strings.Contains(t, name) {
			return 30, fmt.Sprintf("expertise: tag %q matches program %q (+30)", tag, program.Name)
		}
	}
	related := m.categoryTags[normalizeCategory(program.Category)]
	for _, tag := range worker.SpecialtyTags {
		words := " " + normalizeWords(tag) + " "
		for _, kw := range related {
			if strings.Contains(words, " "+kw+" ") {
				return 25, fmt.Sprintf("expertise: tag %q related to category %s (+25)", tag, program.Category)
			}
		}
	}
	if worker.ExperienceYears >= 5 {
		return 15, fmt.Sprintf("expertise: %d years of experience (+15)", worker.ExperienceYears)
	}
	return 5, "expertise: baseline (+5)"
}

func availabilityScore(job *models.Job, worker models.Worker) (int, string) {
	if job.DesiredDate == nil {
		return 10, "availability: no desired date (+10)"
	}
	day := job.DesiredDate.Weekday()
	code := models.WeekdayCode(day)
	switch {
	case worker.AvailableOn(day):
		return 20, fmt.Sprintf("availability: available on %s (+20)", code)
	case job.FlexibleDate:
		return 10, fmt.Sprintf("availability: unavailable on %s, date is flexible (+10)", code)
	default:
		return 0, fmt.Sprintf("availability: unavailable on %s (+0)", code)
	}
}

func ratingScore(worker models.Worker) (int, string) {
	if worker.Rating == nil {
		return 5, "rating: none recorded (+5)"
	}
	rating := *worker.Rating
	var points int
	switch {
	case rating >= 4.5:
		points = 10
	case rating >= 4.0:
		points = 8
	case rating >= 3.5:
		points = 5
	default:
		points = 2
	}
	return points, fmt.Sprintf("rating: %.1f (+%d)", rating, points)
}

// transportFeeFor applies the site's preset fee before the distance table.
func transportFeeFor(rates *pricing.RateTables, site *models.Site, km int) decimal.Decimal {
	if site.PresetTransportFee.Valid {
		return site.PresetTransportFee.Decimal
	}
	return rates.Distance().TransportFee(km)
}

func normalizeCategory(category string) string {
	return strings.ReplaceAll(normalizeWords(category), " ", "_")
}

// normalizeWords lowercases s and collapses every run of non alphanumerics to one space.
func normalizeWords(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}
