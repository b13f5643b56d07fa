package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-dispatch/internal/models"
	"github.com/noah-isme/sma-dispatch/internal/pricing"
)

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func (p *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return p.db.BeginTxx(ctx, opts)
}

type jobRepoStub struct {
	items     map[string]*models.Job
	updateErr error
	updates   []models.JobStatus
}

func (s *jobRepoStub) FindByID(ctx context.Context, id string) (*models.Job, error) {
	if job, ok := s.items[id]; ok {
		cp := *job
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *jobRepoStub) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.JobStatus) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	job, ok := s.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.updates = append(s.updates, status)
	job.Status = status
	return nil
}

type siteRepoStub map[string]*models.Site

func (s siteRepoStub) FindByID(ctx context.Context, id string) (*models.Site, error) {
	if site, ok := s[id]; ok {
		cp := *site
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type programRepoStub map[string]*models.Program

func (s programRepoStub) FindByID(ctx context.Context, id string) (*models.Program, error) {
	if program, ok := s[id]; ok {
		cp := *program
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type workerRepoStub struct {
	workers []models.Worker
	err     error
}

func (s *workerRepoStub) ListActive(ctx context.Context) ([]models.Worker, error) {
	return s.workers, s.err
}

func (s *workerRepoStub) FindByID(ctx context.Context, id string) (*models.Worker, error) {
	for _, w := range s.workers {
		if w.ID == id {
			cp := w
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

type assignmentRepoStub struct {
	items     map[string]*models.Assignment
	active    *models.Assignment
	createErr error
	created   []*models.Assignment
}

func (s *assignmentRepoStub) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	if a, ok := s.items[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *assignmentRepoStub) FindActiveByJob(ctx context.Context, jobID string) (*models.Assignment, error) {
	if s.active != nil {
		return s.active, nil
	}
	return nil, sql.ErrNoRows
}

func (s *assignmentRepoStub) Create(ctx context.Context, exec sqlx.ExtContext, a *models.Assignment) error {
	if s.createErr != nil {
		return s.createErr
	}
	a.ID = "as-new"
	s.created = append(s.created, a)
	return nil
}

type quoteRepoStub struct {
	exists    bool
	findErr   error
	createErr error
	created   []*models.Quote
}

func (s *quoteRepoStub) ExistsByJob(ctx context.Context, jobID string) (bool, error) {
	return s.exists, nil
}

func (s *quoteRepoStub) FindByJob(ctx context.Context, jobID string) (*models.Quote, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, q := range s.created {
		if q.JobID == jobID {
			return q, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *quoteRepoStub) Create(ctx context.Context, exec sqlx.ExtContext, q *models.Quote) error {
	if s.createErr != nil {
		return s.createErr
	}
	q.ID = "q-new"
	s.created = append(s.created, q)
	return nil
}

type paymentRepoStub struct {
	exists    bool
	createErr error
	created   []*models.Payment
}

func (s *paymentRepoStub) ExistsByAssignment(ctx context.Context, assignmentID string) (bool, error) {
	return s.exists, nil
}

func (s *paymentRepoStub) Create(ctx context.Context, exec sqlx.ExtContext, p *models.Payment) error {
	if s.createErr != nil {
		return s.createErr
	}
	p.ID = "pay-new"
	s.created = append(s.created, p)
	return nil
}

type staticRates struct {
	tables *pricing.RateTables
	err    error
}

func (s staticRates) Current(ctx context.Context) (*pricing.RateTables, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.tables == nil {
		return pricing.DefaultRateTables(), nil
	}
	return s.tables, nil
}

type notifierStub struct {
	mu          sync.Mutex
	assignments []*models.Assignment
	quotes      []*models.Quote
	payments    []*models.Payment
	err         error
}

func (n *notifierStub) NotifyAssignment(ctx context.Context, a *models.Assignment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.assignments = append(n.assignments, a)
	return n.err
}

func (n *notifierStub) NotifyQuoteGenerated(ctx context.Context, q *models.Quote) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.quotes = append(n.quotes, q)
	return n.err
}

func (n *notifierStub) NotifyPaymentProcessed(ctx context.Context, p *models.Payment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payments = append(n.payments, p)
	return n.err
}

func strPtr(s string) *string { return &s }

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}
