package service

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-dispatch/internal/models"
	appErrors "github.com/noah-isme/sma-dispatch/pkg/errors"
)

type jobRepository interface {
	FindByID(ctx context.Context, id string) (*models.Job, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.JobStatus) error
}

type siteReader interface {
	FindByID(ctx context.Context, id string) (*models.Site, error)
}

type programReader interface {
	FindByID(ctx context.Context, id string) (*models.Program, error)
}

// jobBundle is a job with the site and optional catalog program it refers to.
type jobBundle struct {
	job     *models.Job
	site    *models.Site
	program *models.Program
}

type jobLoader struct {
	jobs     jobRepository
	sites    siteReader
	programs programReader
}

func (l jobLoader) load(ctx context.Context, jobID string) (*jobBundle, error) {
	job, err := l.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, storageError(err, appErrors.Clone(appErrors.ErrNotFound, "job not found"), nil, "failed to load job")
	}
	site, err := l.sites.FindByID(ctx, job.SiteID)
	if err != nil {
		return nil, storageError(err, appErrors.Clone(appErrors.ErrNotFound, "site not found"), nil, "failed to load site")
	}
	bundle := &jobBundle{job: job, site: site}
	if job.ProgramID != nil && *job.ProgramID != "" {
		program, err := l.programs.FindByID(ctx, *job.ProgramID)
		if err != nil {
			return nil, storageError(err, appErrors.Clone(appErrors.ErrNotFound, "program not found"), nil, "failed to load program")
		}
		bundle.program = program
	}
	return bundle, nil
}
