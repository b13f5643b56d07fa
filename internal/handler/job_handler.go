package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sma-dispatch/internal/dto"
	"github.com/noah-isme/sma-dispatch/internal/models"
	"github.com/noah-isme/sma-dispatch/internal/service"
	"github.com/noah-isme/sma-dispatch/pkg/response"
)

type matchService interface {
	RankForJob(ctx context.Context, jobID string) ([]service.Match, error)
	AutoAssign(ctx context.Context, jobID string) (*service.AssignmentResult, error)
}

type quoteService interface {
	Preview(ctx context.Context, jobID string, req service.QuoteRequest) (*service.QuoteResult, error)
	GetQuote(ctx context.Context, jobID string) (*models.Quote, error)
	CreateQuote(ctx context.Context, jobID string, req service.QuoteRequest) (*service.QuoteResult, error)
}

type newJobProcessor interface {
	ProcessNewJob(ctx context.Context, jobID string, opts service.NewJobOptions) *service.NewJobResult
}

// JobHandler exposes matching, quoting and new-job automation.
type JobHandler struct {
	matcher   matchService
	quotes    quoteService
	processor newJobProcessor
	validate  *validator.Validate
}

// NewJobHandler constructs a job handler.
func NewJobHandler(matcher matchService, quotes quoteService, processor newJobProcessor, validate *validator.Validate) *JobHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &JobHandler{matcher: matcher, quotes: quotes, processor: processor, validate: validate}
}

// Matches godoc
// @Summary Rank eligible instructors for a job
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /jobs/{id}/matches [get]
func (h *JobHandler) Matches(c *gin.Context) {
	matches, err := h.matcher.RankForJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, matches, map[string]interface{}{"total": len(matches)})
}

// Assign godoc
// @Summary Assign the best matching instructor
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 201 {object} response.Envelope
// @Router /jobs/{id}/assign [post]
func (h *JobHandler) Assign(c *gin.Context) {
	result, err := h.matcher.AutoAssign(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// PreviewQuote godoc
// @Summary Price a job without storing a quote
// @Tags Jobs
// @Accept json
// @Produce json
// @Param id path string true "Job ID"
// @Param payload body dto.QuoteRequest false "Quote overrides"
// @Success 200 {object} response.Envelope
// @Router /jobs/{id}/quote/preview [post]
func (h *JobHandler) PreviewQuote(c *gin.Context) {
	var req dto.QuoteRequest
	if err := bindOptional(c, h.validate, &req); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.quotes.Preview(c.Request.Context(), c.Param("id"), quoteRequestFrom(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// GetQuote godoc
// @Summary Fetch the stored quote of a job
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /jobs/{id}/quote [get]
func (h *JobHandler) GetQuote(c *gin.Context) {
	quote, err := h.quotes.GetQuote(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quote)
}

// CreateQuote godoc
// @Summary Store the quote for a job
// @Tags Jobs
// @Accept json
// @Produce json
// @Param id path string true "Job ID"
// @Param payload body dto.QuoteRequest false "Quote overrides"
// @Success 201 {object} response.Envelope
// @Router /jobs/{id}/quote [post]
func (h *JobHandler) CreateQuote(c *gin.Context) {
	var req dto.QuoteRequest
	if err := bindOptional(c, h.validate, &req); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.quotes.CreateQuote(c.Request.Context(), c.Param("id"), quoteRequestFrom(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Process godoc
// @Summary Quote a new job and optionally assign an instructor
// @Tags Jobs
// @Accept json
// @Produce json
// @Param id path string true "Job ID"
// @Param payload body dto.ProcessJobRequest false "Workflow options"
// @Success 201 {object} response.Envelope
// @Router /jobs/{id}/process [post]
func (h *JobHandler) Process(c *gin.Context) {
	var req dto.ProcessJobRequest
	if err := bindOptional(c, h.validate, &req); err != nil {
		response.Error(c, err)
		return
	}
	result := h.processor.ProcessNewJob(c.Request.Context(), c.Param("id"), service.NewJobOptions{
		Quote:      quoteRequestFrom(req.QuoteRequest),
		AutoAssign: req.AutoAssign,
	})
	if result.Outcome == service.OutcomeQuoteFailed {
		response.Error(c, result.Error)
		return
	}
	// A failed assignment still leaves a stored quote.
	response.Created(c, result, map[string]interface{}{"outcome": result.Outcome})
}
