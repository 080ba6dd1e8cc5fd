// internal/workers/pricing/search-sold-listings/handler.go
package searchsoldlistings

import (
	"context"
	"encoding/json"
	"time"

	apperrors "comps-workers/internal/common/errors"
	"comps-workers/internal/common/logger"
	"comps-workers/internal/common/metrics"
	"comps-workers/internal/comps"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "search-sold-listings"

// SearchService is satisfied by *comps.Service.
type SearchService interface {
	Search(ctx context.Context, req comps.SearchRequest) (*comps.SearchResult, error)
}

// InputValidator is satisfied by *validation.Validator.
type InputValidator interface {
	Validate(taskType string, input interface{}) error
}

type Handler struct {
	config       *Config
	service      SearchService
	validator    InputValidator
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, service SearchService, validator InputValidator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		service:      service,
		validator:    validator,
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job)
	if err != nil {
		h.handleError(ctx, client, job, err)
		return
	}

	output, err := h.execute(ctx, input)
	if err != nil {
		h.handleError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(job.Variables), &raw); err != nil {
		return nil, apperrors.NewInvalidRequestBodyError(err)
	}
	if h.validator != nil {
		if err := h.validator.Validate(TaskType, raw); err != nil {
			return nil, err
		}
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, apperrors.NewInvalidRequestBodyError(err)
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	result, err := h.service.Search(ctx, input.request())
	if err != nil {
		return nil, err
	}

	h.logger.Info("comparables found", map[string]interface{}{
		"searchId":       result.SearchID,
		"searchStrategy": result.SearchStrategy,
		"totalFound":     result.TotalFound,
	})
	return outputFrom(result), nil
}

func (h *Handler) handleError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := apperrors.AsStandardError(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
