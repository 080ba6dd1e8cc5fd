// internal/workers/pricing/aggregate-price-stats/handler.go
package aggregatepricestats

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

const TaskType = "aggregate-price-stats"

// InputValidator is satisfied by *validation.Validator.
type InputValidator interface {
	Validate(taskType string, input interface{}) error
}

type Handler struct {
	config       *Config
	validator    InputValidator
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, validator InputValidator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		validator:    validator,
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.AsStandardError(err).Code)).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	output := h.execute(input)

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err.Error()})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err.Error()})
		return
	}

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

func (h *Handler) execute(input *Input) *Output {
	stats := comps.Aggregate(input.Listings)
	h.logger.Debug("price stats aggregated", map[string]interface{}{
		"totalFound":   stats.TotalFound,
		"averagePrice": stats.AveragePrice,
	})
	return &Output{
		AveragePrice: stats.AveragePrice,
		MinPrice:     stats.MinPrice,
		MaxPrice:     stats.MaxPrice,
		TotalFound:   stats.TotalFound,
	}
}
