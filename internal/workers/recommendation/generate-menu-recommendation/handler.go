package generatemenurecommendation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"nutritrack/internal/common/errors"
	"nutritrack/internal/common/logger"
	"nutritrack/internal/common/metrics"
	"nutritrack/internal/recommendation"
)

const (
	TaskType = "generate-menu-recommendation"
)

// Recommender is the part of recommendation.Recommender the worker needs.
type Recommender interface {
	Recommend(ctx context.Context, req recommendation.Request) (*recommendation.Result, error)
}

type Handler struct {
	config       *Config
	recommender  Recommender
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, recommender Recommender, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		recommender:  recommender,
		logger:       l,
		errorHandler: errors.NewErrorHandler(l),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx := context.Background()
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	input, err := ParseInput(job.Variables)
	if err != nil {
		h.fail(client, job, start, err)
		return err
	}

	output, err := h.execute(ctx, input)
	if err != nil {
		h.fail(client, job, start, err)
		return err
	}

	if err := h.completeJob(client, job, output); err != nil {
		return err
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	return nil
}

// ParseInput decodes job variables. A missing or non-positive userId is a
// validation failure.
func ParseInput(variables string) (*Input, error) {
	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("parse job variables: %v", err))
	}
	if input.UserID <= 0 {
		return nil, errors.NewValidationError("userId must be a positive integer")
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.recommender.Recommend(ctx, recommendation.Request{
		UserID:   input.UserID,
		Prompt:   input.Prompt,
		Criteria: input.Criteria,
	})
	if err != nil {
		return nil, err
	}
	return &Output{
		RunID:          res.RunID,
		Recommendation: res.Recommendation,
		Items:          res.Items,
		Stages:         res.Stages,
	}, nil
}

// Job results are reported on a fresh context so that a run that hit its
// deadline can still fail the job.
func (h *Handler) fail(client worker.JobClient, job entities.Job, start time.Time, err error) {
	stdErr := errors.AsStandardError(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.errorHandler.HandleJobError(context.Background(), client, job, stdErr)
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return err
	}

	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return err
	}

	h.logger.Info("job completed", map[string]interface{}{
		"jobKey": job.Key,
		"runId":  output.RunID,
	})
	return nil
}

// Execute runs the recommendation without a job client.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
