package recommendation

import (
	"context"

	"nutritrack/internal/common/errors"
	"nutritrack/internal/common/logger"
	"nutritrack/internal/models"
	"nutritrack/internal/pipeline"
)

// Request starts one recommendation run.
type Request struct {
	UserID   int64                  `json:"userId"`
	Prompt   string                 `json:"prompt,omitempty"`
	Criteria *models.FilterCriteria `json:"criteria,omitempty"`
}

// Result is the outcome of a completed run.
type Result struct {
	RunID          string                 `json:"runId"`
	Recommendation string                 `json:"recommendation"`
	Items          []ScoredItem           `json:"items"`
	Stages         []pipeline.StageOutput `json:"stages"`
}

// Recommender runs the stages built by BuildPipeline.
type Recommender struct {
	orchestrator *pipeline.Orchestrator
	stages       []pipeline.Stage
	logger       logger.Logger
}

// NewRecommender validates the stages once so that a broken pipeline is
// reported at startup rather than on the first request.
func NewRecommender(o *pipeline.Orchestrator, stages []pipeline.Stage, log logger.Logger) (*Recommender, error) {
	if err := pipeline.Validate(stages); err != nil {
		return nil, err
	}
	return &Recommender{orchestrator: o, stages: stages, logger: log}, nil
}

func (r *Recommender) Recommend(ctx context.Context, req Request) (*Result, error) {
	if req.UserID <= 0 {
		return nil, errors.NewValidationError("userId must be a positive integer")
	}

	shared := map[string]interface{}{
		SharedUserID: req.UserID,
		SharedPrompt: req.Prompt,
	}
	if req.Criteria != nil {
		shared[SharedCriteria] = req.Criteria
	}

	run, err := r.orchestrator.Run(ctx, r.stages, shared)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:          run.RunID,
		Recommendation: run.Final.Text(),
		Items:          []ScoredItem{},
		Stages:         make([]pipeline.StageOutput, 0, len(run.Order)),
	}
	for _, id := range run.Order {
		result.Stages = append(result.Stages, run.Outputs[id])
	}
	if raw, ok := run.Final.Data(DataRecommended); ok {
		if items, ok := raw.([]ScoredItem); ok {
			result.Items = append(result.Items, items...)
		}
	}

	r.logger.Info("Recommendation generated", map[string]interface{}{
		"runId":  run.RunID,
		"userId": req.UserID,
		"items":  len(result.Items),
	})
	return result, nil
}
