// internal/pipeline/orchestrator.go
package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"nutritrack/internal/common/errors"
	"nutritrack/internal/common/logger"
	"nutritrack/internal/common/metrics"
	"nutritrack/internal/common/observability"
	"nutritrack/internal/tools"
)

// ErrDependencyMissing is the cause of every STAGE_DEPENDENCY_MISSING error.
var ErrDependencyMissing = stderrors.New("STAGE_DEPENDENCY_MISSING")

const (
	runStatusSuccess = "success"
	runStatusFailed  = "failed"
	runStatusInvalid = "invalid"
)

// RunResult is the outcome of a successful run. Final is the last stage's
// output; Outputs holds every stage's output for inspection.
type RunResult struct {
	RunID   string
	Final   StageOutput
	Order   []string
	Outputs map[string]StageOutput
}

type Option func(*Orchestrator)

// WithStageTimeout bounds every stage that does not set its own Timeout.
func WithStageTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.stageTimeout = d }
}

func WithObservability(obs *observability.Observability) Option {
	return func(o *Orchestrator) { o.obs = obs }
}

func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// Orchestrator executes stages strictly in the order given, one at a time,
// and aborts the run on the first failure.
type Orchestrator struct {
	reasoner     Reasoner
	logger       logger.Logger
	stageTimeout time.Duration
	obs          *observability.Observability
	tracer       trace.Tracer
}

func NewOrchestrator(reasoner Reasoner, log logger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		reasoner: reasoner,
		logger:   log.WithFields(map[string]interface{}{"component": "orchestrator"}),
		tracer:   observability.Tracer(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Validate checks the stage list without running anything. Every dependency
// must name a stage that appears earlier in the list.
func Validate(stages []Stage) error {
	if len(stages) == 0 {
		return errors.NewInvalidPipelineError("pipeline has no stages", nil)
	}

	seen := make(map[string]bool, len(stages))
	for i, s := range stages {
		if s.ID == "" {
			return errors.NewInvalidPipelineError(fmt.Sprintf("stage at position %d has no id", i), nil)
		}
		if seen[s.ID] {
			return errors.NewInvalidPipelineError(fmt.Sprintf("duplicate stage id %q", s.ID), nil)
		}
		for _, dep := range s.DependsOn {
			if dep == s.ID {
				return errors.NewInvalidPipelineError(fmt.Sprintf("stage %q depends on itself", s.ID), nil)
			}
			if !seen[dep] {
				return errors.NewStageDependencyMissingError(s.ID, dep, ErrDependencyMissing)
			}
		}
		for j, call := range s.Tools {
			if call.Tool == nil {
				return errors.NewInvalidPipelineError(fmt.Sprintf("stage %q tool %d is nil", s.ID, j), nil)
			}
		}
		seen[s.ID] = true
	}
	return nil
}

// Run validates the stages and then executes them in order. On failure no
// partial result is returned; the error carries the failing stage id.
func (o *Orchestrator) Run(ctx context.Context, stages []Stage, shared map[string]interface{}) (*RunResult, error) {
	runID := uuid.NewString()
	start := time.Now()
	log := o.logger.WithFields(map[string]interface{}{"runId": runID})

	ctx, span := o.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("pipeline.run_id", runID),
		attribute.Int("pipeline.stages", len(stages)),
	))
	defer span.End()

	if err := Validate(stages); err != nil {
		log.Error("pipeline rejected before execution", map[string]interface{}{"error": err})
		o.finishRun(ctx, span, runStatusInvalid, start, err)
		return nil, err
	}

	log.Info("pipeline run started", map[string]interface{}{"stages": len(stages)})

	sharedInput := cloneMap(shared)
	outputs := make(map[string]StageOutput, len(stages))
	order := make([]string, 0, len(stages))

	for _, stage := range stages {
		out, err := o.runStage(ctx, runID, stage, sharedInput, outputs, log)
		if err != nil {
			log.Error("pipeline run aborted", map[string]interface{}{
				"failedStage":     stage.ID,
				"completedStages": order,
				"error":           err,
			})
			o.finishRun(ctx, span, runStatusFailed, start, err)
			return nil, err
		}
		outputs[stage.ID] = out
		order = append(order, stage.ID)
	}

	log.Info("pipeline run completed", map[string]interface{}{
		"stages":     order,
		"durationMs": time.Since(start).Milliseconds(),
	})
	o.finishRun(ctx, span, runStatusSuccess, start, nil)

	return &RunResult{
		RunID:   runID,
		Final:   outputs[order[len(order)-1]],
		Order:   order,
		Outputs: outputs,
	}, nil
}

func (o *Orchestrator) runStage(
	ctx context.Context,
	runID string,
	stage Stage,
	shared map[string]interface{},
	completed map[string]StageOutput,
	runLog logger.Logger,
) (StageOutput, error) {
	log := runLog.WithFields(map[string]interface{}{"stageId": stage.ID})
	start := time.Now()

	ctx, span := o.tracer.Start(ctx, "pipeline.stage", trace.WithAttributes(
		attribute.String("pipeline.stage_id", stage.ID),
	))
	defer span.End()

	if timeout := o.timeoutFor(stage); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	fail := func(err error) (StageOutput, error) {
		return StageOutput{}, o.stageFailed(ctx, span, log, stage.ID, start, err)
	}

	upstream := make(map[string]StageOutput, len(stage.DependsOn))
	for _, dep := range stage.DependsOn {
		out, ok := completed[dep]
		if !ok {
			return fail(errors.NewStageDependencyMissingError(stage.ID, dep, ErrDependencyMissing))
		}
		upstream[dep] = out
	}
	in := StageInput{shared: shared, upstream: upstream}

	log.Info("stage started", map[string]interface{}{
		"dependsOn": stage.DependsOn,
		"tools":     len(stage.Tools),
	})

	toolOutputs := make(ToolOutputs, len(stage.Tools))
	for _, call := range stage.Tools {
		var args tools.Args
		if call.Args != nil {
			a, err := call.Args(in, toolOutputs)
			if err != nil {
				return fail(err)
			}
			args = a
		}

		out, err := call.Tool.Run(ctx, args)
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			return fail(err)
		}
		if !out.Succeeded() {
			log.Warn("tool reported a structured failure", map[string]interface{}{"tool": call.Tool.Name()})
			return fail(out.Err())
		}
		toolOutputs[call.key()] = out
	}

	var derived map[string]interface{}
	if stage.Derive != nil {
		d, err := stage.Derive(in, toolOutputs)
		if err != nil {
			return fail(err)
		}
		derived = d
	}

	text, err := o.reasoner.Reason(ctx, Request{
		RunID:          runID,
		StageID:        stage.ID,
		Role:           stage.Role,
		Goal:           stage.Goal,
		ExpectedOutput: stage.ExpectedOutput,
		ToolOutputs:    toolOutputs,
		Derived:        derived,
		Input:          in,
	})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return fail(err)
	}

	duration := time.Since(start)
	metrics.PipelineStageDuration.WithLabelValues(stage.ID).Observe(duration.Seconds())
	log.Info("stage completed", map[string]interface{}{"durationMs": duration.Milliseconds()})

	return NewStageOutput(stage.ID, text, toolOutputs, derived), nil
}

func (o *Orchestrator) timeoutFor(stage Stage) time.Duration {
	if stage.Timeout > 0 {
		return stage.Timeout
	}
	return o.stageTimeout
}

func (o *Orchestrator) stageFailed(ctx context.Context, span trace.Span, log logger.Logger, stageID string, start time.Time, err error) error {
	if err == nil {
		err = fmt.Errorf("stage %q failed without an error", stageID)
	}
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		if _, ok := errors.As(err); !ok {
			err = fmt.Errorf("stage timed out: %w", err)
		}
	}

	stdErr := errors.NewStageFailedError(stageID, err)
	metrics.PipelineStageDuration.WithLabelValues(stageID).Observe(time.Since(start).Seconds())
	metrics.PipelineStageFailures.WithLabelValues(stageID, string(stdErr.Code)).Inc()

	span.RecordError(stdErr)
	span.SetStatus(codes.Error, string(stdErr.Code))

	log.Error("stage failed", map[string]interface{}{
		"errorCode": string(stdErr.Code),
		"error":     err,
	})
	return stdErr
}

func (o *Orchestrator) finishRun(ctx context.Context, span trace.Span, status string, start time.Time, err error) {
	metrics.PipelineRuns.WithLabelValues(status).Inc()
	o.obs.RecordRun(ctx, status, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
	}
}
