// Package recommendation wires the data access tools and the reasoning
// collaborator into the three-stage menu recommendation pipeline.
package recommendation

import (
	"fmt"
	"time"

	"nutritrack/internal/common/errors"
	"nutritrack/internal/models"
	"nutritrack/internal/nutrition"
	"nutritrack/internal/pipeline"
	"nutritrack/internal/tools"
	"nutritrack/pkg/registry"
)

// Shared run input keys.
const (
	SharedUserID   = "user_id"
	SharedPrompt   = "prompt"
	SharedCriteria = "criteria"
)

// Tool output and derived data keys.
const (
	KeyProfile = "profile"
	KeyMenu    = "menu"

	DataUser          = "user"
	DataTargets       = "daily_targets"
	DataCriteria      = "criteria"
	DataMenuItemCount = "menu_item_count"
	DataMealCalories  = "meal_calories"
	DataCandidates    = "candidates"
	DataRecommended   = "recommended_items"
)

const (
	defaultMealsPerDay = 3
	defaultTopN        = 5
)

// Deps are the collaborators the stages call.
type Deps struct {
	Profiles    tools.Tool
	Menu        tools.Tool
	MealsPerDay int
	// TopN bounds the candidates handed to the final stage.
	TopN int
	// StageTimeout applies to stages whose definition sets none. Zero leaves
	// the orchestrator's default in place.
	StageTimeout time.Duration
}

// BuildPipeline assembles collection, analysis and recommendation in that
// order. A nil registry uses the built-in definitions. Definitions for other
// stage ids are ignored.
func BuildPipeline(reg *registry.StageRegistry, deps Deps) ([]pipeline.Stage, error) {
	if deps.Profiles == nil || deps.Menu == nil {
		return nil, errors.NewInvalidPipelineError("profile and menu tools are required", nil)
	}
	if reg == nil {
		reg = registry.Default()
	}
	meals := deps.MealsPerDay
	if meals <= 0 {
		meals = defaultMealsPerDay
	}
	topN := deps.TopN
	if topN <= 0 {
		topN = defaultTopN
	}

	defs := make(map[string]registry.StageDefinition, 3)
	for _, id := range []string{registry.StageCollection, registry.StageAnalysis, registry.StageRecommendation} {
		def, ok := reg.Get(id)
		if !ok {
			return nil, errors.NewInvalidPipelineError(fmt.Sprintf("no definition for stage %q", id), nil)
		}
		defs[id] = def
	}

	return []pipeline.Stage{
		collectionStage(defs[registry.StageCollection], deps),
		analysisStage(defs[registry.StageAnalysis], deps, meals),
		recommendationStage(defs[registry.StageRecommendation], deps, topN),
	}, nil
}

func newStage(def registry.StageDefinition, deps Deps) pipeline.Stage {
	goal := def.Goal
	if def.Description != "" {
		goal = goal + ". " + def.Description
	}
	timeout := time.Duration(def.Timeout) * time.Millisecond
	if timeout == 0 {
		timeout = deps.StageTimeout
	}
	return pipeline.Stage{
		ID:             def.ID,
		Role:           def.Role,
		Goal:           goal,
		ExpectedOutput: def.ExpectedOutput,
		Timeout:        timeout,
	}
}

func collectionStage(def registry.StageDefinition, deps Deps) pipeline.Stage {
	s := newStage(def, deps)
	s.Tools = []pipeline.ToolCall{
		{
			Tool: deps.Profiles,
			Key:  KeyProfile,
			Args: func(in pipeline.StageInput, _ pipeline.ToolOutputs) (tools.Args, error) {
				id, ok := in.Shared(SharedUserID)
				if !ok {
					return nil, errors.NewValidationError("user_id is required")
				}
				return tools.Args{tools.ArgUserID: id}, nil
			},
		},
		{
			Tool: deps.Menu,
			Key:  KeyMenu,
			Args: func(in pipeline.StageInput, prior pipeline.ToolOutputs) (tools.Args, error) {
				user, err := userData(prior)
				if err != nil {
					return nil, err
				}
				criteria, err := collectionCriteria(in, user.Profile)
				if err != nil {
					return nil, err
				}
				return tools.Args{tools.ArgCriteria: criteria}, nil
			},
		},
	}
	s.Derive = func(in pipeline.StageInput, outputs pipeline.ToolOutputs) (map[string]interface{}, error) {
		user, err := userData(outputs)
		if err != nil {
			return nil, err
		}
		criteria, err := collectionCriteria(in, user.Profile)
		if err != nil {
			return nil, err
		}
		items, err := menuItems(outputs)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			DataUser:          user,
			DataTargets:       nutrition.NewDisplay(user.CalculatedNeeds),
			DataCriteria:      criteria,
			DataMenuItemCount: len(items),
		}, nil
	}
	return s
}

func analysisStage(def registry.StageDefinition, deps Deps, meals int) pipeline.Stage {
	s := newStage(def, deps)
	s.DependsOn = []string{registry.StageCollection}
	s.Tools = []pipeline.ToolCall{
		{
			Tool: deps.Menu,
			Key:  KeyMenu,
			Args: func(in pipeline.StageInput, _ pipeline.ToolOutputs) (tools.Args, error) {
				user, criteria, err := collected(in)
				if err != nil {
					return nil, err
				}
				limit := mealCalories(user, meals)
				return tools.Args{tools.ArgCriteria: criteria.Merge(&models.FilterCriteria{MaxCalories: &limit})}, nil
			},
		},
	}
	s.Derive = func(in pipeline.StageInput, outputs pipeline.ToolOutputs) (map[string]interface{}, error) {
		user, _, err := collected(in)
		if err != nil {
			return nil, err
		}
		items, err := menuItems(outputs)
		if err != nil {
			return nil, err
		}
		limit := mealCalories(user, meals)
		return map[string]interface{}{
			DataMealCalories: nutrition.Round2(limit),
			DataCandidates:   ScoreItems(items, limit, user.NutritionGoal),
		}, nil
	}
	return s
}

func recommendationStage(def registry.StageDefinition, deps Deps, topN int) pipeline.Stage {
	s := newStage(def, deps)
	s.DependsOn = []string{registry.StageCollection, registry.StageAnalysis}
	s.Derive = func(in pipeline.StageInput, _ pipeline.ToolOutputs) (map[string]interface{}, error) {
		candidates, err := analysedCandidates(in)
		if err != nil {
			return nil, err
		}
		n := len(candidates)
		if n > topN {
			n = topN
		}
		top := make([]ScoredItem, n)
		copy(top, candidates)
		return map[string]interface{}{DataRecommended: top}, nil
	}
	return s
}

func collectionCriteria(in pipeline.StageInput, p models.Profile) (*models.FilterCriteria, error) {
	shared, err := tools.Args(in.SharedValues()).Criteria(SharedCriteria)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	return RestrictionCriteria(p).Merge(shared), nil
}

func mealCalories(user *models.UserData, meals int) float64 {
	return user.CalculatedNeeds.DailyCalories / float64(meals)
}

func userData(outputs pipeline.ToolOutputs) (*models.UserData, error) {
	out, ok := outputs[KeyProfile]
	if !ok {
		return nil, fmt.Errorf("profile output missing")
	}
	res, ok := out.(*tools.ProfileResult)
	if !ok || res.UserData == nil {
		return nil, fmt.Errorf("unexpected profile output %T", out)
	}
	return res.UserData, nil
}

func menuItems(outputs pipeline.ToolOutputs) ([]models.MenuItem, error) {
	out, ok := outputs[KeyMenu]
	if !ok {
		return nil, fmt.Errorf("menu output missing")
	}
	res, ok := out.(*tools.MenuResult)
	if !ok {
		return nil, fmt.Errorf("unexpected menu output %T", out)
	}
	return res.MenuItems, nil
}

// collected reads the user and menu criteria produced by the collection stage.
func collected(in pipeline.StageInput) (*models.UserData, *models.FilterCriteria, error) {
	up, ok := in.Upstream(registry.StageCollection)
	if !ok {
		return nil, nil, fmt.Errorf("collection output missing")
	}
	profile, ok := up.Tool(KeyProfile)
	if !ok {
		return nil, nil, fmt.Errorf("collection has no profile output")
	}
	user, err := userData(pipeline.ToolOutputs{KeyProfile: profile})
	if err != nil {
		return nil, nil, err
	}
	raw, _ := up.Data(DataCriteria)
	criteria, _ := raw.(*models.FilterCriteria)
	return user, criteria, nil
}

func analysedCandidates(in pipeline.StageInput) ([]ScoredItem, error) {
	up, ok := in.Upstream(registry.StageAnalysis)
	if !ok {
		return nil, fmt.Errorf("analysis output missing")
	}
	raw, ok := up.Data(DataCandidates)
	if !ok {
		return nil, fmt.Errorf("analysis has no candidates")
	}
	candidates, ok := raw.([]ScoredItem)
	if !ok {
		return nil, fmt.Errorf("unexpected candidates %T", raw)
	}
	return candidates, nil
}
