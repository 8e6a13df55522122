// Package calculator is the single-shot macro calculator: the height-free
// formula behind a validated request boundary.
package calculator

import (
	stderrors "errors"

	"nutritrack/internal/common/errors"
	"nutritrack/internal/common/validation"
	"nutritrack/internal/models"
	"nutritrack/internal/nutrition"
)

var requestSchema = validation.MustCompile(map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"age", "weight", "goal", "activity_level", "gender"},
	"properties": map[string]interface{}{
		"age":    map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 150},
		"weight": map[string]interface{}{"type": "integer", "minimum": 1},
		"goal": map[string]interface{}{
			"type": "string",
			"enum": []interface{}{string(models.GoalBulk), string(models.GoalCut), string(models.GoalMaintain)},
		},
		"activity_level": map[string]interface{}{"type": "string", "minLength": 1},
		"gender": map[string]interface{}{
			"type": "string",
			"enum": []interface{}{models.GenderMale, models.GenderFemale},
		},
	},
})

// Request is the calculator form.
type Request struct {
	Age           int    `json:"age"`
	Weight        int    `json:"weight"`
	Goal          string `json:"goal"`
	ActivityLevel string `json:"activity_level"`
	Gender        string `json:"gender"`
}

func (r Request) document() map[string]interface{} {
	return map[string]interface{}{
		"age":            r.Age,
		"weight":         r.Weight,
		"goal":           r.Goal,
		"activity_level": r.ActivityLevel,
		"gender":         r.Gender,
	}
}

// Result is the display form of the computed needs plus the intermediate
// energy values, all rounded to two decimals.
type Result struct {
	nutrition.Display
	BMR  float64 `json:"bmr"`
	TDEE float64 `json:"tdee"`
}

// Calculate validates the request and runs the height-free formula.
func Calculate(req Request) (*Result, error) {
	if err := validate(req.document()); err != nil {
		return nil, err
	}

	b, err := nutrition.Compute(nutrition.Input{
		Variant:      nutrition.HeightFree,
		Weight:       float64(req.Weight),
		Age:          req.Age,
		Gender:       req.Gender,
		Goal:         models.NutritionGoal(req.Goal),
		ActivityName: req.ActivityLevel,
	})
	if err != nil {
		if stderrors.Is(err, nutrition.ErrUnknownActivityLevel) {
			return nil, errors.NewUnknownActivityLevelError(req.ActivityLevel, err)
		}
		return nil, errors.NewValidationError(err.Error())
	}

	return &Result{
		Display: nutrition.NewDisplay(b.ComputedNeeds),
		BMR:     nutrition.Round2(b.BMR),
		TDEE:    nutrition.Round2(b.TDEE),
	}, nil
}

func validate(doc map[string]interface{}) error {
	res, err := requestSchema.Validate(doc)
	if err != nil {
		return errors.NewValidationError(err.Error())
	}
	if !res.Valid {
		return errors.NewValidationError(res.Summary())
	}
	return nil
}
