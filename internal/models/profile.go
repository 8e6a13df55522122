// internal/models/profile.go
package models

import (
	"fmt"
	"strings"
)

// NutritionGoal is the user's body composition goal.
type NutritionGoal string

const (
	GoalBulk     NutritionGoal = "bulk"
	GoalCut      NutritionGoal = "cut"
	GoalMaintain NutritionGoal = "maintain"
)

// ParseNutritionGoal accepts the stored goal names case-insensitively.
func ParseNutritionGoal(s string) (NutritionGoal, error) {
	switch g := NutritionGoal(strings.ToLower(strings.TrimSpace(s))); g {
	case GoalBulk, GoalCut, GoalMaintain:
		return g, nil
	default:
		return "", fmt.Errorf("unknown nutrition goal %q", s)
	}
}

const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Profile is a read-only snapshot of a user row. ActivityLevel is the ordinal
// 1..5 scale; zero means the level was never collected.
type Profile struct {
	ID                  int64         `json:"id"`
	Name                string        `json:"name"`
	Height              float64       `json:"height"`
	Weight              float64       `json:"weight"`
	Age                 int           `json:"age"`
	Gender              string        `json:"gender,omitempty"`
	DietaryRestrictions []string      `json:"dietary_restrictions"`
	NutritionGoal       NutritionGoal `json:"nutrition_goals"`
	ActivityLevel       int           `json:"activity_level"`
}

// Validate checks the invariants every computation relies on.
func (p Profile) Validate() error {
	if p.Weight <= 0 {
		return fmt.Errorf("weight must be positive, got %v", p.Weight)
	}
	if p.Age <= 0 {
		return fmt.Errorf("age must be positive, got %d", p.Age)
	}
	if p.Height < 0 {
		return fmt.Errorf("height must not be negative, got %v", p.Height)
	}
	return nil
}

// HasRestriction reports whether the profile lists the restriction, ignoring case.
func (p Profile) HasRestriction(name string) bool {
	for _, r := range p.DietaryRestrictions {
		if strings.EqualFold(strings.TrimSpace(r), name) {
			return true
		}
	}
	return false
}

// ComputedNeeds are the daily targets derived from a Profile. Values are
// unrounded; rounding belongs to whoever displays them.
type ComputedNeeds struct {
	DailyCalories float64 `json:"daily_calories"`
	DailyProtein  float64 `json:"daily_protein"`
	DailyCarbs    float64 `json:"daily_carbs"`
	DailyFat      float64 `json:"daily_fat"`
}

// UserData is the profile plus its computed needs, as handed to pipeline stages.
type UserData struct {
	Profile
	CalculatedNeeds ComputedNeeds `json:"calculated_needs"`
}
