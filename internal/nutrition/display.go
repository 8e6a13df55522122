package nutrition

import (
	"math"

	"nutritrack/internal/models"
)

// AlternateEnergyFactor converts the calorie total into the alternate energy
// unit shown by the calculator. The conversion is cosmetic; macro math always
// runs on the original calorie value.
const AlternateEnergyFactor = 4.184

func ToAlternateUnit(calories float64) float64 {
	return calories / AlternateEnergyFactor
}

func FromAlternateUnit(value float64) float64 {
	return value * AlternateEnergyFactor
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Display is the rounded, presentation-ready form of ComputedNeeds.
type Display struct {
	DailyCalories float64 `json:"daily_calories"`
	EnergyDisplay float64 `json:"energy_display"`
	Protein       float64 `json:"protein"`
	Fats          float64 `json:"fats"`
	Carbs         float64 `json:"carbs"`
}

func NewDisplay(n models.ComputedNeeds) Display {
	return Display{
		DailyCalories: Round2(n.DailyCalories),
		EnergyDisplay: Round2(ToAlternateUnit(n.DailyCalories)),
		Protein:       Round2(n.DailyProtein),
		Fats:          Round2(n.DailyFat),
		Carbs:         Round2(n.DailyCarbs),
	}
}
