// Package nutrition computes BMR, TDEE and macronutrient targets.
//
// Two formula variants exist and are kept apart:
//
//   - HeightFree is used when no height was collected (the single-shot
//     calculator). BMR uses a fixed reference height per gender and a gender
//     offset, activity comes from four named levels (unknown names fail), and
//     the nutrition goal shifts the total by GoalAdjustment.
//   - HeightAware is used when a stored profile carries an actual height (the
//     user profile fetcher). BMR omits the gender offset, activity comes from
//     the ordinal 1..5 scale (unknown levels default to 1.55), and no goal
//     adjustment is applied.
//
// Everything here is pure. Results are unrounded; see Round2 and Display.
package nutrition

import (
	"fmt"
	"math"

	"nutritrack/internal/models"
)

// Variant selects the BMR/activity formula.
type Variant int

const (
	HeightFree Variant = iota + 1
	HeightAware
)

func (v Variant) String() string {
	switch v {
	case HeightFree:
		return "height-free"
	case HeightAware:
		return "height-aware"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

const (
	// Reference heights stand in for the individual's height in the height-free formula.
	ReferenceHeightMale   = 69.0
	ReferenceHeightFemale = 64.0

	GoalAdjustment = 250.0

	ProteinPerWeight     = 0.8
	FatCalorieShare      = 0.30
	FatEnergyDensity     = 9.0
	CarbEnergyDensity    = 4.0
	ProteinEnergyDensity = 4.0
)

// Input carries everything either variant may need. ActivityName is read by
// HeightFree only, ActivityOrdinal and Height by HeightAware only.
type Input struct {
	Variant         Variant
	Weight          float64
	Height          float64
	Age             int
	Gender          string
	Goal            models.NutritionGoal
	ActivityName    string
	ActivityOrdinal int
}

// FromProfile builds a height-aware input from a stored profile.
func FromProfile(p models.Profile) Input {
	return Input{
		Variant:         HeightAware,
		Weight:          p.Weight,
		Height:          p.Height,
		Age:             p.Age,
		Gender:          p.Gender,
		Goal:            p.NutritionGoal,
		ActivityOrdinal: p.ActivityLevel,
	}
}

// Breakdown exposes the intermediate values alongside the final needs.
type Breakdown struct {
	Variant    Variant
	BMR        float64
	Multiplier float64
	TDEE       float64
	models.ComputedNeeds
}

// Compute runs the selected variant.
func Compute(in Input) (Breakdown, error) {
	if in.Weight <= 0 {
		return Breakdown{}, fmt.Errorf("weight must be positive, got %v", in.Weight)
	}
	if in.Age <= 0 {
		return Breakdown{}, fmt.Errorf("age must be positive, got %d", in.Age)
	}

	var b Breakdown
	b.Variant = in.Variant

	switch in.Variant {
	case HeightFree:
		m, err := NamedActivityMultiplier(in.ActivityName)
		if err != nil {
			return Breakdown{}, err
		}
		b.BMR = HeightFreeBMR(in.Weight, in.Age, in.Gender)
		b.Multiplier = m
		b.TDEE = b.BMR * m
		b.DailyCalories = AdjustForGoal(b.TDEE, in.Goal)
	case HeightAware:
		if in.Height <= 0 {
			return Breakdown{}, fmt.Errorf("height must be positive for the %s formula, got %v", in.Variant, in.Height)
		}
		b.BMR = HeightAwareBMR(in.Weight, in.Height, in.Age)
		b.Multiplier = OrdinalActivityMultiplier(in.ActivityOrdinal)
		b.TDEE = b.BMR * b.Multiplier
		b.DailyCalories = b.TDEE
	default:
		return Breakdown{}, fmt.Errorf("unknown formula variant %d", int(in.Variant))
	}

	b.DailyCalories = math.Max(b.DailyCalories, 0)
	b.DailyProtein, b.DailyFat, b.DailyCarbs = Macros(b.DailyCalories, in.Weight)
	return b, nil
}

// ComputeNeeds is Compute without the intermediate values.
func ComputeNeeds(in Input) (models.ComputedNeeds, error) {
	b, err := Compute(in)
	if err != nil {
		return models.ComputedNeeds{}, err
	}
	return b.ComputedNeeds, nil
}

// HeightFreeBMR uses the reference height for the gender; anything other than
// "male" takes the female reference and offset.
func HeightFreeBMR(weight float64, age int, gender string) float64 {
	if gender == models.GenderMale {
		return 10*weight + 6.25*ReferenceHeightMale - 5*float64(age) + 5
	}
	return 10*weight + 6.25*ReferenceHeightFemale - 5*float64(age) - 161
}

// HeightAwareBMR has no gender offset.
func HeightAwareBMR(weight, height float64, age int) float64 {
	return 10*weight + 6.25*height - 5*float64(age)
}

// AdjustForGoal applies the bulk surplus or cut deficit. Unknown goals are
// treated as maintain.
func AdjustForGoal(tdee float64, goal models.NutritionGoal) float64 {
	switch goal {
	case models.GoalBulk:
		return tdee + GoalAdjustment
	case models.GoalCut:
		return tdee - GoalAdjustment
	default:
		return tdee
	}
}

// Macros splits a calorie budget. Carbs take whatever protein and fat leave
// and never go below zero.
func Macros(calories, weight float64) (protein, fat, carbs float64) {
	protein = ProteinPerWeight * weight
	fat = calories * FatCalorieShare / FatEnergyDensity
	carbs = (calories - (protein*ProteinEnergyDensity + fat*FatEnergyDensity)) / CarbEnergyDensity
	if carbs < 0 {
		carbs = 0
	}
	return protein, fat, carbs
}
