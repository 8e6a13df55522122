package recommendation

import (
	"math"
	"sort"

	"nutritrack/internal/models"
)

const caloriesPerGramProtein = 4.0

// ScoredItem is a menu item with its deterministic fit for one meal.
//
// CalorieShare is the item's calories over the per-meal target.
// ProteinDensity is the fraction of the item's energy that comes from protein.
type ScoredItem struct {
	Item           models.MenuItem `json:"item"`
	Score          float64         `json:"score"`
	CalorieShare   float64         `json:"calorie_share"`
	ProteinDensity float64         `json:"protein_density"`
}

// proteinWeight is the share of the score given to protein density; the rest
// rewards items close to the per-meal calorie target.
var proteinWeight = map[models.NutritionGoal]float64{
	models.GoalCut:      0.7,
	models.GoalMaintain: 0.5,
	models.GoalBulk:     0.3,
}

// ScoreItems ranks items by fit, best first. Ties keep catalog order by id.
func ScoreItems(items []models.MenuItem, mealCalories float64, goal models.NutritionGoal) []ScoredItem {
	w, ok := proteinWeight[goal]
	if !ok {
		w = proteinWeight[models.GoalMaintain]
	}

	scored := make([]ScoredItem, 0, len(items))
	for _, item := range items {
		cal := item.Nutrition.Calories

		var share, density float64
		if mealCalories > 0 {
			share = cal / mealCalories
		}
		if cal > 0 {
			density = math.Min(item.Nutrition.Protein*caloriesPerGramProtein/cal, 1)
		}
		closeness := math.Max(0, 1-math.Abs(1-share))

		scored = append(scored, ScoredItem{
			Item:           item,
			Score:          round4(w*density + (1-w)*closeness),
			CalorieShare:   round4(share),
			ProteinDensity: round4(density),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Item.ID < scored[j].Item.ID
	})
	return scored
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// RestrictionCriteria maps dietary restrictions onto menu filter flags.
func RestrictionCriteria(p models.Profile) *models.FilterCriteria {
	c := &models.FilterCriteria{}
	if p.HasRestriction("vegan") {
		c.IsVegan = true
	}
	if p.HasRestriction("vegetarian") {
		c.IsVegetarian = true
	}
	return c
}
