package recommendation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"nutritrack/internal/models"
)

func menuItem(id int64, name string, calories, protein float64) models.MenuItem {
	return models.MenuItem{
		ID:        id,
		Name:      name,
		Nutrition: models.NutritionalInfo{Calories: calories, Protein: protein},
	}
}

func ids(items []ScoredItem) []int64 {
	out := make([]int64, 0, len(items))
	for _, s := range items {
		out = append(out, s.Item.ID)
	}
	return out
}

func TestScoreItems(t *testing.T) {
	items := []models.MenuItem{
		menuItem(1, "Egg whites", 300, 30),
		menuItem(2, "Pasta", 600, 20),
		menuItem(3, "Water", 0, 0),
	}

	t.Run("maintain favours calorie fit", func(t *testing.T) {
		scored := ScoreItems(items, 600, models.GoalMaintain)

		assert.Equal(t, []int64{2, 1, 3}, ids(scored))
		assert.InDelta(t, 0.5667, scored[0].Score, 1e-9)
		assert.InDelta(t, 1.0, scored[0].CalorieShare, 1e-9)
		assert.InDelta(t, 0.45, scored[1].Score, 1e-9)
		assert.InDelta(t, 0.4, scored[1].ProteinDensity, 1e-9)
		assert.Zero(t, scored[2].Score)
	})

	t.Run("cut favours protein density", func(t *testing.T) {
		scored := ScoreItems(items, 600, models.GoalCut)

		assert.Equal(t, []int64{1, 2, 3}, ids(scored))
		assert.InDelta(t, 0.43, scored[0].Score, 1e-9)
	})

	t.Run("unknown goal scores like maintain", func(t *testing.T) {
		assert.Equal(t, ScoreItems(items, 600, models.GoalMaintain), ScoreItems(items, 600, ""))
	})

	t.Run("ties keep id order", func(t *testing.T) {
		twins := []models.MenuItem{menuItem(9, "B", 200, 10), menuItem(4, "A", 200, 10)}
		assert.Equal(t, []int64{4, 9}, ids(ScoreItems(twins, 600, models.GoalBulk)))
	})

	t.Run("empty input", func(t *testing.T) {
		scored := ScoreItems(nil, 600, models.GoalBulk)
		assert.NotNil(t, scored)
		assert.Empty(t, scored)
	})
}

func TestRestrictionCriteria(t *testing.T) {
	tests := []struct {
		restrictions []string
		want         models.FilterCriteria
	}{
		{nil, models.FilterCriteria{}},
		{[]string{"halal"}, models.FilterCriteria{}},
		{[]string{" Vegan "}, models.FilterCriteria{IsVegan: true}},
		{[]string{"vegetarian", "nut-free"}, models.FilterCriteria{IsVegetarian: true}},
		{[]string{"vegetarian", "vegan"}, models.FilterCriteria{IsVegetarian: true, IsVegan: true}},
	}
	for _, tt := range tests {
		got := RestrictionCriteria(models.Profile{DietaryRestrictions: tt.restrictions})
		assert.Equal(t, tt.want, *got, "restrictions %v", tt.restrictions)
	}
}
