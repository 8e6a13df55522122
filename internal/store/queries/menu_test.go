package queries

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"nutritrack/internal/models"
)

func TestBuildMenuQuery(t *testing.T) {
	tests := []struct {
		name       string
		criteria   *models.FilterCriteria
		wantSuffix string
		wantArgs   []interface{}
	}{
		{
			name:       "nil criteria",
			criteria:   nil,
			wantSuffix: "WHERE 1=1 ORDER BY id",
		},
		{
			name:       "false flags add nothing",
			criteria:   &models.FilterCriteria{IsVegetarian: false, IsVegan: false},
			wantSuffix: "WHERE 1=1 ORDER BY id",
		},
		{
			name:       "dining hall only",
			criteria:   &models.FilterCriteria{DiningHall: "Main Hall"},
			wantSuffix: "WHERE 1=1 AND dining_hall = $1 ORDER BY id",
			wantArgs:   []interface{}{"Main Hall"},
		},
		{
			name:       "vegan and max calories",
			criteria:   &models.FilterCriteria{IsVegan: true, MaxCalories: models.Float(600)},
			wantSuffix: "WHERE 1=1 AND is_vegan = TRUE AND calories <= $1 ORDER BY id",
			wantArgs:   []interface{}{600.0},
		},
		{
			name: "every criterion",
			criteria: &models.FilterCriteria{
				DiningHall:   "North",
				IsVegetarian: true,
				IsVegan:      true,
				MaxCalories:  models.Float(700),
				MinProtein:   models.Float(25),
				NameContains: "50%_off",
			},
			wantSuffix: "WHERE 1=1 AND dining_hall = $1 AND is_vegetarian = TRUE AND is_vegan = TRUE" +
				" AND calories <= $2 AND protein >= $3 AND name ILIKE $4 ORDER BY id",
			wantArgs: []interface{}{"North", 700.0, 25.0, `%50\%\_off%`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := BuildMenuQuery(tt.criteria)
			assert.True(t, strings.HasSuffix(query, tt.wantSuffix), "query was %q", query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestBuildMenuQuery_ValuesNeverInlined(t *testing.T) {
	hostile := "x' OR '1'='1"
	query, args := BuildMenuQuery(&models.FilterCriteria{DiningHall: hostile, NameContains: hostile})

	assert.NotContains(t, query, hostile)
	assert.Equal(t, hostile, args[0])
}
