// internal/store/queries/menu.go
package queries

import (
	"context"
	"fmt"
	"strings"

	"nutritrack/internal/models"
)

const menuItemsBaseSQL = `SELECT id, name, COALESCE(dining_hall, ''),
       COALESCE(calories, 0), COALESCE(protein, 0), COALESCE(fat, 0), COALESCE(carbs, 0),
       COALESCE(is_vegetarian, FALSE), COALESCE(is_vegan, FALSE)
FROM menu_items
WHERE 1=1`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// BuildMenuQuery renders the criteria as a parameterized statement. Values are
// never interpolated into the SQL text.
func BuildMenuQuery(c *models.FilterCriteria) (string, []interface{}) {
	var (
		sb   strings.Builder
		args []interface{}
	)
	sb.WriteString(menuItemsBaseSQL)

	bind := func(clause string, v interface{}) {
		args = append(args, v)
		fmt.Fprintf(&sb, clause, len(args))
	}

	if c != nil {
		if c.DiningHall != "" {
			bind(" AND dining_hall = $%d", c.DiningHall)
		}
		if c.IsVegetarian {
			sb.WriteString(" AND is_vegetarian = TRUE")
		}
		if c.IsVegan {
			sb.WriteString(" AND is_vegan = TRUE")
		}
		if c.MaxCalories != nil {
			bind(" AND calories <= $%d", *c.MaxCalories)
		}
		if c.MinProtein != nil {
			bind(" AND protein >= $%d", *c.MinProtein)
		}
		if c.NameContains != "" {
			bind(" AND name ILIKE $%d", "%"+likeEscaper.Replace(c.NameContains)+"%")
		}
	}

	sb.WriteString(" ORDER BY id")
	return sb.String(), args
}

// MenuItems returns every row matching the criteria. An empty result is not an error.
func MenuItems(ctx context.Context, q Querier, c *models.FilterCriteria) ([]models.MenuItem, error) {
	query, args := BuildMenuQuery(c)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.MenuItem{}
	for rows.Next() {
		var item models.MenuItem
		if err := rows.Scan(
			&item.ID, &item.Name, &item.DiningHall,
			&item.Nutrition.Calories, &item.Nutrition.Protein, &item.Nutrition.Fat, &item.Nutrition.Carbs,
			&item.Dietary.IsVegetarian, &item.Dietary.IsVegan,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}
