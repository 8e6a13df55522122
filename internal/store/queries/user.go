// internal/store/queries/user.go
package queries

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"

	"nutritrack/internal/models"
)

const userProfileSQL = `SELECT id, COALESCE(name, ''), COALESCE(height, 0), COALESCE(weight, 0), COALESCE(age, 0),
       dietary_restrictions, COALESCE(nutrition_goals, ''), COALESCE(activity_level, 0)
FROM users
WHERE id = $1`

// UserProfile loads one user row. Columns left NULL by an unfinished
// onboarding form come back as zero values.
func UserProfile(ctx context.Context, q Querier, userID int64) (*models.Profile, error) {
	var (
		p            models.Profile
		restrictions pq.StringArray
		goal         string
	)

	err := q.QueryRowContext(ctx, userProfileSQL, userID).Scan(
		&p.ID, &p.Name, &p.Height, &p.Weight, &p.Age,
		&restrictions, &goal, &p.ActivityLevel,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, err
	}

	p.DietaryRestrictions = []string(restrictions)
	if p.DietaryRestrictions == nil {
		p.DietaryRestrictions = []string{}
	}
	p.NutritionGoal = models.NutritionGoal(strings.ToLower(strings.TrimSpace(goal)))

	return &p, nil
}
