// Package store is the read-only persistence boundary for user profiles and
// the dining-hall menu catalog.
package store

import (
	"context"

	"nutritrack/internal/models"
)

// ProfileReader looks up a single profile. found is false when no row has the id.
type ProfileReader interface {
	GetProfile(ctx context.Context, userID int64) (profile *models.Profile, found bool, err error)
}

// MenuReader lists menu items matching the criteria. A nil criteria matches everything.
type MenuReader interface {
	ListMenuItems(ctx context.Context, criteria *models.FilterCriteria) ([]models.MenuItem, error)
}
