// internal/tools/profile.go
package tools

import (
	"context"
	"fmt"

	"nutritrack/internal/common/errors"
	"nutritrack/internal/common/logger"
	"nutritrack/internal/common/metrics"
	"nutritrack/internal/models"
	"nutritrack/internal/nutrition"
	"nutritrack/internal/store"
)

const ProfileFetcherName = "User Profile Fetcher"

// ProfileResult is the structured outcome of a profile lookup.
type ProfileResult struct {
	Success  bool             `json:"success"`
	Error    string           `json:"error,omitempty"`
	UserData *models.UserData `json:"user_data,omitempty"`

	userID int64
}

func (r *ProfileResult) Succeeded() bool { return r.Success }

func (r *ProfileResult) Err() error {
	if r.Success {
		return nil
	}
	return errors.NewUserNotFoundError(r.userID)
}

// ProfileFetcher looks up one user and attaches the needs computed with the
// height-aware formula.
type ProfileFetcher struct {
	profiles store.ProfileReader
	logger   logger.Logger
}

func NewProfileFetcher(profiles store.ProfileReader, log logger.Logger) *ProfileFetcher {
	return &ProfileFetcher{
		profiles: profiles,
		logger:   log.WithFields(map[string]interface{}{"tool": ProfileFetcherName}),
	}
}

func (f *ProfileFetcher) Name() string { return ProfileFetcherName }

func (f *ProfileFetcher) Description() string {
	return "Fetches a user's profile and computes daily calorie and macronutrient needs from height, weight, age and activity level."
}

func (f *ProfileFetcher) Run(ctx context.Context, args Args) (Output, error) {
	userID, err := args.Int64(ArgUserID)
	if err != nil {
		metrics.ToolInvocations.WithLabelValues(ProfileFetcherName, metrics.OutcomeError).Inc()
		return nil, errors.NewValidationError(err.Error())
	}

	res, err := f.Fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Fetch is the typed form of Run.
func (f *ProfileFetcher) Fetch(ctx context.Context, userID int64) (*ProfileResult, error) {
	profile, found, err := f.profiles.GetProfile(ctx, userID)
	if err != nil {
		metrics.ToolInvocations.WithLabelValues(ProfileFetcherName, metrics.OutcomeError).Inc()
		f.logger.Error("profile lookup failed", map[string]interface{}{"userId": userID, "error": err})
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if !found {
		metrics.ToolInvocations.WithLabelValues(ProfileFetcherName, metrics.OutcomeNotFound).Inc()
		f.logger.Info("profile not found", map[string]interface{}{"userId": userID})
		return &ProfileResult{
			Success: false,
			Error:   fmt.Sprintf("No user found with ID %d", userID),
			userID:  userID,
		}, nil
	}

	needs, err := nutrition.ComputeNeeds(nutrition.FromProfile(*profile))
	if err != nil {
		metrics.ToolInvocations.WithLabelValues(ProfileFetcherName, metrics.OutcomeError).Inc()
		f.logger.Warn("profile is incomplete", map[string]interface{}{"userId": userID, "error": err})
		return nil, errors.NewValidationError(fmt.Sprintf("profile %d: %v", userID, err)).
			WithMetadata("userId", userID)
	}

	metrics.ToolInvocations.WithLabelValues(ProfileFetcherName, metrics.OutcomeSuccess).Inc()
	return &ProfileResult{
		Success:  true,
		UserData: &models.UserData{Profile: *profile, CalculatedNeeds: needs},
		userID:   userID,
	}, nil
}
