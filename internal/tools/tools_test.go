package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "nutritrack/internal/common/errors"
	"nutritrack/internal/common/logger"
	"nutritrack/internal/models"
)

type MockProfileReader struct {
	mock.Mock
}

func (m *MockProfileReader) GetProfile(ctx context.Context, userID int64) (*models.Profile, bool, error) {
	args := m.Called(ctx, userID)
	profile, _ := args.Get(0).(*models.Profile)
	return profile, args.Bool(1), args.Error(2)
}

type MockMenuReader struct {
	mock.Mock
}

func (m *MockMenuReader) ListMenuItems(ctx context.Context, criteria *models.FilterCriteria) ([]models.MenuItem, error) {
	args := m.Called(ctx, criteria)
	items, _ := args.Get(0).([]models.MenuItem)
	return items, args.Error(1)
}

func sampleProfile() *models.Profile {
	return &models.Profile{
		ID:                  7,
		Name:                "Alex",
		Height:              175,
		Weight:              70,
		Age:                 25,
		DietaryRestrictions: []string{"vegan"},
		NutritionGoal:       models.GoalMaintain,
		ActivityLevel:       3,
	}
}

func TestProfileFetcher_Found(t *testing.T) {
	reader := new(MockProfileReader)
	reader.On("GetProfile", mock.Anything, int64(7)).Return(sampleProfile(), true, nil)

	fetcher := NewProfileFetcher(reader, logger.NewTestLogger(t))
	out, err := fetcher.Run(context.Background(), Args{ArgUserID: 7})
	require.NoError(t, err)
	require.True(t, out.Succeeded())
	assert.NoError(t, out.Err())

	res := out.(*ProfileResult)
	require.NotNil(t, res.UserData)
	assert.Equal(t, "Alex", res.UserData.Name)
	// 10*70 + 6.25*175 - 5*25 = 1668.75, times 1.55
	assert.InDelta(t, 2586.5625, res.UserData.CalculatedNeeds.DailyCalories, 1e-9)
	assert.Equal(t, 56.0, res.UserData.CalculatedNeeds.DailyProtein)
	reader.AssertExpectations(t)
}

func TestProfileFetcher_NotFoundIsStructured(t *testing.T) {
	reader := new(MockProfileReader)
	reader.On("GetProfile", mock.Anything, int64(999)).Return(nil, false, nil)

	fetcher := NewProfileFetcher(reader, logger.NewTestLogger(t))
	out, err := fetcher.Run(context.Background(), Args{ArgUserID: float64(999)})
	require.NoError(t, err)
	assert.False(t, out.Succeeded())

	res := out.(*ProfileResult)
	assert.Equal(t, "No user found with ID 999", res.Error)
	assert.Nil(t, res.UserData)

	std, ok := apperrors.As(out.Err())
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeUserNotFound, std.Code)
	assert.Contains(t, std.Message, "999")

	raw, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"No user found with ID 999"}`, string(raw))
}

func TestProfileFetcher_StoreFailure(t *testing.T) {
	reader := new(MockProfileReader)
	storeErr := apperrors.NewStoreUnavailableError(errors.New("dial tcp: connection refused"))
	reader.On("GetProfile", mock.Anything, int64(1)).Return(nil, false, storeErr)

	fetcher := NewProfileFetcher(reader, logger.NewTestLogger(t))
	out, err := fetcher.Run(context.Background(), Args{ArgUserID: "1"})
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	std, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeStoreUnavailable, std.Code)
}

func TestProfileFetcher_BadArguments(t *testing.T) {
	fetcher := NewProfileFetcher(new(MockProfileReader), logger.NewTestLogger(t))

	for name, args := range map[string]Args{
		"missing":      {},
		"fractional":   {ArgUserID: 1.5},
		"not a number": {ArgUserID: "abc"},
		"wrong type":   {ArgUserID: true},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := fetcher.Run(context.Background(), args)
			std, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.ErrCodeValidationFailed, std.Code)
		})
	}
}

func TestProfileFetcher_IncompleteProfile(t *testing.T) {
	p := sampleProfile()
	p.Height = 0

	reader := new(MockProfileReader)
	reader.On("GetProfile", mock.Anything, int64(7)).Return(p, true, nil)

	fetcher := NewProfileFetcher(reader, logger.NewTestLogger(t))
	_, err := fetcher.Run(context.Background(), Args{ArgUserID: int64(7)})
	std, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeValidationFailed, std.Code)
}

func TestMenuFetcher_AbsentCriteria(t *testing.T) {
	items := []models.MenuItem{{ID: 1, Name: "Oatmeal"}, {ID: 2, Name: "Omelette"}}
	reader := new(MockMenuReader)
	reader.On("ListMenuItems", mock.Anything, (*models.FilterCriteria)(nil)).Return(items, nil)

	fetcher := NewMenuFetcher(reader, logger.NewTestLogger(t))
	out, err := fetcher.Run(context.Background(), Args{})
	require.NoError(t, err)

	res := out.(*MenuResult)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.TotalItems)
	assert.Equal(t, items, res.MenuItems)
}

func TestMenuFetcher_CriteriaFromJSONMap(t *testing.T) {
	reader := new(MockMenuReader)
	reader.On("ListMenuItems", mock.Anything, mock.MatchedBy(func(c *models.FilterCriteria) bool {
		return c != nil && c.IsVegan && c.DiningHall == "North" && c.MaxCalories != nil && *c.MaxCalories == 600
	})).Return([]models.MenuItem{}, nil)

	fetcher := NewMenuFetcher(reader, logger.NewTestLogger(t))
	out, err := fetcher.Run(context.Background(), Args{ArgCriteria: map[string]interface{}{
		"is_vegan":     true,
		"dining_hall":  "North",
		"max_calories": 600.0,
	}})
	require.NoError(t, err)
	reader.AssertExpectations(t)

	res := out.(*MenuResult)
	assert.True(t, res.Succeeded())
	assert.Equal(t, 0, res.TotalItems)
}

func TestMenuFetcher_EmptyResultIsSuccess(t *testing.T) {
	reader := new(MockMenuReader)
	reader.On("ListMenuItems", mock.Anything, mock.Anything).Return(nil, nil)

	fetcher := NewMenuFetcher(reader, logger.NewTestLogger(t))
	res, err := fetcher.Fetch(context.Background(), &models.FilterCriteria{IsVegan: true})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NotNil(t, res.MenuItems)
	assert.Empty(t, res.MenuItems)

	raw, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"menu_items":[],"total_items":0}`, string(raw))
}

func TestMenuFetcher_StoreFailure(t *testing.T) {
	reader := new(MockMenuReader)
	reader.On("ListMenuItems", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewQueryExecutionFailedError("menu_items", errors.New("syntax error")))

	fetcher := NewMenuFetcher(reader, logger.NewTestLogger(t))
	out, err := fetcher.Run(context.Background(), nil)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestArgs_Criteria(t *testing.T) {
	c, err := Args{}.Criteria(ArgCriteria)
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = Args{ArgCriteria: models.FilterCriteria{IsVegetarian: true}}.Criteria(ArgCriteria)
	require.NoError(t, err)
	assert.True(t, c.IsVegetarian)

	_, err = Args{ArgCriteria: 42}.Criteria(ArgCriteria)
	assert.Error(t, err)
}

func TestTools_ImplementInterface(t *testing.T) {
	var _ Tool = (*ProfileFetcher)(nil)
	var _ Tool = (*MenuFetcher)(nil)

	assert.Equal(t, "User Profile Fetcher", NewProfileFetcher(nil, logger.NewNoOpLogger()).Name())
	assert.Equal(t, "Menu Catalog Fetcher", NewMenuFetcher(nil, logger.NewNoOpLogger()).Name())
}
