package recommendation

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutritrack/internal/common/errors"
	"nutritrack/internal/common/logger"
	"nutritrack/internal/models"
	"nutritrack/internal/pipeline"
	"nutritrack/internal/reasoning"
	"nutritrack/internal/tools"
	"nutritrack/pkg/registry"
)

type memoryStore struct {
	mu       sync.Mutex
	profiles map[int64]models.Profile
	menu     []models.MenuItem
	queries  []models.FilterCriteria
}

func (m *memoryStore) GetProfile(_ context.Context, id int64) (*models.Profile, bool, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, false, nil
	}
	return &p, true, nil
}

func (m *memoryStore) ListMenuItems(_ context.Context, c *models.FilterCriteria) ([]models.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c != nil {
		m.queries = append(m.queries, *c)
	} else {
		m.queries = append(m.queries, models.FilterCriteria{})
	}
	items := []models.MenuItem{}
	for _, item := range m.menu {
		if c.Matches(item) {
			items = append(items, item)
		}
	}
	return items, nil
}

func newMemoryStore(restrictions ...string) *memoryStore {
	if restrictions == nil {
		restrictions = []string{}
	}
	return &memoryStore{
		profiles: map[int64]models.Profile{
			1: {
				ID: 1, Name: "Jordan", Height: 175, Weight: 70, Age: 25,
				DietaryRestrictions: restrictions,
				NutritionGoal:       models.GoalMaintain,
				ActivityLevel:       3,
			},
		},
		menu: []models.MenuItem{
			{ID: 1, Name: "Oatmeal", DiningHall: "North",
				Nutrition: models.NutritionalInfo{Calories: 350, Protein: 12},
				Dietary:   models.DietaryInfo{IsVegetarian: true, IsVegan: true}},
			{ID: 2, Name: "Grilled Chicken", DiningHall: "North",
				Nutrition: models.NutritionalInfo{Calories: 450, Protein: 45}},
			{ID: 3, Name: "Tofu Stir Fry", DiningHall: "South",
				Nutrition: models.NutritionalInfo{Calories: 500, Protein: 25},
				Dietary:   models.DietaryInfo{IsVegetarian: true, IsVegan: true}},
			{ID: 4, Name: "Pizza", DiningHall: "South",
				Nutrition: models.NutritionalInfo{Calories: 1200, Protein: 40},
				Dietary:   models.DietaryInfo{IsVegetarian: true}},
		},
	}
}

type recordingReasoner struct {
	mu       sync.Mutex
	requests []pipeline.Request
}

func (r *recordingReasoner) Reason(_ context.Context, req pipeline.Request) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	return "text from " + req.StageID, nil
}

func newRecommender(t *testing.T, s *memoryStore, r pipeline.Reasoner) *Recommender {
	t.Helper()
	log := logger.NewTestLogger(t)
	stages, err := BuildPipeline(nil, Deps{
		Profiles: tools.NewProfileFetcher(s, log),
		Menu:     tools.NewMenuFetcher(s, log),
	})
	require.NoError(t, err)

	rec, err := NewRecommender(pipeline.NewOrchestrator(r, log), stages, log)
	require.NoError(t, err)
	return rec
}

func TestRecommend_EndToEnd(t *testing.T) {
	s := newMemoryStore()
	reasoner := &recordingReasoner{}
	rec := newRecommender(t, s, reasoner)

	res, err := rec.Recommend(context.Background(), Request{UserID: 1, Prompt: "something filling"})
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "text from recommendation", res.Recommendation)
	assert.Equal(t, []int64{2, 3, 1}, ids(res.Items))

	require.Len(t, res.Stages, 3)
	assert.Equal(t, registry.StageCollection, res.Stages[0].StageID())
	assert.Equal(t, registry.StageAnalysis, res.Stages[1].StageID())
	assert.Equal(t, registry.StageRecommendation, res.Stages[2].StageID())

	// Collection lists the whole catalog, analysis caps calories per meal.
	require.Len(t, s.queries, 2)
	assert.True(t, s.queries[0].IsEmpty())
	require.NotNil(t, s.queries[1].MaxCalories)
	assert.InDelta(t, 2586.5625/3, *s.queries[1].MaxCalories, 1e-9)

	require.Len(t, reasoner.requests, 3)
	collection, analysis, final := reasoner.requests[0], reasoner.requests[1], reasoner.requests[2]

	assert.Empty(t, collection.Input.UpstreamIDs())
	assert.ElementsMatch(t, []string{KeyProfile, KeyMenu}, keys(collection.ToolOutputs))
	assert.Equal(t, 4, collection.Derived[DataMenuItemCount])

	assert.Equal(t, []string{registry.StageCollection}, analysis.Input.UpstreamIDs())
	assert.Equal(t, 862.19, analysis.Derived[DataMealCalories])

	assert.Equal(t, []string{registry.StageAnalysis, registry.StageCollection}, final.Input.UpstreamIDs())
	assert.Empty(t, final.ToolOutputs)
	prompt, _ := final.Input.Shared(SharedPrompt)
	assert.Equal(t, "something filling", prompt)
}

func TestRecommend_ItemsAreCopies(t *testing.T) {
	rec := newRecommender(t, newMemoryStore(), &recordingReasoner{})

	res, err := rec.Recommend(context.Background(), Request{UserID: 1})
	require.NoError(t, err)
	require.NotEmpty(t, res.Items)
	want := res.Items[0]

	res.Items[0].Score = -1
	res.Items[0].Item.Name = "changed"

	raw, ok := res.Stages[2].Data(DataRecommended)
	require.True(t, ok)
	recommended := raw.([]ScoredItem)
	assert.Equal(t, want, recommended[0])

	raw, ok = res.Stages[1].Data(DataCandidates)
	require.True(t, ok)
	candidates := raw.([]ScoredItem)
	assert.Equal(t, want, candidates[0])

	recommended[0].Score = -2
	assert.Equal(t, want, candidates[0])
}

func TestRecommend_RestrictionsAndCallerCriteria(t *testing.T) {
	s := newMemoryStore("vegan")
	rec := newRecommender(t, s, &recordingReasoner{})

	res, err := rec.Recommend(context.Background(), Request{
		UserID:   1,
		Criteria: &models.FilterCriteria{DiningHall: "South"},
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{3}, ids(res.Items))
	for _, q := range s.queries {
		assert.True(t, q.IsVegan)
		assert.Equal(t, "South", q.DiningHall)
	}
}

func TestRecommend_TopN(t *testing.T) {
	s := newMemoryStore()
	log := logger.NewNoOpLogger()
	stages, err := BuildPipeline(nil, Deps{
		Profiles: tools.NewProfileFetcher(s, log),
		Menu:     tools.NewMenuFetcher(s, log),
		TopN:     1,
	})
	require.NoError(t, err)
	rec, err := NewRecommender(pipeline.NewOrchestrator(&recordingReasoner{}, log), stages, log)
	require.NoError(t, err)

	res, err := rec.Recommend(context.Background(), Request{UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids(res.Items))
}

func TestRecommend_UserNotFound(t *testing.T) {
	reasoner := &recordingReasoner{}
	rec := newRecommender(t, newMemoryStore(), reasoner)

	res, err := rec.Recommend(context.Background(), Request{UserID: 42})
	require.Error(t, err)
	assert.Nil(t, res)

	std, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeUserNotFound, std.Code)
	assert.Equal(t, registry.StageCollection, std.Metadata["stageId"])
	assert.Empty(t, reasoner.requests)
}

func TestRecommend_InvalidUserID(t *testing.T) {
	rec := newRecommender(t, newMemoryStore(), &recordingReasoner{})

	_, err := rec.Recommend(context.Background(), Request{UserID: 0})
	std, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeValidationFailed, std.Code)
}

func TestRecommend_WithEchoReasoner(t *testing.T) {
	rec := newRecommender(t, newMemoryStore(), reasoning.NewEchoReasoner())

	first, err := rec.Recommend(context.Background(), Request{UserID: 1})
	require.NoError(t, err)
	second, err := rec.Recommend(context.Background(), Request{UserID: 1})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(first.Recommendation, "Menu Recommender: Generate personalized menu recommendations"))
	assert.Contains(t, first.Recommendation, "Grilled Chicken")
	assert.Equal(t, first.Recommendation, second.Recommendation)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestBuildPipeline(t *testing.T) {
	log := logger.NewNoOpLogger()
	s := newMemoryStore()

	t.Run("missing tools", func(t *testing.T) {
		_, err := BuildPipeline(nil, Deps{Menu: tools.NewMenuFetcher(s, log)})
		std, ok := errors.As(err)
		require.True(t, ok)
		assert.Equal(t, errors.ErrCodeInvalidPipeline, std.Code)
	})

	t.Run("definitions and timeouts", func(t *testing.T) {
		reg, err := registry.Parse([]byte("stages:\n  - id: analysis\n    role: Dietitian\n    timeout: 1500\n"))
		require.NoError(t, err)

		stages, err := BuildPipeline(reg, Deps{
			Profiles:     tools.NewProfileFetcher(s, log),
			Menu:         tools.NewMenuFetcher(s, log),
			StageTimeout: 10 * time.Second,
		})
		require.NoError(t, err)
		require.NoError(t, pipeline.Validate(stages))

		require.Len(t, stages, 3)
		assert.Equal(t, 10*time.Second, stages[0].Timeout)
		assert.Equal(t, "Dietitian", stages[1].Role)
		assert.Equal(t, 1500*time.Millisecond, stages[1].Timeout)
		assert.Equal(t, []string{registry.StageCollection, registry.StageAnalysis}, stages[2].DependsOn)
		assert.True(t, strings.HasPrefix(stages[0].Goal, "Gather and organize user preferences and menu data. "))
	})

	t.Run("registry without a required stage", func(t *testing.T) {
		reg := &registry.StageRegistry{Stages: registry.Default().Stages[:2]}
		_, err := BuildPipeline(reg, Deps{
			Profiles: tools.NewProfileFetcher(s, log),
			Menu:     tools.NewMenuFetcher(s, log),
		})
		assert.Error(t, err)
	})
}

func keys(outputs pipeline.ToolOutputs) []string {
	out := make([]string, 0, len(outputs))
	for k := range outputs {
		out = append(out, k)
	}
	return out
}
