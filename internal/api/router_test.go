package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-recommender/internal/api/handlers/health"
	"recipe-recommender/internal/core/ingest"
	recipeService "recipe-recommender/internal/core/recipe"
	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/pkg/common"
)

type recommendCall struct {
	profile  common.DietProfile
	calories float64
	macros   common.MacroVector
	count    int
}

type fakeRecipes struct {
	mu        sync.Mutex
	calls     []recommendCall
	generated int
	records   map[string]common.RecipeRecord
}

func (f *fakeRecipes) Recommend(ctx context.Context, profile common.DietProfile, targetCalories float64, targetMacros common.MacroVector, count int) (*recipeService.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recommendCall{profile, targetCalories, targetMacros, count})
	if targetCalories < 0 {
		return nil, common.NewInvalidInputError("TargetCalories must be at least 0", nil)
	}
	return &recipeService.Result{
		Recipes: []common.RecipeRecord{{ID: "52772", Title: "Teriyaki Chicken"}},
		Outcome: recipeService.OutcomeMatched,
		Query:   recipeService.BuildQuery(profile.Preference, targetCalories),
	}, nil
}

func (f *fakeRecipes) Get(ctx context.Context, id string) (*common.RecipeRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &rec, nil
}

func (f *fakeRecipes) Generate(ctx context.Context, profile common.DietProfile, target common.MacroVector) (*common.RecipeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generated++
	return &common.RecipeRecord{ID: "gen-1", Title: "Lentil Soup", Source: common.SourceGenerated}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:       config.AppConfig{Version: "test"},
		Server:    config.ServerConfig{RequestTimeout: 5 * time.Second, MaxBodyBytes: 1 << 16, DedupWindow: time.Minute},
		Recommend: config.RecommendConfig{DefaultCount: 5},
		RateLimit: config.RateLimitConfig{Enabled: true, Requests: 1000, Window: time.Minute},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config, checks health.Checks) (*gin.Engine, *fakeRecipes) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	recipes := &fakeRecipes{records: map[string]common.RecipeRecord{
		"52772": {ID: "52772", Title: "Teriyaki Chicken"},
	}}
	return SetupRouter(cfg, Dependencies{Recipes: recipes, Health: checks}), recipes
}

func doRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRecommendDerivesTargetsFromBodyMetrics(t *testing.T) {
	r, recipes := newTestRouter(t, testConfig(), health.Checks{})

	w := doRequest(r, http.MethodPost, "/api/v1/recipes/recommend", `{
		"profile": {"dietary_preference": "Vegan", "dietary_restrictions": ["peanut"],
			"height": 180, "weight": 80, "age": 30, "sex": "male", "activity_level": 1.55, "fitness_goal": "deficit"},
		"target_calories": 0
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var resp struct {
		Recipes []common.RecipeRecord `json:"recipes"`
		Outcome string                `json:"outcome"`
		Query   string                `json:"query"`
		Targets struct {
			TargetCalories float64 `json:"target_calories"`
		} `json:"targets"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "matched", resp.Outcome)
	assert.Equal(t, "vegan recipe with 2259 calories", resp.Query)
	assert.Equal(t, 2259.0, resp.Targets.TargetCalories)
	require.Len(t, resp.Recipes, 1)

	require.Len(t, recipes.calls, 1)
	call := recipes.calls[0]
	assert.Equal(t, 5, call.count)
	assert.Equal(t, 2259.0, call.calories)
	assert.Equal(t, common.MacroVector{Calories: 2259, ProteinG: 226, CarbsG: 226, FatG: 50, FiberG: 32}, call.macros)
	assert.Equal(t, []string{"peanut"}, call.profile.Restrictions)
}

func TestRecommendUsesExplicitTargets(t *testing.T) {
	r, recipes := newTestRouter(t, testConfig(), health.Checks{})

	w := doRequest(r, http.MethodPost, "/api/v1/recipes/recommend", `{
		"profile": {"dietary_preference": "keto", "height": 180, "weight": 80, "age": 30},
		"target_calories": 600,
		"macro_split": {"protein": 40, "carbs": 10, "fat": 45},
		"num_recipes": 3
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), `"targets"`)

	require.Len(t, recipes.calls, 1)
	assert.Equal(t, 3, recipes.calls[0].count)
	assert.Equal(t, common.MacroVector{Calories: 600, ProteinG: 40, CarbsG: 10, FatG: 45}, recipes.calls[0].macros)
}

func TestRecommendRejectsBadInput(t *testing.T) {
	r, _ := newTestRouter(t, testConfig(), health.Checks{})

	w := doRequest(r, http.MethodPost, "/api/v1/recipes/recommend", `{"profile": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), common.ErrCodeInvalidInput)

	w = doRequest(r, http.MethodPost, "/api/v1/recipes/recommend", `{"target_calories": -5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodPost, "/api/v1/recipes/recommend", `{
		"profile": {"height": 180, "weight": 80, "age": 30, "sex": "male", "fitness_goal": "shred"}
	}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRecipe(t *testing.T) {
	r, _ := newTestRouter(t, testConfig(), health.Checks{})

	w := doRequest(r, http.MethodGet, "/api/v1/recipes/52772", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Teriyaki Chicken")

	w = doRequest(r, http.MethodGet, "/api/v1/recipes/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), common.ErrCodeNotFound)
}

func TestGenerateRejectsDuplicateRequests(t *testing.T) {
	r, recipes := newTestRouter(t, testConfig(), health.Checks{})
	body := `{"profile": {"dietary_preference": "vegan"}, "target_calories": 500}`

	w := doRequest(r, http.MethodPost, "/api/v1/recipes/generate", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "gen-1")

	w = doRequest(r, http.MethodPost, "/api/v1/recipes/generate", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = doRequest(r, http.MethodPost, "/api/v1/recipes/generate", `{"profile": {"dietary_preference": "keto"}, "target_calories": 500}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, recipes.generated)
}

func TestNutritionTargets(t *testing.T) {
	r, _ := newTestRouter(t, testConfig(), health.Checks{})

	w := doRequest(r, http.MethodPost, "/api/v1/nutrition/targets", `{
		"height_cm": 180, "weight_kg": 80, "age": 30, "sex": "male", "activity_level": 1.55, "goal": "deficit"
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 24.7, resp["bmi"])
	assert.Equal(t, 2759.0, resp["tdee"])
	assert.Equal(t, 2259.0, resp["target_calories"])

	w = doRequest(r, http.MethodPost, "/api/v1/nutrition/targets", `{"height_cm": 180}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthEndpoints(t *testing.T) {
	ready := false
	r, _ := newTestRouter(t, testConfig(), health.Checks{
		Version: "test",
		Queue: func() *ingest.Status {
			return &ingest.Status{Workers: 4, Processed: 12}
		},
		Ready: func() bool { return ready },
	})

	w := doRequest(r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"processed_count":12`)
	assert.Contains(t, w.Body.String(), `"version":"test"`)

	w = doRequest(r, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	ready = true
	w = doRequest(r, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/live", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitAppliesPerClient(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, Requests: 2, Window: time.Hour}
	r, _ := newTestRouter(t, cfg, health.Checks{})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/live", "").Code)
	}
	w := doRequest(r, http.MethodGet, "/live", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), common.ErrCodeTooManyRequests)
}
