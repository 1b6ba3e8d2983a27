package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-recommender/internal/core/ai/provider"
	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/pkg/common"
)

type fakeProvider struct {
	mu       sync.Mutex
	content  string
	err      error
	requests []*provider.Request
}

func (f *fakeProvider) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &provider.Response{Content: f.content, Model: "fake"}, nil
}

func (f *fakeProvider) GetModel() string { return "fake" }
func (f *fakeProvider) GetTimeout() time.Duration { return time.Second }
func (f *fakeProvider) Close() error { return nil }

const fencedOutput = "Here you go:\n```json\n" + `{title: "Chickpea Bowl",
 ingredients: [{"name": "chickpeas", "quantity": 200, "unit": "g"}, "1 lemon", {"name": " ", "quantity": 1, "unit": ""}],
 steps: ["1. Rinse chickpeas", "Step 2", "2. Toss with lemon."],
 calories: 480,
 macros: {protein: 22, carbs: 60, fat: -3, fiber: 14},
 tags: ["Vegan", "bowl", "vegan"]}` + "\n```"

var target = common.MacroVector{Calories: 500, ProteinG: 30, CarbsG: 50, FatG: 20, FiberG: 7}

func TestGenerateParsesModelOutput(t *testing.T) {
	p := &fakeProvider{content: fencedOutput}
	s := NewService(p, config.OpenRouterConfig{MaxTokens: 800, Temperature: 0.5})

	rec, err := s.Generate(context.Background(), "vegan", target, []string{"peanut"})
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.True(t, strings.HasPrefix(rec.ID, "gen-"))
	assert.Equal(t, common.SourceGenerated, rec.Source)
	assert.Equal(t, "Chickpea Bowl", rec.Title)
	assert.Equal(t, []string{"bowl", "vegan"}, rec.Tags)
	assert.Equal(t, common.MacroVector{Calories: 480, ProteinG: 22, CarbsG: 60, FatG: 0, FiberG: 14}, rec.Macros)

	require.Len(t, rec.Ingredients, 2)
	assert.Equal(t, common.IngredientEntry{Name: "chickpeas", Quantity: common.NumberQuantity(200), Unit: "g"}, rec.Ingredients[0])
	assert.Equal(t, "1 lemon", rec.Ingredients[1].Name)
	assert.Equal(t, []string{"Rinse chickpeas Toss with lemon."}, rec.Steps)

	require.Len(t, p.requests, 1)
	req := p.requests[0]
	assert.True(t, req.JSONMode)
	assert.Equal(t, 800, req.MaxTokens)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, provider.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[1].Content, "Generate a vegan recipe")
	assert.Contains(t, req.Messages[1].Content, "peanut")
}

func TestGenerateDropsOutputWithExcludedIngredient(t *testing.T) {
	s := NewService(&fakeProvider{content: fencedOutput}, config.OpenRouterConfig{})

	rec, err := s.Generate(context.Background(), "vegan", target, []string{"Chickpea"})
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestGenerateErrors(t *testing.T) {
	upstream := errors.New("openrouter: status 429")
	s := NewService(&fakeProvider{err: upstream}, config.OpenRouterConfig{})
	_, err := s.Generate(context.Background(), "", target, nil)
	assert.ErrorIs(t, err, upstream)

	s = NewService(&fakeProvider{content: "I cannot help with that."}, config.OpenRouterConfig{})
	_, err = s.Generate(context.Background(), "", target, nil)
	require.Error(t, err)

	s = NewService(&fakeProvider{content: `{"title": "  ", "steps": []}`}, config.OpenRouterConfig{})
	_, err = s.Generate(context.Background(), "", target, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without title")
}

func TestGenerateRespectsMinInterval(t *testing.T) {
	p := &fakeProvider{content: `{"title": "Toast", "ingredients": ["bread"], "steps": ["Toast it."]}`}
	s := NewService(p, config.OpenRouterConfig{MinInterval: 80 * time.Millisecond})

	start := time.Now()
	for i := 0; i < 2; i++ {
		_, err := s.Generate(context.Background(), "", target, nil)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Generate(ctx, "", target, nil)
	require.Error(t, err)
	assert.Len(t, p.requests, 2)
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("  ", common.MacroVector{Calories: 612.6, ProteinG: 40}, []string{" ", "shellfish", "dairy"})

	assert.Contains(t, prompt, "Generate a recipe that meets")
	assert.Contains(t, prompt, "Target calories: 613 kcal")
	assert.Contains(t, prompt, "Protein: 40g")
	assert.Contains(t, prompt, "Do not use any of these ingredients: shellfish, dairy")
	assert.Contains(t, prompt, `"title"`)
}
