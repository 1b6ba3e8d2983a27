// Package service 以 AI 提供者生成食譜，作為推薦流程的備援來源
package service

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"recipe-recommender/internal/core/ai/provider"
	"recipe-recommender/internal/core/recipe"
	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/pkg/common"
)

const systemPrompt = "You are a nutrition-aware chef. Reply with a single JSON object and nothing else."

// Service 食譜生成服務，實作 recipe.Generator
type Service struct {
	provider    provider.Provider
	limiter     *rate.Limiter
	maxTokens   int
	temperature float64
}

// NewService 創建生成服務；minInterval 為兩次呼叫之間的最短間隔，0 表示不限制
func NewService(p provider.Provider, cfg config.OpenRouterConfig) *Service {
	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	return &Service{
		provider:    p,
		limiter:     rate.NewLimiter(limit, 1),
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// generatedRecipe 模型輸出格式
type generatedRecipe struct {
	Title       string                `json:"title"`
	Ingredients []generatedIngredient `json:"ingredients"`
	Steps       []string              `json:"steps"`
	Calories    float64               `json:"calories"`
	Macros      struct {
		Protein float64 `json:"protein"`
		Carbs   float64 `json:"carbs"`
		Fat     float64 `json:"fat"`
		Fiber   float64 `json:"fiber"`
	} `json:"macros"`
	Tags []string `json:"tags"`
}

// generatedIngredient 接受物件或單純字串
type generatedIngredient common.IngredientEntry

func (g *generatedIngredient) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*g = generatedIngredient{Name: strings.TrimSpace(name), Quantity: common.TextQuantity("")}
		return nil
	}
	var entry common.IngredientEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return err
	}
	*g = generatedIngredient(entry)
	return nil
}

// Generate 生成一道食譜；輸出含有排除食材時回傳 nil, nil
func (s *Service) Generate(ctx context.Context, preference string, target common.MacroVector, excluded []string) (*common.RecipeRecord, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}

	start := time.Now()
	resp, err := s.provider.Generate(ctx, &provider.Request{
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: systemPrompt},
			{Role: provider.RoleUser, Content: BuildPrompt(preference, target, excluded)},
		},
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
		JSONMode:    true,
	})
	if err != nil {
		return nil, err
	}

	rec, err := ParseRecipe(resp.Content)
	if err != nil {
		common.LogWarn("無法解析生成的食譜",
			zap.String("model", s.provider.GetModel()),
			zap.Error(err),
		)
		return nil, err
	}

	if !recipe.Passes(*rec, excluded) {
		common.LogWarn("生成的食譜包含排除食材，已捨棄",
			zap.String("title", rec.Title),
			zap.Strings("excluded", excluded),
		)
		return nil, nil
	}

	common.LogInfo("食譜生成完成",
		zap.String("id", rec.ID),
		zap.String("title", rec.Title),
		zap.Duration("耗時", time.Since(start)),
	)
	return rec, nil
}

// BuildPrompt 組合 JSON-only 的生成提示
func BuildPrompt(preference string, target common.MacroVector, excluded []string) string {
	var b strings.Builder

	preference = strings.TrimSpace(preference)
	if preference == "" {
		b.WriteString("Generate a recipe that meets the following nutritional requirements:\n")
	} else {
		fmt.Fprintf(&b, "Generate a %s recipe that meets the following nutritional requirements:\n", preference)
	}
	fmt.Fprintf(&b, "- Target calories: %d kcal\n", int(math.Round(target.Calories)))
	fmt.Fprintf(&b, "- Protein: %gg\n", target.ProteinG)
	fmt.Fprintf(&b, "- Carbs: %gg\n", target.CarbsG)
	fmt.Fprintf(&b, "- Fat: %gg\n", target.FatG)
	fmt.Fprintf(&b, "- Fiber: %gg\n", target.FiberG)

	var avoid []string
	for _, term := range excluded {
		if term = strings.TrimSpace(term); term != "" {
			avoid = append(avoid, term)
		}
	}
	if len(avoid) > 0 {
		fmt.Fprintf(&b, "Do not use any of these ingredients: %s\n", strings.Join(avoid, ", "))
	}

	b.WriteString(`Respond with JSON only, in this exact shape:
{"title": "Recipe title",
 "ingredients": [{"name": "ingredient", "quantity": 1, "unit": "cup"}],
 "steps": ["step 1", "step 2"],
 "calories": 0,
 "macros": {"protein": 0, "carbs": 0, "fat": 0, "fiber": 0},
 "tags": ["tag"]}`)
	return b.String()
}

// ParseRecipe 解析模型輸出（容忍 ``` 區塊與未加引號的鍵）
func ParseRecipe(content string) (*common.RecipeRecord, error) {
	var g generatedRecipe
	if err := common.ParseLooseJSON(content, &g); err != nil {
		return nil, fmt.Errorf("generator: invalid recipe JSON: %w", err)
	}

	title := strings.TrimSpace(g.Title)
	if title == "" {
		return nil, fmt.Errorf("generator: recipe without title")
	}

	rec := &common.RecipeRecord{
		ID:     "gen-" + common.GenerateUUID(),
		Title:  title,
		Source: common.SourceGenerated,
		Tags:   common.NormalizeTags(g.Tags),
		Macros: common.MacroVector{
			Calories: g.Calories,
			ProteinG: g.Macros.Protein,
			CarbsG:   g.Macros.Carbs,
			FatG:     g.Macros.Fat,
			FiberG:   g.Macros.Fiber,
		}.Clamp(),
	}
	for _, ing := range g.Ingredients {
		if ing.Name = strings.TrimSpace(ing.Name); ing.Name != "" {
			rec.Ingredients = append(rec.Ingredients, common.IngredientEntry(ing))
		}
	}
	rec.Steps = recipe.NormalizeSteps(g.Steps)
	return rec, nil
}

var _ recipe.Generator = (*Service)(nil)
