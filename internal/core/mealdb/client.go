// Package mealdb TheMealDB 客戶端，同時作為食譜詳細資料來源與匯入來源
package mealdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"recipe-recommender/internal/core/nutrition"
	"recipe-recommender/internal/infrastructure/breaker"
	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/pkg/common"
)

const maxIngredients = 20

// Meal TheMealDB 原始資料（欄位可能為 null）
type Meal map[string]interface{}

// Field 取得字串欄位並去除空白
func (m Meal) Field(key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return strings.TrimSpace(fmt.Sprint(v))
	}
	return strings.TrimSpace(s)
}

// MealSummary filter.php 回傳的精簡資料
type MealSummary struct {
	ID    string `json:"idMeal"`
	Name  string `json:"strMeal"`
	Thumb string `json:"strMealThumb"`
}

type mealsResponse struct {
	Meals []Meal `json:"meals"`
}

type summariesResponse struct {
	Meals []MealSummary `json:"meals"`
}

type categoriesResponse struct {
	Categories []struct {
		Name string `json:"strCategory"`
	} `json:"categories"`
}

// Client TheMealDB API 客戶端
type Client struct {
	client  *resty.Client
	breaker *breaker.Breaker
}

// NewClient 創建客戶端；br 可為 nil
func NewClient(cfg config.MealDBConfig, br *breaker.Breaker) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)

	return &Client{
		client:  client,
		breaker: br,
	}
}

func (c *Client) get(ctx context.Context, op, path string, params map[string]string, out interface{}) error {
	start := time.Now()
	_, err := breaker.Do(c.breaker, func() (struct{}, error) {
		resp, err := c.client.R().
			SetContext(ctx).
			SetQueryParams(params).
			SetResult(out).
			Get(path)
		if err != nil {
			return struct{}{}, fmt.Errorf("mealdb %s: %w", op, err)
		}
		if resp.IsError() {
			return struct{}{}, fmt.Errorf("mealdb %s: unexpected status %d", op, resp.StatusCode())
		}
		return struct{}{}, nil
	})
	common.LogUpstreamCall("mealdb", op, time.Since(start), err)
	return err
}

// Search 依名稱搜尋
func (c *Client) Search(ctx context.Context, name string) ([]Meal, error) {
	var out mealsResponse
	if err := c.get(ctx, "search", "/search.php", map[string]string{"s": name}, &out); err != nil {
		return nil, err
	}
	return out.Meals, nil
}

// Lookup 依 id 取得完整資料，不存在時回傳 nil
func (c *Client) Lookup(ctx context.Context, id string) (Meal, error) {
	var out mealsResponse
	if err := c.get(ctx, "lookup", "/lookup.php", map[string]string{"i": id}, &out); err != nil {
		return nil, err
	}
	if len(out.Meals) == 0 {
		return nil, nil
	}
	return out.Meals[0], nil
}

// Random 隨機一道
func (c *Client) Random(ctx context.Context) (Meal, error) {
	var out mealsResponse
	if err := c.get(ctx, "random", "/random.php", nil, &out); err != nil {
		return nil, err
	}
	if len(out.Meals) == 0 {
		return nil, nil
	}
	return out.Meals[0], nil
}

// Categories 所有分類名稱
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var out categoriesResponse
	if err := c.get(ctx, "categories", "/categories.php", nil, &out); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(out.Categories))
	for _, cat := range out.Categories {
		if name := strings.TrimSpace(cat.Name); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// FilterByCategory 某分類下的所有餐點
func (c *Client) FilterByCategory(ctx context.Context, category string) ([]MealSummary, error) {
	var out summariesResponse
	if err := c.get(ctx, "filter", "/filter.php", map[string]string{"c": category}, &out); err != nil {
		return nil, err
	}
	return out.Meals, nil
}

// GetFull 實作食譜詳細資料來源
func (c *Client) GetFull(ctx context.Context, id string) (*common.RecipeRecord, error) {
	meal, err := c.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if meal == nil {
		common.LogDebug("Meal not found", zap.String("id", id))
		return nil, nil
	}
	rec := ToRecord(meal)
	return &rec, nil
}

// ToRecord 轉換成 RecipeRecord；TheMealDB 沒有營養資料，Macros 保持為 0
func ToRecord(m Meal) common.RecipeRecord {
	rec := common.RecipeRecord{
		ID:     m.Field("idMeal"),
		Title:  m.Field("strMeal"),
		Image:  m.Field("strMealThumb"),
		Source: common.SourceMealDB,
	}

	for i := 1; i <= maxIngredients; i++ {
		name := m.Field(fmt.Sprintf("strIngredient%d", i))
		if name == "" {
			continue
		}
		qty, unit := nutrition.SplitMeasure(m.Field(fmt.Sprintf("strMeasure%d", i)))
		rec.Ingredients = append(rec.Ingredients, common.IngredientEntry{
			Name:     name,
			Quantity: qty,
			Unit:     unit,
		})
	}

	for _, line := range strings.Split(m.Field("strInstructions"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			rec.Steps = append(rec.Steps, line)
		}
	}

	var tags []string
	if raw := m.Field("strTags"); raw != "" {
		tags = append(tags, strings.Split(raw, ",")...)
	}
	tags = append(tags, m.Field("strCategory"), m.Field("strArea"))
	rec.Tags = common.NormalizeTags(tags)

	return rec
}
