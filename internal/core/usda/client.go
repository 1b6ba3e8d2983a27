// Package usda USDA FoodData Central 營養查詢
package usda

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"recipe-recommender/internal/infrastructure/breaker"
	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/pkg/common"
)

const kilojoulesPerKcal = 4.184

type searchResponse struct {
	Foods []food `json:"foods"`
}

type food struct {
	FdcID         int            `json:"fdcId"`
	Description   string         `json:"description"`
	FoodNutrients []foodNutrient `json:"foodNutrients"`
}

type foodNutrient struct {
	NutrientName string  `json:"nutrientName"`
	UnitName     string  `json:"unitName"`
	Value        float64 `json:"value"`
}

// Client USDA 客戶端，實作 nutrition.Lookup
type Client struct {
	client  *resty.Client
	apiKey  string
	breaker *breaker.Breaker
}

// NewClient 創建客戶端；br 可為 nil
func NewClient(cfg config.USDAConfig, br *breaker.Breaker) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)

	return &Client{
		client:  client,
		apiKey:  cfg.APIKey,
		breaker: br,
	}
}

// Lookup 查詢每 100g 營養素；沒有結果時回傳 nil, nil
func (c *Client) Lookup(ctx context.Context, name string) (*common.MacroVector, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	start := time.Now()
	out, err := breaker.Do(c.breaker, func() (*searchResponse, error) {
		var out searchResponse
		resp, err := c.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"api_key":  c.apiKey,
				"query":    name,
				"pageSize": strconv.Itoa(1),
			}).
			SetResult(&out).
			Get("/foods/search")
		if err != nil {
			return nil, fmt.Errorf("usda search: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("usda search: unexpected status %d", resp.StatusCode())
		}
		return &out, nil
	})
	common.LogUpstreamCall("usda", "search", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	if out == nil || len(out.Foods) == 0 {
		return nil, nil
	}
	m := toMacros(out.Foods[0])
	return &m, nil
}

// toMacros 對應營養素名稱；熱量優先採用 KCAL，只有 kJ 時換算
func toMacros(f food) common.MacroVector {
	var m common.MacroVector
	haveKcal := false

	for _, n := range f.FoodNutrients {
		switch strings.ToLower(strings.TrimSpace(n.NutrientName)) {
		case "energy":
			switch strings.ToUpper(n.UnitName) {
			case "KCAL", "":
				m.Calories = n.Value
				haveKcal = true
			case "KJ":
				if !haveKcal {
					m.Calories = n.Value / kilojoulesPerKcal
				}
			}
		case "protein":
			m.ProteinG = n.Value
		case "carbohydrate, by difference":
			m.CarbsG = n.Value
		case "total lipid (fat)":
			m.FatG = n.Value
		case "fiber, total dietary":
			m.FiberG = n.Value
		}
	}
	return m.Clamp()
}
