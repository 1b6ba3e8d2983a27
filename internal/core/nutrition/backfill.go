package nutrition

import (
	"context"
	"time"

	"go.uber.org/zap"

	"recipe-recommender/internal/pkg/common"
)

// Lookup 以食材名稱查詢每 100g 的營養素，查無資料時回傳 nil, nil
type Lookup interface {
	Lookup(ctx context.Context, name string) (*common.MacroVector, error)
}

// LookupFunc 讓一般函式滿足 Lookup
type LookupFunc func(ctx context.Context, name string) (*common.MacroVector, error)

// Lookup 實作 Lookup 介面
func (f LookupFunc) Lookup(ctx context.Context, name string) (*common.MacroVector, error) {
	return f(ctx, name)
}

// BackfillReport 補算過程統計
type BackfillReport struct {
	Resolved int `json:"resolved"`
	Missing  int `json:"missing"`
	Failed   int `json:"failed"`
}

// Backfiller 根據食材重量與每 100g 營養素推算整份食譜的營養
type Backfiller struct {
	lookup  Lookup
	timeout time.Duration
}

// NewBackfiller 創建補算器；timeout 為單次查詢上限，0 表示不限制
func NewBackfiller(lookup Lookup, timeout time.Duration) *Backfiller {
	return &Backfiller{
		lookup:  lookup,
		timeout: timeout,
	}
}

// NeedsBackfill 只有營養欄位全為 0 時才需要補算
func NeedsBackfill(m common.MacroVector) bool {
	return m.IsZero()
}

// Backfill 累加每個食材的營養素；查無或查詢失敗的食材貢獻 0，不中斷
func (b *Backfiller) Backfill(ctx context.Context, ingredients []common.IngredientEntry) (common.MacroVector, BackfillReport) {
	var total common.MacroVector
	var report BackfillReport

	if b == nil || b.lookup == nil {
		report.Missing = len(ingredients)
		return total, report
	}

	for _, ing := range ingredients {
		per100, err := b.lookupOne(ctx, ing.Name)
		if err != nil {
			report.Failed++
			common.LogWarn("Nutrition lookup failed",
				zap.String("ingredient", ing.Name),
				zap.Error(err),
			)
			continue
		}
		if per100 == nil {
			report.Missing++
			continue
		}

		grams := EstimateGrams(ing)
		total = total.Add(per100.Clamp().Scale(grams / 100))
		report.Resolved++
	}

	return total.Clamp(), report
}

func (b *Backfiller) lookupOne(ctx context.Context, name string) (*common.MacroVector, error) {
	if b.timeout <= 0 {
		return b.lookup.Lookup(ctx, name)
	}
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.lookup.Lookup(ctx, name)
}
