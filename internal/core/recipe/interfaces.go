package recipe

import (
	"context"

	"recipe-recommender/internal/pkg/common"
)

// Store 食譜儲存庫
type Store interface {
	// Get 不存在時回傳 nil, nil
	Get(ctx context.Context, id string) (*common.RecipeRecord, error)
	Query(ctx context.Context, text string, limit int) ([]common.RecipeRecord, error)
	// Put 以 id 為準，重複寫入不覆蓋
	Put(ctx context.Context, record common.RecipeRecord) error
}

// DetailSource 取得完整食譜內容（食材、步驟）
type DetailSource interface {
	GetFull(ctx context.Context, id string) (*common.RecipeRecord, error)
}

// Generator 沒有候選食譜時的生成式備援
type Generator interface {
	Generate(ctx context.Context, preference string, target common.MacroVector, excluded []string) (*common.RecipeRecord, error)
}
