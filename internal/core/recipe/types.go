package recipe

import (
	"time"

	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/pkg/common"
)

// Outcome 推薦結果狀態
type Outcome string

const (
	OutcomeMatched   Outcome = "matched"
	OutcomeNoMatches Outcome = "no_matches"
)

// Failure 單一候選的補全失敗紀錄，不影響其他候選
type Failure struct {
	RecipeID string `json:"recipe_id"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// Result 推薦結果
type Result struct {
	Recipes      []common.RecipeRecord `json:"recipes"`
	Outcome      Outcome               `json:"outcome"`
	Failures     []Failure             `json:"failures,omitempty"`
	Query        string                `json:"query"`
	UsedFallback bool                  `json:"used_fallback"`
}

// Options 推薦流程參數
type Options struct {
	Workers          int
	MaxCount         int
	OverFetchFactor  int
	DetailTimeout    time.Duration
	GenerateTimeout  time.Duration
	CacheTTL         time.Duration
	PersistGenerated bool
	Tolerance        Tolerance
}

// DefaultOptions 預設參數
func DefaultOptions() Options {
	return Options{
		Workers:         4,
		MaxCount:        50,
		OverFetchFactor: 2,
		DetailTimeout:   5 * time.Second,
		GenerateTimeout: 60 * time.Second,
		Tolerance:       DefaultTolerance,
	}
}

// OptionsFromConfig 由設定檔建立參數
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Workers:          cfg.Recommend.Workers,
		MaxCount:         cfg.Recommend.MaxCount,
		OverFetchFactor:  cfg.Recommend.OverFetchFactor,
		DetailTimeout:    cfg.Recommend.DetailTimeout,
		GenerateTimeout:  cfg.Recommend.GenerateTimeout,
		CacheTTL:         cfg.Cache.TTL,
		PersistGenerated: cfg.Recommend.PersistGenerated,
		Tolerance: Tolerance{
			Calories: cfg.Ranking.CalorieTolerance,
			Macro:    cfg.Ranking.MacroTolerance,
		},
	}
}

// recommendInput 驗證用
type recommendInput struct {
	Preference     string   `validate:"max=200"`
	Restrictions   []string `validate:"max=50,dive,max=100"`
	TargetCalories float64  `validate:"gte=0"`
	ProteinG       float64  `validate:"gte=0"`
	CarbsG         float64  `validate:"gte=0"`
	FatG           float64  `validate:"gte=0"`
	FiberG         float64  `validate:"gte=0"`
	Count          int      `validate:"gte=1"`
}
