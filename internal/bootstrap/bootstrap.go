// Package bootstrap 依設定組裝所有服務，供 cmd/api 與 cmd/seed 共用
package bootstrap

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"recipe-recommender/internal/core/ai/openrouter"
	"recipe-recommender/internal/core/ai/provider"
	aiService "recipe-recommender/internal/core/ai/service"
	"recipe-recommender/internal/core/cache"
	"recipe-recommender/internal/core/ingest"
	"recipe-recommender/internal/core/mealdb"
	"recipe-recommender/internal/core/nutrition"
	"recipe-recommender/internal/core/recipe"
	"recipe-recommender/internal/core/store"
	"recipe-recommender/internal/core/usda"
	"recipe-recommender/internal/infrastructure/breaker"
	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/infrastructure/database"
	"recipe-recommender/internal/pkg/common"
)

const nutritionCachePrefix = "recipe-recommender:"

// App 組裝完成的服務
type App struct {
	Config     *config.Config
	DB         *gorm.DB
	Redis      *redis.Client
	Store      *store.Store
	MealDB     *mealdb.Client
	Lookup     *nutrition.CachedLookup
	Candidates *recipe.CandidateCache
	Provider   provider.Provider
	Recipes    *recipe.Service
	Ingest     *ingest.Manager
	Seeder     *ingest.Seeder
}

// Build 開啟資料庫與快取並建立所有服務；失敗時已開啟的資源會被釋放
func Build(cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}
	if err := app.init(); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (app *App) init() error {
	cfg := app.Config

	var err error
	app.DB, err = database.Open(cfg.Database)
	if err != nil {
		return err
	}
	if err := database.Migrate(app.DB, store.Models()...); err != nil {
		return err
	}

	app.Redis, err = database.NewRedisClient(cfg.Redis)
	if err != nil {
		return err
	}

	app.MealDB = mealdb.NewClient(cfg.MealDB, breaker.New("mealdb", cfg.Breaker))
	usdaClient := usda.NewClient(cfg.USDA, breaker.New("usda", cfg.Breaker))

	var remote nutrition.RemoteCache
	if app.Redis != nil {
		remote = cache.NewService(app.Redis, cfg.Redis.TTL, nutritionCachePrefix)
	}
	app.Lookup, err = nutrition.NewCachedLookup(usdaClient, cfg.Nutrition.LookupCacheSize, remote)
	if err != nil {
		return fmt.Errorf("nutrition cache: %w", err)
	}
	backfiller := nutrition.NewBackfiller(app.Lookup, cfg.Recommend.LookupTimeout)

	app.Candidates = cache.NewManager[[]common.RecipeRecord](cfg.Cache)
	app.Store = store.New(app.DB, app.Candidates)

	var generator recipe.Generator
	if cfg.OpenRouter.GeneratorEnabled() {
		app.Provider = openrouter.NewClient(cfg.OpenRouter, breaker.New("openrouter", cfg.Breaker))
		generator = aiService.NewService(app.Provider, cfg.OpenRouter)
		common.LogInfo("Recipe generator enabled",
			zap.String("model", cfg.OpenRouter.Model),
			zap.String("api_key", config.MaskAPIKey(cfg.OpenRouter.APIKey)),
		)
	} else {
		common.LogWarn("Recipe generator disabled: OPENROUTER_API_KEY not set")
	}

	app.Recipes = recipe.NewService(app.Store, app.MealDB, generator, backfiller, app.Candidates, recipe.OptionsFromConfig(cfg))

	app.Ingest = ingest.NewManager(cfg.Ingest, app.MealDB, app.Store, cfg.Recommend.DetailTimeout)
	app.Seeder = ingest.NewSeeder(app.MealDB, app.Store, app.Ingest)
	return nil
}

// Ping 檢查資料庫連線
func (app *App) Ping(ctx context.Context) error {
	return database.Ping(ctx, app.DB)
}

// Close 依建立的相反順序釋放資源
func (app *App) Close() {
	if app == nil {
		return
	}
	if app.Ingest != nil {
		app.Ingest.Close()
	}
	if app.Provider != nil {
		_ = app.Provider.Close()
	}
	if app.Candidates != nil {
		_ = app.Candidates.Close()
	}
	if app.Lookup != nil {
		app.Lookup.Close()
	}
	if app.Redis != nil {
		if err := app.Redis.Close(); err != nil {
			common.LogWarn("Failed to close redis", zap.Error(err))
		}
	}
	if app.DB != nil {
		if err := database.Close(app.DB); err != nil {
			common.LogWarn("Failed to close database", zap.Error(err))
		}
	}
}
