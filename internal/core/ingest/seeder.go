package ingest

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"recipe-recommender/internal/core/mealdb"
	"recipe-recommender/internal/core/recipe"
	"recipe-recommender/internal/pkg/common"
)

// Catalog 可列舉的食譜來源
type Catalog interface {
	Categories(ctx context.Context) ([]string, error)
	FilterByCategory(ctx context.Context, category string) ([]mealdb.MealSummary, error)
}

// SeedReport 匯入統計
type SeedReport struct {
	Categories int `json:"categories"`
	Enqueued   int `json:"enqueued"`
	Skipped    int `json:"skipped"`
}

// Seeder 走訪所有分類並把尚未入庫的食譜加入匯入佇列
type Seeder struct {
	catalog Catalog
	store   recipe.Store
	manager *Manager
	ready   atomic.Bool
}

// NewSeeder 創建 Seeder
func NewSeeder(catalog Catalog, store recipe.Store, manager *Manager) *Seeder {
	return &Seeder{
		catalog: catalog,
		store:   store,
		manager: manager,
	}
}

// Ready 匯入是否已完成（失敗也視為完成，服務仍可運作）
func (s *Seeder) Ready() bool {
	return s.ready.Load()
}

// MarkReady 不匯入時直接標記為就緒
func (s *Seeder) MarkReady() {
	s.ready.Store(true)
}

// Seed 列舉分類、加入佇列並等待處理完成
func (s *Seeder) Seed(ctx context.Context) (SeedReport, error) {
	defer s.MarkReady()

	var report SeedReport
	categories, err := s.catalog.Categories(ctx)
	if err != nil {
		return report, fmt.Errorf("list categories: %w", err)
	}

	seen := make(map[string]struct{})
	for _, category := range categories {
		meals, err := s.catalog.FilterByCategory(ctx, category)
		if err != nil {
			common.LogWarn("無法取得分類食譜", zap.String("category", category), zap.Error(err))
			continue
		}
		report.Categories++

		for _, meal := range meals {
			if meal.ID == "" {
				continue
			}
			if _, dup := seen[meal.ID]; dup {
				continue
			}
			seen[meal.ID] = struct{}{}

			existing, err := s.store.Get(ctx, meal.ID)
			if err == nil && existing != nil {
				report.Skipped++
				continue
			}
			if err := s.manager.Enqueue(ctx, meal.ID); err != nil {
				return report, err
			}
			report.Enqueued++
		}
	}

	if err := s.manager.WaitIdle(ctx); err != nil {
		return report, err
	}

	status := s.manager.GetQueueStatus()
	common.LogInfo("食譜匯入完成",
		zap.Int("categories", report.Categories),
		zap.Int("enqueued", report.Enqueued),
		zap.Int("skipped", report.Skipped),
		zap.Int64("processed", status.Processed),
		zap.Int64("failed", status.Failed),
	)
	return report, nil
}
