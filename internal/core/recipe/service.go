package recipe

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"recipe-recommender/internal/core/cache"
	"recipe-recommender/internal/core/nutrition"
	"recipe-recommender/internal/pkg/common"
	"recipe-recommender/internal/pkg/validation"
)

// CandidateCache 候選食譜快取
type CandidateCache = cache.Manager[[]common.RecipeRecord]

// Service 食譜推薦服務
type Service struct {
	store      Store
	detail     DetailSource
	generator  Generator
	backfiller *nutrition.Backfiller
	candidates *CandidateCache
	opts       Options
}

// NewService 創建推薦服務；detail、generator、backfiller 與 candidates 皆可為 nil
func NewService(store Store, detail DetailSource, generator Generator, backfiller *nutrition.Backfiller, candidates *CandidateCache, opts Options) *Service {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.OverFetchFactor < 1 {
		opts.OverFetchFactor = 1
	}
	return &Service{
		store:      store,
		detail:     detail,
		generator:  generator,
		backfiller: backfiller,
		candidates: candidates,
		opts:       opts,
	}
}

// Recommend 檢索、補全、過濾並排序食譜
func (s *Service) Recommend(ctx context.Context, profile common.DietProfile, targetCalories float64, targetMacros common.MacroVector, count int) (*Result, error) {
	if err := s.validate(profile, targetCalories, targetMacros, count); err != nil {
		return nil, err
	}

	target := targetMacros
	target.Calories = targetCalories

	query := BuildQuery(profile.Preference, targetCalories)
	result := &Result{
		Recipes: []common.RecipeRecord{},
		Query:   query,
	}

	start := time.Now()
	candidates, err := s.fetchCandidates(ctx, query, count, profile)
	if err != nil {
		common.LogError("Recipe store query failed", zap.String("query", query), zap.Error(err))
		return nil, common.NewUpstreamError("recipe store unavailable", err)
	}

	if len(candidates) == 0 {
		generated, err := s.generate(ctx, profile, target)
		if err != nil {
			common.LogError("Recipe generation failed", zap.String("preference", profile.Preference), zap.Error(err))
			return nil, common.NewUpstreamError("recipe generator unavailable", err)
		}
		if generated == nil {
			result.Outcome = OutcomeNoMatches
			common.LogInfo("沒有可用的候選食譜", zap.String("query", query))
			return result, nil
		}
		result.UsedFallback = true
		candidates = []common.RecipeRecord{*generated}
	}

	enriched, failures := s.enrich(ctx, candidates, profile.Restrictions)
	result.Failures = failures

	eligible := FilterRecipes(enriched, profile.Restrictions)
	result.Recipes = Rank(eligible, target, count, s.opts.Tolerance)

	if len(result.Recipes) == 0 {
		result.Outcome = OutcomeNoMatches
	} else {
		result.Outcome = OutcomeMatched
	}

	common.LogInfo("推薦完成",
		zap.String("query", query),
		zap.Int("candidates", len(candidates)),
		zap.Int("eligible", len(eligible)),
		zap.Int("returned", len(result.Recipes)),
		zap.Int("failures", len(failures)),
		zap.Bool("used_fallback", result.UsedFallback),
		zap.Duration("duration", time.Since(start)),
	)

	return result, nil
}

func (s *Service) validate(profile common.DietProfile, targetCalories float64, targetMacros common.MacroVector, count int) error {
	for _, v := range []float64{targetCalories, targetMacros.ProteinG, targetMacros.CarbsG, targetMacros.FatG, targetMacros.FiberG} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return common.NewInvalidInputError("targets must be finite numbers", nil)
		}
	}

	if err := validation.ValidateStruct(recommendInput{
		Preference:     profile.Preference,
		Restrictions:   profile.Restrictions,
		TargetCalories: targetCalories,
		ProteinG:       targetMacros.ProteinG,
		CarbsG:         targetMacros.CarbsG,
		FatG:           targetMacros.FatG,
		FiberG:         targetMacros.FiberG,
		Count:          count,
	}); err != nil {
		return err
	}

	if s.opts.MaxCount > 0 && count > s.opts.MaxCount {
		return common.NewInvalidInputError(fmt.Sprintf("count must be at most %d", s.opts.MaxCount), nil)
	}
	return nil
}

// fetchCandidates 透過候選快取查詢儲存庫，數量為 count 的倍數
func (s *Service) fetchCandidates(ctx context.Context, query string, count int, profile common.DietProfile) ([]common.RecipeRecord, error) {
	limit := count * s.opts.OverFetchFactor
	producer := func(ctx context.Context) ([]common.RecipeRecord, error) {
		return s.store.Query(ctx, query, limit)
	}

	if s.candidates == nil {
		return producer(ctx)
	}

	key := cache.CandidateKey(query, count, []string{profile.Preference}, profile.Restrictions)
	return s.candidates.GetOrCompute(ctx, key, producer, s.opts.CacheTTL)
}

// generate 只呼叫一次生成器，不重試
func (s *Service) generate(ctx context.Context, profile common.DietProfile, target common.MacroVector) (*common.RecipeRecord, error) {
	if s.generator == nil {
		return nil, nil
	}

	if s.opts.GenerateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.GenerateTimeout)
		defer cancel()
	}

	generated, err := s.generator.Generate(ctx, profile.Preference, target, profile.Restrictions)
	if err != nil || generated == nil {
		return nil, err
	}

	if generated.ID == "" {
		generated.ID = "gen-" + common.GenerateUUID()
	}
	if generated.Source == "" {
		generated.Source = common.SourceGenerated
	}

	if s.opts.PersistGenerated {
		if err := s.store.Put(ctx, generated.Clone()); err != nil {
			common.LogWarn("Failed to persist generated recipe", zap.String("id", generated.ID), zap.Error(err))
		}
	}

	return generated, nil
}

// enrich 以有上限的 worker 平行補全候選，每個任務只寫自己的位置
func (s *Service) enrich(ctx context.Context, candidates []common.RecipeRecord, restrictions []string) ([]common.RecipeRecord, []Failure) {
	records := make([]*common.RecipeRecord, len(candidates))
	failures := make([]*Failure, len(candidates))

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)

	for i := range candidates {
		i := i
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					records[i] = nil
					failures[i] = &Failure{
						RecipeID: candidates[i].ID,
						Code:     common.ErrCodePartialEnrichment,
						Message:  fmt.Sprintf("panic during enrichment: %v", r),
					}
					common.LogError("Candidate enrichment panicked", zap.String("id", candidates[i].ID), zap.Any("panic", r))
				}
			}()
			records[i], failures[i] = s.enrichOne(ctx, candidates[i].Clone(), restrictions)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]common.RecipeRecord, 0, len(candidates))
	var fails []Failure
	for i := range candidates {
		if records[i] != nil {
			out = append(out, *records[i])
		}
		if failures[i] != nil {
			fails = append(fails, *failures[i])
		}
	}
	return out, fails
}

// enrichOne 在副本上補齊內容、整理步驟並在需要時推算營養
func (s *Service) enrichOne(ctx context.Context, rec common.RecipeRecord, restrictions []string) (*common.RecipeRecord, *Failure) {
	if !Passes(rec, restrictions) {
		return nil, nil
	}

	if s.needsDetail(rec) {
		full, err := s.fetchDetail(ctx, rec.ID)
		if err != nil {
			perr := common.NewPartialEnrichmentError("detail fetch failed", err)
			common.LogWarn("Candidate detail fetch failed", zap.String("id", rec.ID), zap.Error(err))
			return nil, &Failure{RecipeID: rec.ID, Code: perr.Code, Message: perr.Error()}
		}
		if full != nil {
			rec = mergeDetail(rec, *full)
		}
	}

	rec.Steps = NormalizeSteps(rec.Steps)
	rec.Tags = common.NormalizeTags(rec.Tags)

	if nutrition.NeedsBackfill(rec.Macros) && s.backfiller != nil {
		macros, report := s.backfiller.Backfill(ctx, rec.Ingredients)
		rec.Macros = macros
		common.LogDebug("Nutrition backfilled",
			zap.String("id", rec.ID),
			zap.Float64("calories", macros.Calories),
			zap.Int("resolved", report.Resolved),
			zap.Int("missing", report.Missing),
			zap.Int("failed", report.Failed),
		)
	}
	rec.Macros = rec.Macros.Clamp()

	return &rec, nil
}

func (s *Service) needsDetail(rec common.RecipeRecord) bool {
	if s.detail == nil || rec.Source == common.SourceGenerated {
		return false
	}
	return len(rec.Ingredients) == 0 || len(rec.Steps) == 0
}

func (s *Service) fetchDetail(ctx context.Context, id string) (*common.RecipeRecord, error) {
	if s.opts.DetailTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.DetailTimeout)
		defer cancel()
	}
	return s.detail.GetFull(ctx, id)
}

// mergeDetail 只補空缺欄位，不覆蓋既有資料
func mergeDetail(base, full common.RecipeRecord) common.RecipeRecord {
	if base.Title == "" {
		base.Title = full.Title
	}
	if len(base.Ingredients) == 0 {
		base.Ingredients = append([]common.IngredientEntry(nil), full.Ingredients...)
	}
	if len(base.Steps) == 0 {
		base.Steps = append([]string(nil), full.Steps...)
	}
	if base.Macros.IsZero() {
		base.Macros = full.Macros
	}
	if base.Image == "" {
		base.Image = full.Image
	}
	if base.Source == "" {
		base.Source = full.Source
	}
	base.Tags = common.NormalizeTags(append(append([]string(nil), base.Tags...), full.Tags...))
	return base
}

// Get 依 id 取得單一食譜
func (s *Service) Get(ctx context.Context, id string) (*common.RecipeRecord, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, common.NewUpstreamError("recipe store unavailable", err)
	}
	if rec == nil {
		return nil, common.ErrNotFound
	}
	return rec, nil
}

// Generate 直接呼叫生成器
func (s *Service) Generate(ctx context.Context, profile common.DietProfile, target common.MacroVector) (*common.RecipeRecord, error) {
	if s.generator == nil {
		return nil, common.ErrServiceUnavailable
	}
	rec, err := s.generate(ctx, profile, target)
	if err != nil {
		return nil, common.NewUpstreamError("recipe generator unavailable", err)
	}
	if rec == nil {
		return nil, common.ErrNoMatches
	}
	return rec, nil
}

// CacheStats 候選快取統計
func (s *Service) CacheStats() *cache.Stats {
	if s.candidates == nil {
		return nil
	}
	stats := s.candidates.GetStats()
	return &stats
}
