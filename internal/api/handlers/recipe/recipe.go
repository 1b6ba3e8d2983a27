package recipe

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-recommender/internal/core/nutrition"
	recipeService "recipe-recommender/internal/core/recipe"
	"recipe-recommender/internal/pkg/common"
)

// Service 推薦服務（*recipe.Service 實作）
type Service interface {
	Recommend(ctx context.Context, profile common.DietProfile, targetCalories float64, targetMacros common.MacroVector, count int) (*recipeService.Result, error)
	Get(ctx context.Context, id string) (*common.RecipeRecord, error)
	Generate(ctx context.Context, profile common.DietProfile, target common.MacroVector) (*common.RecipeRecord, error)
}

// ProfileRequest 使用者飲食偏好與（可選的）身體數據
type ProfileRequest struct {
	DietaryPreference   string   `json:"dietary_preference"`
	DietaryRestrictions []string `json:"dietary_restrictions"`
	Height              float64  `json:"height"`
	Weight              float64  `json:"weight"`
	Age                 int      `json:"age"`
	Sex                 string   `json:"sex"`
	ActivityLevel       float64  `json:"activity_level"`
	FitnessGoal         string   `json:"fitness_goal"`
}

func (p ProfileRequest) dietProfile() common.DietProfile {
	return common.DietProfile{
		Preference:   strings.ToLower(strings.TrimSpace(p.DietaryPreference)),
		Restrictions: p.DietaryRestrictions,
	}
}

func (p ProfileRequest) hasBodyMetrics() bool {
	return p.Height > 0 && p.Weight > 0 && p.Age > 0
}

func (p ProfileRequest) bodyMetrics() nutrition.BodyMetrics {
	activity := p.ActivityLevel
	if activity == 0 {
		activity = 1.2
	}
	goal := strings.ToLower(strings.TrimSpace(p.FitnessGoal))
	if goal == "" {
		goal = nutrition.GoalMaintenance
	}
	return nutrition.BodyMetrics{
		HeightCM:      p.Height,
		WeightKG:      p.Weight,
		Age:           p.Age,
		Sex:           strings.ToLower(strings.TrimSpace(p.Sex)),
		ActivityLevel: activity,
		Goal:          goal,
	}
}

// MacroSplitRequest 目標營養素（克）
type MacroSplitRequest struct {
	Protein float64 `json:"protein"`
	Carbs   float64 `json:"carbs"`
	Fat     float64 `json:"fat"`
	Fiber   float64 `json:"fiber"`
}

// RecommendRequest 推薦請求
type RecommendRequest struct {
	Profile        ProfileRequest     `json:"profile"`
	TargetCalories float64            `json:"target_calories"`
	MacroSplit     *MacroSplitRequest `json:"macro_split"`
	NumRecipes     int                `json:"num_recipes"`
}

// GenerateRequest 直接生成請求
type GenerateRequest struct {
	Profile        ProfileRequest     `json:"profile"`
	TargetCalories float64            `json:"target_calories"`
	MacroSplit     *MacroSplitRequest `json:"macro_split"`
}

// RecommendResponse 推薦結果；由身體數據推算目標時附上 targets
type RecommendResponse struct {
	*recipeService.Result
	Targets *nutrition.Targets `json:"targets,omitempty"`
}

// Handler 食譜處理程序
type Handler struct {
	service      Service
	defaultCount int
}

// NewHandler 創建新的食譜處理程序
func NewHandler(service Service, defaultCount int) *Handler {
	if defaultCount < 1 {
		defaultCount = 5
	}
	return &Handler{
		service:      service,
		defaultCount: defaultCount,
	}
}

// resolveTargets 沒有熱量目標但有身體數據時，以身體數據推算熱量與營養素
func resolveTargets(profile ProfileRequest, calories float64, split *MacroSplitRequest) (float64, common.MacroVector, *nutrition.Targets, error) {
	var macros common.MacroVector
	if split != nil {
		macros = common.MacroVector{
			ProteinG: split.Protein,
			CarbsG:   split.Carbs,
			FatG:     split.Fat,
			FiberG:   split.Fiber,
		}
	}

	if calories != 0 || !profile.hasBodyMetrics() {
		macros.Calories = calories
		return calories, macros, nil, nil
	}

	targets, err := nutrition.CalculateTargets(profile.bodyMetrics())
	if err != nil {
		return 0, macros, nil, err
	}
	if split == nil {
		macros = targets.Vector()
	}
	macros.Calories = targets.TargetCalories
	return targets.TargetCalories, macros, targets, nil
}

// HandleRecommend 推薦食譜
func (h *Handler) HandleRecommend(c *gin.Context) {
	requestID := requestid.Get(c)

	var req RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogWarn("請求格式無效", zap.Error(err), zap.String("request_id", requestID))
		common.RespondError(c, common.NewInvalidInputError("invalid request format", err))
		return
	}

	calories, macros, targets, err := resolveTargets(req.Profile, req.TargetCalories, req.MacroSplit)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	count := req.NumRecipes
	if count == 0 {
		count = h.defaultCount
	}

	common.LogInfo("開始處理食譜推薦請求",
		zap.String("request_id", requestID),
		zap.String("preference", req.Profile.DietaryPreference),
		zap.Float64("target_calories", calories),
		zap.Int("count", count),
	)

	result, err := h.service.Recommend(c.Request.Context(), req.Profile.dietProfile(), calories, macros, count)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, RecommendResponse{Result: result, Targets: targets})
}

// HandleGet 取得單一食譜
func (h *Handler) HandleGet(c *gin.Context) {
	rec, err := h.service.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// HandleGenerate 直接以生成器產生一道食譜
func (h *Handler) HandleGenerate(c *gin.Context) {
	requestID := requestid.Get(c)

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogWarn("請求格式無效", zap.Error(err), zap.String("request_id", requestID))
		common.RespondError(c, common.NewInvalidInputError("invalid request format", err))
		return
	}

	_, macros, _, err := resolveTargets(req.Profile, req.TargetCalories, req.MacroSplit)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	rec, err := h.service.Generate(c.Request.Context(), req.Profile.dietProfile(), macros)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	common.LogInfo("食譜生成成功",
		zap.String("request_id", requestID),
		zap.String("id", rec.ID),
	)
	c.JSON(http.StatusOK, rec)
}
