package nutrition

import (
	"net/http"

	"github.com/gin-gonic/gin"

	coreNutrition "recipe-recommender/internal/core/nutrition"
	"recipe-recommender/internal/pkg/common"
)

// HandleTargets 由身體數據計算 BMI、TDEE、目標熱量與營養素分配
func HandleTargets(c *gin.Context) {
	var req coreNutrition.BodyMetrics
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, common.NewInvalidInputError("invalid request format", err))
		return
	}

	targets, err := coreNutrition.CalculateTargets(req)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, targets)
}
