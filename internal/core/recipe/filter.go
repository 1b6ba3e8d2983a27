package recipe

import (
	"strings"

	"recipe-recommender/internal/pkg/common"
)

// Passes 食材名稱中出現任何排除詞即不通過（子字串比對，"egg" 也會擋下 "eggplant"）
func Passes(r common.RecipeRecord, excluded []string) bool {
	text := strings.ToLower(r.IngredientText())
	for _, term := range excluded {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if strings.Contains(text, term) {
			return false
		}
	}
	return true
}

// FilterRecipes 保留通過飲食限制的食譜，順序不變
func FilterRecipes(recipes []common.RecipeRecord, excluded []string) []common.RecipeRecord {
	out := make([]common.RecipeRecord, 0, len(recipes))
	for _, r := range recipes {
		if Passes(r, excluded) {
			out = append(out, r)
		}
	}
	return out
}
