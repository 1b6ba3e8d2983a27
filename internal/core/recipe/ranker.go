package recipe

import (
	"math"
	"sort"

	"recipe-recommender/internal/pkg/common"
)

// Tolerance 容許誤差（絕對值）
type Tolerance struct {
	Calories float64
	Macro    float64
}

// DefaultTolerance ±50 kcal、三大營養素各 ±5g
var DefaultTolerance = Tolerance{Calories: 50, Macro: 5}

// Distance 熱量與三大營養素差值的絕對值總和，不計纖維
func Distance(m, target common.MacroVector) float64 {
	return math.Abs(m.Calories-target.Calories) +
		math.Abs(m.ProteinG-target.ProteinG) +
		math.Abs(m.CarbsG-target.CarbsG) +
		math.Abs(m.FatG-target.FatG)
}

func withinTolerance(m, target common.MacroVector, tol Tolerance) bool {
	within := func(v, t, limit float64) bool {
		if t == 0 {
			return true
		}
		return math.Abs(v-t) <= limit
	}
	return within(m.Calories, target.Calories, tol.Calories) &&
		within(m.ProteinG, target.ProteinG, tol.Macro) &&
		within(m.CarbsG, target.CarbsG, tol.Macro) &&
		within(m.FatG, target.FatG, tol.Macro)
}

// Rank 依與目標的距離排序並取前 count 筆。
// 容許範圍內沒有任何候選時改用全部候選排序。
func Rank(candidates []common.RecipeRecord, target common.MacroVector, count int, tol Tolerance) []common.RecipeRecord {
	if count <= 0 || len(candidates) == 0 {
		return []common.RecipeRecord{}
	}

	pool := make([]common.RecipeRecord, 0, len(candidates))
	for _, c := range candidates {
		if withinTolerance(c.Macros, target, tol) {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		pool = append(pool, candidates...)
	}

	distances := make([]float64, len(pool))
	for i, c := range pool {
		distances[i] = Distance(c.Macros, target)
	}

	order := make([]int, len(pool))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return distances[order[a]] < distances[order[b]]
	})

	if count > len(order) {
		count = len(order)
	}
	out := make([]common.RecipeRecord, 0, count)
	for _, idx := range order[:count] {
		out = append(out, pool[idx])
	}
	return out
}
