package nutrition

import (
	"fmt"
	"math"
	"strings"

	"recipe-recommender/internal/pkg/common"
	"recipe-recommender/internal/pkg/validation"
)

// 目標類型
const (
	GoalDeficit     = "deficit"
	GoalMaintenance = "maintenance"
	GoalBulking     = "bulking"
)

const (
	caloriesPerGramProtein = 4.0
	caloriesPerGramCarbs   = 4.0
	caloriesPerGramFat     = 9.0
	fiberGramsPer1000Kcal  = 14.0
	goalCalorieDelta       = 500.0
)

// BodyMetrics 身體數據
type BodyMetrics struct {
	HeightCM      float64 `json:"height_cm" binding:"required" validate:"gt=0,lte=300"`
	WeightKG      float64 `json:"weight_kg" binding:"required" validate:"gt=0,lte=500"`
	Age           int     `json:"age" binding:"required" validate:"gt=0,lte=120"`
	Sex           string  `json:"sex" binding:"required" validate:"required"`
	ActivityLevel float64 `json:"activity_level" binding:"required" validate:"gte=1,lte=2.5"`
	Goal          string  `json:"goal" binding:"required" validate:"oneof=deficit maintenance bulking"`
}

// MacroSplit 營養素分配（百分比與克數）
type MacroSplit struct {
	ProteinPercent int     `json:"protein_percent"`
	CarbsPercent   int     `json:"carbs_percent"`
	FatPercent     int     `json:"fat_percent"`
	ProteinG       float64 `json:"protein_g"`
	CarbsG         float64 `json:"carbs_g"`
	FatG           float64 `json:"fat_g"`
	FiberG         float64 `json:"fiber_g"`
}

// Targets 營養目標計算結果
type Targets struct {
	BMI            float64    `json:"bmi"`
	TDEE           float64    `json:"tdee"`
	TargetCalories float64    `json:"target_calories"`
	MacroSplit     MacroSplit `json:"macro_split"`
}

// Vector 轉為排序用的目標向量
func (t *Targets) Vector() common.MacroVector {
	return common.MacroVector{
		Calories: t.TargetCalories,
		ProteinG: t.MacroSplit.ProteinG,
		CarbsG:   t.MacroSplit.CarbsG,
		FatG:     t.MacroSplit.FatG,
		FiberG:   t.MacroSplit.FiberG,
	}
}

// BMI 體重(kg) / 身高(m)^2
func BMI(heightCM, weightKG float64) float64 {
	if heightCM <= 0 {
		return 0
	}
	m := heightCM / 100
	return weightKG / (m * m)
}

// TDEE 以 Mifflin-St Jeor 公式估算基礎代謝再乘上活動係數
func TDEE(m BodyMetrics) float64 {
	bmr := 10*m.WeightKG + 6.25*m.HeightCM - 5*float64(m.Age)
	if strings.EqualFold(strings.TrimSpace(m.Sex), "male") {
		bmr += 5
	} else {
		bmr -= 161
	}
	return bmr * m.ActivityLevel
}

// TargetCalories 根據目標調整熱量
func TargetCalories(tdee float64, goal string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(goal)) {
	case GoalDeficit:
		return tdee - goalCalorieDelta, nil
	case GoalMaintenance:
		return tdee, nil
	case GoalBulking:
		return tdee + goalCalorieDelta, nil
	default:
		return 0, common.NewInvalidInputError(fmt.Sprintf("unknown goal %q", goal), nil)
	}
}

// CalculateMacroSplit 依目標分配蛋白質、碳水與脂肪
func CalculateMacroSplit(calories float64, goal string) MacroSplit {
	protein, carbs, fat := 30, 50, 20
	switch strings.ToLower(strings.TrimSpace(goal)) {
	case GoalDeficit:
		protein, carbs, fat = 40, 40, 20
	case GoalMaintenance:
		protein, carbs, fat = 30, 45, 25
	}

	share := func(pct int) float64 { return calories * float64(pct) / 100 }

	return MacroSplit{
		ProteinPercent: protein,
		CarbsPercent:   carbs,
		FatPercent:     fat,
		ProteinG:       math.Round(share(protein) / caloriesPerGramProtein),
		CarbsG:         math.Round(share(carbs) / caloriesPerGramCarbs),
		FatG:           math.Round(share(fat) / caloriesPerGramFat),
		FiberG:         math.Round(calories / 1000 * fiberGramsPer1000Kcal),
	}
}

// CalculateTargets 由身體數據推算完整營養目標
func CalculateTargets(m BodyMetrics) (*Targets, error) {
	if err := validation.ValidateStruct(m); err != nil {
		return nil, err
	}

	tdee := TDEE(m)
	calories, err := TargetCalories(tdee, m.Goal)
	if err != nil {
		return nil, err
	}
	if calories < 0 {
		calories = 0
	}

	return &Targets{
		BMI:            math.Round(BMI(m.HeightCM, m.WeightKG)*10) / 10,
		TDEE:           math.Round(tdee),
		TargetCalories: math.Round(calories),
		MacroSplit:     CalculateMacroSplit(math.Round(calories), m.Goal),
	}, nil
}
