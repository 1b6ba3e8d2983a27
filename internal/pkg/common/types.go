package common

import (
	"bytes"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Quantity 食材數量：可能是數字，也可能是自由文字（例如 "1 1/2"、"to taste"）
type Quantity struct {
	Value  float64
	Text   string
	IsText bool
}

// NumberQuantity 建立數字型數量
func NumberQuantity(v float64) Quantity {
	return Quantity{Value: v}
}

// TextQuantity 建立文字型數量
func TextQuantity(s string) Quantity {
	return Quantity{Text: s, IsText: true}
}

// String 以文字形式輸出數量
func (q Quantity) String() string {
	if q.IsText {
		return q.Text
	}
	return strconv.FormatFloat(q.Value, 'f', -1, 64)
}

// MarshalJSON 數字輸出為 number，文字輸出為 string
func (q Quantity) MarshalJSON() ([]byte, error) {
	if q.IsText {
		return json.Marshal(q.Text)
	}
	return json.Marshal(q.Value)
}

// UnmarshalJSON 同時接受 number 與 string
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = Quantity{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*q = TextQuantity(s)
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*q = NumberQuantity(v)
	return nil
}

// IngredientEntry 食材條目
type IngredientEntry struct {
	Name     string   `json:"name"`
	Quantity Quantity `json:"quantity"`
	Unit     string   `json:"unit"`
}

// MacroVector 熱量與三大營養素（克），所有欄位皆不為負
type MacroVector struct {
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
	FiberG   float64 `json:"fiber_g"`
}

// IsZero 是否所有欄位皆為 0
func (m MacroVector) IsZero() bool {
	return m.Calories == 0 && m.ProteinG == 0 && m.CarbsG == 0 && m.FatG == 0 && m.FiberG == 0
}

// Add 逐欄相加
func (m MacroVector) Add(o MacroVector) MacroVector {
	return MacroVector{
		Calories: m.Calories + o.Calories,
		ProteinG: m.ProteinG + o.ProteinG,
		CarbsG:   m.CarbsG + o.CarbsG,
		FatG:     m.FatG + o.FatG,
		FiberG:   m.FiberG + o.FiberG,
	}
}

// Scale 逐欄乘上係數
func (m MacroVector) Scale(f float64) MacroVector {
	return MacroVector{
		Calories: m.Calories * f,
		ProteinG: m.ProteinG * f,
		CarbsG:   m.CarbsG * f,
		FatG:     m.FatG * f,
		FiberG:   m.FiberG * f,
	}
}

// Clamp 將負值歸零
func (m MacroVector) Clamp() MacroVector {
	return MacroVector{
		Calories: nonNegative(m.Calories),
		ProteinG: nonNegative(m.ProteinG),
		CarbsG:   nonNegative(m.CarbsG),
		FatG:     nonNegative(m.FatG),
		FiberG:   nonNegative(m.FiberG),
	}
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// 食譜來源
const (
	SourceMealDB    = "TheMealDB"
	SourceGenerated = "generated"
)

// RecipeRecord 食譜紀錄，存入後不可變更
type RecipeRecord struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Ingredients []IngredientEntry `json:"ingredients"`
	Steps       []string          `json:"steps"`
	Macros      MacroVector       `json:"macros"`
	Tags        []string          `json:"tags"`
	Source      string            `json:"source"`
	Image       string            `json:"image,omitempty"`
}

// Clone 深拷貝，衍生資料一律在副本上修改
func (r RecipeRecord) Clone() RecipeRecord {
	out := r
	if r.Ingredients != nil {
		out.Ingredients = append([]IngredientEntry(nil), r.Ingredients...)
	}
	if r.Steps != nil {
		out.Steps = append([]string(nil), r.Steps...)
	}
	if r.Tags != nil {
		out.Tags = append([]string(nil), r.Tags...)
	}
	return out
}

// IngredientText 以空白串接所有食材名稱
func (r RecipeRecord) IngredientText() string {
	names := make([]string, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		names = append(names, ing.Name)
	}
	return strings.Join(names, " ")
}

// NormalizeTags 標籤集合：去空白、轉小寫、去重、排序
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// DietProfile 飲食偏好與限制
type DietProfile struct {
	Preference   string   `json:"dietary_preference"`
	Restrictions []string `json:"dietary_restrictions"`
}
