package nutrition

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"recipe-recommender/internal/pkg/common"
)

// gramsPerUnit 常見廚房單位換算成克（近似值）
var gramsPerUnit = map[string]float64{
	"g":           1,
	"gram":        1,
	"grams":       1,
	"kg":          1000,
	"kilogram":    1000,
	"kilograms":   1000,
	"mg":          0.001,
	"milligram":   0.001,
	"milligrams":  0.001,
	"lb":          453.6,
	"pound":       453.6,
	"pounds":      453.6,
	"oz":          28.35,
	"ounce":       28.35,
	"ounces":      28.35,
	"cup":         240,
	"cups":        240,
	"tbsp":        15,
	"tablespoon":  15,
	"tablespoons": 15,
	"tsp":         5,
	"teaspoon":    5,
	"teaspoons":   5,
	"pinch":       0.36,
	"clove":       5,
	"cloves":      5,
	"slice":       30,
	"slices":      30,
	"piece":       50,
	"pieces":      50,
	"large":       50,
	"medium":      30,
	"small":       15,
}

// countableGrams 沒有單位時按個數計重的食材
var countableGrams = map[string]float64{
	"egg":  50,
	"eggs": 50,
}

// defaultItemGrams 無法辨識單位時每單位視為 100g
const defaultItemGrams = 100.0

var vulgarFractions = map[rune]float64{
	'½': 0.5,
	'⅓': 1.0 / 3,
	'⅔': 2.0 / 3,
	'¼': 0.25,
	'¾': 0.75,
	'⅛': 0.125,
}

// ResolveUnit 查詢單位換算（不分大小寫、去除空白）
func ResolveUnit(unit string) (float64, bool) {
	g, ok := gramsPerUnit[strings.ToLower(strings.TrimSpace(unit))]
	return g, ok
}

// ParseQuantity 解析數量；文字以空白切分後逐一求值並加總，任何解析失敗或結果非正數時回傳 1
func ParseQuantity(q common.Quantity) float64 {
	if !q.IsText {
		if validAmount(q.Value) {
			return q.Value
		}
		return 1
	}

	tokens := strings.Fields(q.Text)
	if len(tokens) == 0 {
		return 1
	}

	total := 0.0
	for _, tok := range tokens {
		v, ok := parseToken(tok)
		if !ok {
			return 1
		}
		total += v
	}
	if !validAmount(total) {
		return 1
	}
	return total
}

func validAmount(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// parseToken 支援整數、小數、a/b 分數與 ½ 等字元（含 1½ 這種寫法）
func parseToken(tok string) (float64, bool) {
	if r, size := utf8.DecodeLastRuneInString(tok); size > 0 {
		if frac, ok := vulgarFractions[r]; ok {
			head := tok[:len(tok)-size]
			if head == "" {
				return frac, true
			}
			whole, err := strconv.ParseFloat(head, 64)
			if err != nil {
				return 0, false
			}
			return whole + frac, true
		}
	}

	if num, den, found := strings.Cut(tok, "/"); found {
		n, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, false
		}
		d, err := strconv.ParseFloat(den, 64)
		if err != nil || d == 0 {
			return 0, false
		}
		return n / d, true
	}

	v, err := strconv.ParseFloat(tok, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// EstimateGrams 估算食材重量（克），結果恆大於 0
func EstimateGrams(entry common.IngredientEntry) float64 {
	qty := ParseQuantity(entry.Quantity)

	unit := strings.ToLower(strings.TrimSpace(entry.Unit))
	if g, ok := gramsPerUnit[unit]; ok {
		return qty * g
	}

	if unit == "" {
		if g, ok := countableGrams[strings.ToLower(strings.TrimSpace(entry.Name))]; ok {
			return qty * g
		}
	}

	return qty * defaultItemGrams
}

var attachedUnitPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?(?:/\d+)?)([a-zA-Z]+)$`)

// SplitMeasure 將 "400g"、"1 1/2 cups"、"pinch" 這類自由文字拆成數量與單位
func SplitMeasure(measure string) (common.Quantity, string) {
	tokens := strings.Fields(strings.TrimSpace(measure))
	if len(tokens) == 0 {
		return common.TextQuantity(""), ""
	}

	if m := attachedUnitPattern.FindStringSubmatch(tokens[0]); m != nil {
		return common.TextQuantity(m[1]), strings.ToLower(m[2])
	}

	var amount []string
	i := 0
	for ; i < len(tokens); i++ {
		if _, ok := parseToken(tokens[i]); !ok {
			break
		}
		amount = append(amount, tokens[i])
	}

	rest := tokens[i:]
	unit := ""
	if len(rest) > 0 {
		if _, ok := ResolveUnit(rest[0]); ok {
			unit = strings.ToLower(rest[0])
		} else {
			unit = strings.ToLower(strings.Join(rest, " "))
		}
	}
	return common.TextQuantity(strings.Join(amount, " ")), unit
}
