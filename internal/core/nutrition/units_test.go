package nutrition

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"recipe-recommender/internal/pkg/common"
)

func TestEstimateGrams(t *testing.T) {
	tests := []struct {
		name  string
		entry common.IngredientEntry
		want  float64
	}{
		{"cups", common.IngredientEntry{Name: "flour", Quantity: common.NumberQuantity(2), Unit: "cups"}, 480},
		{"eggs without unit", common.IngredientEntry{Name: "Eggs", Quantity: common.NumberQuantity(2)}, 100},
		{"fraction", common.IngredientEntry{Name: "chicken", Quantity: common.TextQuantity("1/2"), Unit: "kg"}, 500},
		{"mixed number", common.IngredientEntry{Name: "rice", Quantity: common.TextQuantity("1 1/2"), Unit: "cup"}, 360},
		{"vulgar fraction", common.IngredientEntry{Name: "salt", Quantity: common.TextQuantity("½"), Unit: "tsp"}, 2.5},
		{"attached vulgar fraction", common.IngredientEntry{Name: "milk", Quantity: common.TextQuantity("1½"), Unit: "cup"}, 360},
		{"unit case and spaces", common.IngredientEntry{Name: "oil", Quantity: common.NumberQuantity(1), Unit: " TBSP "}, 15},
		{"unknown unit", common.IngredientEntry{Name: "tofu", Quantity: common.NumberQuantity(3), Unit: "block"}, 300},
		{"unparseable quantity", common.IngredientEntry{Name: "pepper", Quantity: common.TextQuantity("some"), Unit: ""}, 100},
		{"empty quantity", common.IngredientEntry{Name: "garlic", Quantity: common.TextQuantity(""), Unit: "clove"}, 5},
		{"negative quantity", common.IngredientEntry{Name: "butter", Quantity: common.NumberQuantity(-3), Unit: "g"}, 1},
		{"zero total", common.IngredientEntry{Name: "sugar", Quantity: common.TextQuantity("0"), Unit: "g"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, EstimateGrams(tt.entry), 1e-9)
		})
	}
}

func TestEstimateGramsIsLinearInQuantity(t *testing.T) {
	units := []string{"g", "kg", "cup", "tbsp", "tsp", "oz", "lb", "pinch", "slice", "large", ""}
	for _, unit := range units {
		for _, q := range []float64{0.25, 1, 3, 7.5} {
			one := EstimateGrams(common.IngredientEntry{Name: "x", Quantity: common.NumberQuantity(q), Unit: unit})
			two := EstimateGrams(common.IngredientEntry{Name: "x", Quantity: common.NumberQuantity(2 * q), Unit: unit})
			assert.InDelta(t, 2*one, two, 1e-9, "unit %q quantity %v", unit, q)
		}
	}
}

func TestEstimateGramsAlwaysPositive(t *testing.T) {
	inputs := []common.Quantity{
		common.TextQuantity("1/0"),
		common.TextQuantity("NaN"),
		common.TextQuantity("-2 1"),
		common.NumberQuantity(0),
		common.TextQuantity("   "),
	}
	for _, q := range inputs {
		assert.Greater(t, EstimateGrams(common.IngredientEntry{Name: "x", Quantity: q, Unit: "g"}), 0.0, q.String())
	}
}

func TestResolveUnit(t *testing.T) {
	g, ok := ResolveUnit(" Pounds")
	assert.True(t, ok)
	assert.Equal(t, 453.6, g)

	_, ok = ResolveUnit("handful")
	assert.False(t, ok)
}

func TestSplitMeasure(t *testing.T) {
	tests := []struct {
		in       string
		wantQty  string
		wantUnit string
	}{
		{"400g", "400", "g"},
		{"1/2 tsp", "1/2", "tsp"},
		{"2 cups chopped", "2", "cups"},
		{"1 1/2 Tbsp", "1 1/2", "tbsp"},
		{"to taste", "", "to taste"},
		{"Pinch", "", "pinch"},
		{"3", "3", ""},
		{"", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			qty, unit := SplitMeasure(tt.in)
			assert.Equal(t, tt.wantQty, qty.Text)
			assert.True(t, qty.IsText)
			assert.Equal(t, tt.wantUnit, unit)
		})
	}
}
