package nutrition

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"recipe-recommender/internal/pkg/common"
)

func mapLookup(table map[string]common.MacroVector) LookupFunc {
	return func(ctx context.Context, name string) (*common.MacroVector, error) {
		m, ok := table[name]
		if !ok {
			return nil, nil
		}
		return &m, nil
	}
}

func TestBackfillScalesByEstimatedMass(t *testing.T) {
	lookup := mapLookup(map[string]common.MacroVector{
		"apple": {Calories: 89, ProteinG: 1.1, CarbsG: 22.8, FatG: 0.3, FiberG: 2.6},
	})
	b := NewBackfiller(lookup, time.Second)

	got, report := b.Backfill(context.Background(), []common.IngredientEntry{
		{Name: "apple", Quantity: common.NumberQuantity(118), Unit: "g"},
		{Name: "unobtainium", Quantity: common.NumberQuantity(1), Unit: "cup"},
	})

	assert.InDelta(t, 105, got.Calories, 0.5)
	assert.InDelta(t, 1.298, got.ProteinG, 1e-6)
	assert.Equal(t, 1, report.Resolved)
	assert.Equal(t, 1, report.Missing)
	assert.Equal(t, 0, report.Failed)
}

func TestBackfillLookupErrorContributesZero(t *testing.T) {
	lookup := LookupFunc(func(ctx context.Context, name string) (*common.MacroVector, error) {
		if name == "rice" {
			return nil, errors.New("upstream down")
		}
		return &common.MacroVector{Calories: 100}, nil
	})
	b := NewBackfiller(lookup, 0)

	got, report := b.Backfill(context.Background(), []common.IngredientEntry{
		{Name: "rice", Quantity: common.NumberQuantity(1), Unit: "cup"},
		{Name: "beans", Quantity: common.NumberQuantity(50), Unit: "g"},
	})

	assert.InDelta(t, 50, got.Calories, 1e-9)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Resolved)
}

func TestBackfillAppliesPerLookupTimeout(t *testing.T) {
	lookup := LookupFunc(func(ctx context.Context, name string) (*common.MacroVector, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	b := NewBackfiller(lookup, 10*time.Millisecond)

	got, report := b.Backfill(context.Background(), []common.IngredientEntry{{Name: "slow"}})
	assert.True(t, got.IsZero())
	assert.Equal(t, 1, report.Failed)
}

func TestBackfillWithoutLookup(t *testing.T) {
	b := NewBackfiller(nil, 0)
	got, report := b.Backfill(context.Background(), []common.IngredientEntry{{Name: "a"}, {Name: "b"}})
	assert.True(t, got.IsZero())
	assert.Equal(t, 2, report.Missing)
}

func TestNeedsBackfill(t *testing.T) {
	assert.True(t, NeedsBackfill(common.MacroVector{}))
	assert.False(t, NeedsBackfill(common.MacroVector{FiberG: 1}))
}
