package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-recommender/internal/pkg/common"
)

type sample struct {
	Count  int     `validate:"gte=1,lte=10"`
	Target float64 `validate:"gte=0"`
	Goal   string  `validate:"omitempty,oneof=deficit maintenance bulking"`
}

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct(sample{Count: 3, Target: 500, Goal: "bulking"}))

	err := ValidateStruct(sample{Count: 0, Target: -1, Goal: "keto"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
	assert.Contains(t, err.Error(), "sample.Count must be at least 1")
	assert.Contains(t, err.Error(), "sample.Target must be at least 0")
	assert.Contains(t, err.Error(), "sample.Goal must be one of")
}

func TestGetReturnsSingleton(t *testing.T) {
	assert.Same(t, Get(), Get())
}
