package grading

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-academic-api/internal/models"
)

func d(raw string) decimal.Decimal {
	return decimal.RequireFromString(raw)
}

func rubric(id, weight string) models.RubricItem {
	return models.RubricItem{ID: id, CourseID: "course-1", Name: id, Weight: d(weight), Active: true}
}

func TestValidateRubricWeightsBoundary(t *testing.T) {
	var accepted []models.RubricItem
	for i, w := range []string{"0.30", "0.30", "0.40"} {
		require.NoError(t, ValidateRubricWeights(accepted, d(w), ""), "item %d", i)
		accepted = append(accepted, rubric(string(rune('a'+i)), w))
	}

	err := ValidateRubricWeights(accepted, d("0.01"), "")
	require.Error(t, err)
	var exceeded *WeightExceededError
	require.True(t, errors.As(err, &exceeded))
	assert.True(t, exceeded.Available.IsZero(), "available = %s", exceeded.Available)
	assert.Contains(t, err.Error(), "available: 0.00%")
}

func TestValidateRubricWeightsRunningSumNeverExceedsOne(t *testing.T) {
	candidates := []string{"0.25", "0.50", "0.30", "0.10", "0.15", "0.05", "0.01"}
	var accepted []models.RubricItem
	for i, w := range candidates {
		if err := ValidateRubricWeights(accepted, d(w), ""); err != nil {
			continue
		}
		accepted = append(accepted, rubric(string(rune('a'+i)), w))
		assert.True(t, SumWeights(accepted, "").LessThanOrEqual(FullWeight))
	}
	assert.Equal(t, "1.00", SumWeights(accepted, "").StringFixed(2))
}

func TestValidateRubricWeightsExcludesEditedItem(t *testing.T) {
	items := []models.RubricItem{rubric("exam", "0.60"), rubric("homework", "0.40")}

	require.NoError(t, ValidateRubricWeights(items, d("0.50"), "exam"))

	err := ValidateRubricWeights(items, d("0.70"), "exam")
	var exceeded *WeightExceededError
	require.True(t, errors.As(err, &exceeded))
	assert.Equal(t, "0.60", exceeded.Available.StringFixed(2))
}

func TestValidateRubricWeightsIgnoresInactiveItems(t *testing.T) {
	retired := rubric("old", "0.90")
	retired.Active = false
	items := []models.RubricItem{retired, rubric("exam", "0.50")}

	assert.NoError(t, ValidateRubricWeights(items, d("0.50"), ""))
}
