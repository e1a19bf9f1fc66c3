package grading

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-academic-api/internal/models"
)

var (
	// FullWeight is the total weight budget of a course.
	FullWeight = decimal.NewFromInt(1)
	hundred    = decimal.NewFromInt(100)
)

// WeightExceededError reports that a rubric weight would push the course total above 100%.
type WeightExceededError struct {
	// Available is the weight still unassigned before the rejected candidate.
	Available decimal.Decimal
}

// Error implements the error interface.
func (e *WeightExceededError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("the weight sum would exceed 100%%; available: %s%%", AsPercent(e.Available).StringFixed(2))
}

// ValidateRubricWeights checks that adding candidate to the active items of a course keeps the total
// at or below 1. The item identified by excludeID, if any, is left out of the sum so that editing an
// item does not count its previous weight.
func ValidateRubricWeights(existing []models.RubricItem, candidate decimal.Decimal, excludeID string) error {
	sum := SumWeights(existing, excludeID)
	if sum.Add(candidate).GreaterThan(FullWeight) {
		return &WeightExceededError{Available: FullWeight.Sub(sum)}
	}
	return nil
}

// SumWeights totals the weights of active items, skipping excludeID.
func SumWeights(items []models.RubricItem, excludeID string) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		if !item.Active {
			continue
		}
		if excludeID != "" && item.ID == excludeID {
			continue
		}
		sum = sum.Add(item.Weight)
	}
	return sum
}

// AsPercent converts a fraction to a percentage.
func AsPercent(fraction decimal.Decimal) decimal.Decimal {
	return fraction.Mul(hundred)
}
