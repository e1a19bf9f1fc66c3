package grading

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-academic-api/internal/models"
)

// MissingGradePolicy decides how rubric items without a recorded grade affect an average.
type MissingGradePolicy int

const (
	// MissingGradeRenormalize divides by the weight of graded items only, so partial grading
	// still yields a 0-100 average.
	MissingGradeRenormalize MissingGradePolicy = iota
	// MissingGradeZero lets ungraded items count as zero against the full 100% budget.
	MissingGradeZero
)

// ParseMissingGradePolicy reads a policy from configuration.
func ParseMissingGradePolicy(raw string) (MissingGradePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "renormalize":
		return MissingGradeRenormalize, nil
	case "zero":
		return MissingGradeZero, nil
	default:
		return 0, fmt.Errorf("unknown missing grade policy %q", raw)
	}
}

// String returns the configuration name of the policy.
func (p MissingGradePolicy) String() string {
	switch p {
	case MissingGradeRenormalize:
		return "renormalize"
	case MissingGradeZero:
		return "zero"
	default:
		return fmt.Sprintf("MissingGradePolicy(%d)", int(p))
	}
}

// Aggregate holds the running sums for one enrollment.
type Aggregate struct {
	Weighted     decimal.Decimal
	GradedWeight decimal.Decimal
	Graded       int
}

// Accumulate sums score*weight over active rubric items that have an entry in grades.
// Grades for unknown or inactive items are ignored.
func Accumulate(items []models.RubricItem, grades map[string]decimal.Decimal) Aggregate {
	agg := Aggregate{Weighted: decimal.Zero, GradedWeight: decimal.Zero}
	for _, item := range items {
		if !item.Active {
			continue
		}
		score, ok := grades[item.ID]
		if !ok {
			continue
		}
		agg.Weighted = agg.Weighted.Add(score.Mul(item.Weight))
		agg.GradedWeight = agg.GradedWeight.Add(item.Weight)
		agg.Graded++
	}
	return agg
}

// Average applies the policy. It is invalid when nothing was graded.
func (a Aggregate) Average(policy MissingGradePolicy) decimal.NullDecimal {
	if a.Graded == 0 {
		return decimal.NullDecimal{}
	}
	switch policy {
	case MissingGradeZero:
		return decimal.NullDecimal{Decimal: a.Weighted, Valid: true}
	default:
		// only zero-weight items were graded
		if a.GradedWeight.IsZero() {
			return decimal.NullDecimal{}
		}
		return decimal.NullDecimal{Decimal: a.Weighted.Div(a.GradedWeight), Valid: true}
	}
}

// ComputeWeightedAverage returns the weighted average of an enrollment at full precision.
// The result is invalid, not zero, when no grade matches an active rubric item.
func ComputeWeightedAverage(items []models.RubricItem, grades map[string]decimal.Decimal, policy MissingGradePolicy) decimal.NullDecimal {
	return Accumulate(items, grades).Average(policy)
}

// RoundScore rounds half-up to two decimals for presentation.
func RoundScore(value decimal.Decimal) decimal.Decimal {
	return value.Round(2)
}

// RoundNullScore rounds a nullable score, keeping invalid values invalid.
func RoundNullScore(value decimal.NullDecimal) decimal.NullDecimal {
	if !value.Valid {
		return value
	}
	return decimal.NullDecimal{Decimal: RoundScore(value.Decimal), Valid: true}
}
