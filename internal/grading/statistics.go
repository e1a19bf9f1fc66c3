package grading

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-academic-api/internal/models"
)

// DefaultPassThreshold is the passing average on the 0-100 scale.
var DefaultPassThreshold = decimal.NewFromInt(70)

// Passed reports whether an average reaches the threshold.
func Passed(average, threshold decimal.Decimal) bool {
	return average.GreaterThanOrEqual(threshold)
}

// ComputeClassStatistics summarises a list of averages. Mean and PassRate are zero for an empty list.
func ComputeClassStatistics(averages []decimal.Decimal, threshold decimal.Decimal) models.ClassStatistics {
	stats := models.ClassStatistics{Total: len(averages), Mean: decimal.Zero, PassRate: decimal.Zero}
	if stats.Total == 0 {
		return stats
	}
	sum := decimal.Zero
	for _, avg := range averages {
		sum = sum.Add(avg)
		if Passed(avg, threshold) {
			stats.PassCount++
		}
	}
	total := decimal.NewFromInt(int64(stats.Total))
	stats.FailCount = stats.Total - stats.PassCount
	stats.Mean = sum.Div(total)
	stats.PassRate = decimal.NewFromInt(int64(stats.PassCount)).Mul(hundred).Div(total)
	return stats
}
