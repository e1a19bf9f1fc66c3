package scheduling

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-academic-api/internal/models"
)

var minutesPerHour = decimal.NewFromInt(60)

// ComputeWeeklyHours sums the duration of the slots in hours. Slots are expected to have passed
// ValidateSlot; intervals crossing midnight are not representable.
func ComputeWeeklyHours(slots []models.TimeSlot) decimal.Decimal {
	var minutes int64
	for _, slot := range slots {
		minutes += int64(slot.EndTime - slot.StartTime)
	}
	return decimal.NewFromInt(minutes).Div(minutesPerHour)
}
