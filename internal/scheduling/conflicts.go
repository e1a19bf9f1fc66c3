// Package scheduling detects room and teacher double-booking in a weekly timetable.
package scheduling

import (
	"fmt"
	"strings"

	"github.com/noah-isme/sma-academic-api/internal/models"
)

// InvalidIntervalError rejects a slot whose interval or day cannot be scheduled.
type InvalidIntervalError struct {
	Slot   models.TimeSlot
	Reason string
}

// Error implements the error interface.
func (e *InvalidIntervalError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("invalid time slot %s %s-%s: %s", e.Slot.DayOfWeek, e.Slot.StartTime, e.Slot.EndTime, e.Reason)
}

// ValidateSlot checks that the slot falls on a teaching day and that start < end within one day.
func ValidateSlot(slot models.TimeSlot) error {
	switch {
	case !slot.DayOfWeek.Valid():
		return &InvalidIntervalError{Slot: slot, Reason: "day must be a weekday"}
	case slot.StartTime < 0 || slot.EndTime > models.MinutesPerDay:
		return &InvalidIntervalError{Slot: slot, Reason: "time outside of day"}
	case slot.StartTime >= slot.EndTime:
		return &InvalidIntervalError{Slot: slot, Reason: "start must be before end"}
	}
	return nil
}

// Overlaps reports whether two slots intersect as half-open intervals on the same day.
// Back-to-back slots do not overlap.
func Overlaps(a, b models.TimeSlot) bool {
	return a.DayOfWeek == b.DayOfWeek && a.StartTime < b.EndTime && b.StartTime < a.EndTime
}

// DetectConflicts compares every proposed slot with the existing slots and with the proposed slots
// that follow it. Pairs made only of existing slots are never reported. A proposed slot that carries
// the ID of an existing slot replaces it and is not compared against it.
//
// The result is ordered by proposed slot, then by existing slots before later proposed slots, and
// lists a room overlap before a teacher overlap for the same pair.
func DetectConflicts(existing, proposed []models.TimeSlot) []models.ScheduleConflict {
	conflicts := make([]models.ScheduleConflict, 0)
	replaced := make(map[string]struct{}, len(proposed))
	for _, slot := range proposed {
		if slot.ID != "" {
			replaced[slot.ID] = struct{}{}
		}
	}
	for i, slot := range proposed {
		for _, other := range existing {
			if _, ok := replaced[other.ID]; ok && other.ID != "" {
				continue
			}
			conflicts = appendPairConflicts(conflicts, slot, other)
		}
		for _, other := range proposed[i+1:] {
			conflicts = appendPairConflicts(conflicts, slot, other)
		}
	}
	return conflicts
}

func appendPairConflicts(conflicts []models.ScheduleConflict, a, b models.TimeSlot) []models.ScheduleConflict {
	if !Overlaps(a, b) {
		return conflicts
	}
	if sameKey(a.Room, b.Room) {
		conflicts = append(conflicts, models.ScheduleConflict{SlotA: a, SlotB: b, Kind: models.ConflictRoomOverlap})
	}
	if sameKey(a.TeacherID, b.TeacherID) {
		conflicts = append(conflicts, models.ScheduleConflict{SlotA: a, SlotB: b, Kind: models.ConflictTeacherOverlap})
	}
	return conflicts
}

// sameKey treats blank values as unassigned, never equal to anything.
func sameKey(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}
