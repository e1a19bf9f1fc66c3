package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Weekday enumerates the teaching days of a weekly timetable. Values follow time.Weekday.
type Weekday int

// Teaching days.
const (
	Monday    Weekday = 1
	Tuesday   Weekday = 2
	Wednesday Weekday = 3
	Thursday  Weekday = 4
	Friday    Weekday = 5
)

var weekdayNames = map[Weekday]string{
	Monday:    "MONDAY",
	Tuesday:   "TUESDAY",
	Wednesday: "WEDNESDAY",
	Thursday:  "THURSDAY",
	Friday:    "FRIDAY",
}

// Valid reports whether the day is one of the five teaching days.
func (d Weekday) Valid() bool {
	_, ok := weekdayNames[d]
	return ok
}

// String returns the upper-case day name.
func (d Weekday) String() string {
	if name, ok := weekdayNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Weekday(%d)", int(d))
}

// MarshalText encodes the day as its name.
func (d Weekday) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid weekday %d", int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText accepts a day name (any case) or its number.
func (d *Weekday) UnmarshalText(text []byte) error {
	raw := strings.ToUpper(strings.TrimSpace(string(text)))
	for day, name := range weekdayNames {
		if name == raw {
			*d = day
			return nil
		}
	}
	if n, err := strconv.Atoi(raw); err == nil && Weekday(n).Valid() {
		*d = Weekday(n)
		return nil
	}
	return fmt.Errorf("invalid weekday %q", string(text))
}

// ClockTime is a time of day in minutes after midnight.
type ClockTime int

// MinutesPerDay bounds ClockTime values; 24:00 is a valid end of day.
const MinutesPerDay ClockTime = 24 * 60

// ParseClockTime parses "HH:MM". Both fields must be exactly two digits.
func ParseClockTime(raw string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", raw)
	}
	hours, ok := twoDigits(parts[0])
	if !ok {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minutes, ok := twoDigits(parts[1])
	if !ok || minutes > 59 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	value := ClockTime(hours*60 + minutes)
	if value > MinutesPerDay {
		return 0, fmt.Errorf("time %q out of range", raw)
	}
	return value, nil
}

func twoDigits(s string) (int, bool) {
	if len(s) != 2 || s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}

// MustClockTime parses "HH:MM" and panics on malformed input.
func MustClockTime(raw string) ClockTime {
	t, err := ParseClockTime(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// String formats the value as "HH:MM".
func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// MarshalText encodes the value as "HH:MM".
func (t ClockTime) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes "HH:MM".
func (t *ClockTime) UnmarshalText(text []byte) error {
	parsed, err := ParseClockTime(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TimeSlot is a weekly recurring block [StartTime, EndTime) assigned to a room, teacher and course.
type TimeSlot struct {
	ID        string    `db:"id" json:"id"`
	Room      string    `db:"room" json:"room"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	DayOfWeek Weekday   `db:"day_of_week" json:"day_of_week"`
	StartTime ClockTime `db:"start_minute" json:"start_time"`
	EndTime   ClockTime `db:"end_minute" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TimeSlotFilter describes query params for listing time slots.
type TimeSlotFilter struct {
	Room      string
	TeacherID string
	CourseID  string
	DayOfWeek Weekday
	Page      int
	PageSize  int
}

// ConflictKind distinguishes room from teacher double-booking.
type ConflictKind int

// Conflict kinds.
const (
	ConflictRoomOverlap ConflictKind = iota + 1
	ConflictTeacherOverlap
)

// String returns the wire name of the kind.
func (k ConflictKind) String() string {
	switch k {
	case ConflictRoomOverlap:
		return "ROOM_OVERLAP"
	case ConflictTeacherOverlap:
		return "TEACHER_OVERLAP"
	default:
		return fmt.Sprintf("ConflictKind(%d)", int(k))
	}
}

// MarshalText encodes the kind by name.
func (k ConflictKind) MarshalText() ([]byte, error) {
	switch k {
	case ConflictRoomOverlap, ConflictTeacherOverlap:
		return []byte(k.String()), nil
	default:
		return nil, fmt.Errorf("invalid conflict kind %d", int(k))
	}
}

// UnmarshalText decodes the kind by name.
func (k *ConflictKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "ROOM_OVERLAP":
		*k = ConflictRoomOverlap
	case "TEACHER_OVERLAP":
		*k = ConflictTeacherOverlap
	default:
		return fmt.Errorf("invalid conflict kind %q", string(text))
	}
	return nil
}

// ScheduleConflict pairs a proposed slot (SlotA) with the slot it collides with (SlotB).
type ScheduleConflict struct {
	SlotA TimeSlot     `json:"slot_a"`
	SlotB TimeSlot     `json:"slot_b"`
	Kind  ConflictKind `json:"kind"`
}

// WeeklyLoad reports the teaching hours of a teacher.
type WeeklyLoad struct {
	TeacherID string          `json:"teacher_id"`
	SlotCount int             `json:"slot_count"`
	Hours     decimal.Decimal `json:"hours"`
}
