package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeSlotJSON(t *testing.T) {
	var slot TimeSlot
	require.NoError(t, json.Unmarshal([]byte(`{"room":"R1","teacher_id":"t1","course_id":"c1","day_of_week":"monday","start_time":"08:00","end_time":"09:30"}`), &slot))
	assert.Equal(t, Monday, slot.DayOfWeek)
	assert.Equal(t, ClockTime(480), slot.StartTime)
	assert.Equal(t, ClockTime(570), slot.EndTime)

	raw, err := json.Marshal(ScheduleConflict{SlotA: slot, SlotB: slot, Kind: ConflictTeacherOverlap})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"kind":"TEACHER_OVERLAP"`)
	assert.Contains(t, string(raw), `"day_of_week":"MONDAY"`)
	assert.Contains(t, string(raw), `"start_time":"08:00"`)
}

func TestWeekdayUnmarshalRejectsWeekend(t *testing.T) {
	var day Weekday
	assert.Error(t, day.UnmarshalText([]byte("SATURDAY")))
	assert.Error(t, day.UnmarshalText([]byte("6")))
	require.NoError(t, day.UnmarshalText([]byte("5")))
	assert.Equal(t, Friday, day)
}

func TestParseClockTime(t *testing.T) {
	v, err := ParseClockTime("24:00")
	require.NoError(t, err)
	assert.Equal(t, MinutesPerDay, v)

	v, err = ParseClockTime("00:00")
	require.NoError(t, err)
	assert.Equal(t, ClockTime(0), v)

	for _, raw := range []string{"8:00", "24:01", "12:60", "ab:cd", "12-30", "+8:00", "-1:30", "08:+5", "08:-1", " 8:00", "08:00:00"} {
		_, err := ParseClockTime(raw)
		assert.Error(t, err, raw)
	}
}
