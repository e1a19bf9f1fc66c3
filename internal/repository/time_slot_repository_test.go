package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-academic-api/internal/models"
)

var slotColumns = []string{"id", "room", "teacher_id", "course_id", "day_of_week", "start_minute", "end_minute", "created_at", "updated_at"}

func TestTimeSlotRepositoryCreateChecked(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("LOCK TABLE time_slots IN SHARE ROW EXCLUSIVE MODE")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM time_slots WHERE day_of_week IN ($1,$2)")).
		WithArgs(1, 3).
		WillReturnRows(sqlmock.NewRows(slotColumns).
			AddRow("s1", "R1", "t1", "c1", 1, 480, 540, time.Now(), time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO time_slots")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO time_slots")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	slots := []models.TimeSlot{
		{Room: "R1", TeacherID: "t1", CourseID: "c1", DayOfWeek: models.Monday, StartTime: 540, EndTime: 600},
		{Room: "R1", TeacherID: "t1", CourseID: "c1", DayOfWeek: models.Wednesday, StartTime: 540, EndTime: 600},
	}
	var existing []models.TimeSlot
	require.NoError(t, repo.CreateChecked(context.Background(), slots, func(e []models.TimeSlot) error {
		existing = e
		return nil
	}))
	require.Len(t, existing, 1)
	assert.Equal(t, models.Monday, existing[0].DayOfWeek)
	assert.Equal(t, models.ClockTime(480), existing[0].StartTime)
	assert.NotEmpty(t, slots[0].ID)
	assert.NotEmpty(t, slots[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeSlotRepositoryCreateCheckedRejected(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("LOCK TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM time_slots").WithArgs(2).WillReturnRows(sqlmock.NewRows(slotColumns))
	mock.ExpectRollback()

	conflict := errors.New("conflict")
	err := repo.CreateChecked(context.Background(), []models.TimeSlot{{DayOfWeek: models.Tuesday, StartTime: 60, EndTime: 120}}, func([]models.TimeSlot) error {
		return conflict
	})
	assert.ErrorIs(t, err, conflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeSlotRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, room, teacher_id, course_id, day_of_week, start_minute, end_minute, created_at, updated_at FROM time_slots WHERE 1=1 AND teacher_id = $1 AND day_of_week = $2 ORDER BY day_of_week ASC, start_minute ASC, room ASC LIMIT 20 OFFSET 0")).
		WithArgs("t1", 2).
		WillReturnRows(sqlmock.NewRows(slotColumns).
			AddRow("s1", "R1", "t1", "c1", 2, 480, 540, time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM time_slots WHERE 1=1 AND teacher_id = $1 AND day_of_week = $2")).
		WithArgs("t1", 2).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	slots, total, err := repo.List(context.Background(), models.TimeSlotFilter{TeacherID: "t1", DayOfWeek: models.Tuesday})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, slots, 1)
	assert.Equal(t, models.Tuesday, slots[0].DayOfWeek)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeSlotRepositoryListByTeacher(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM time_slots WHERE teacher_id = $1")).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows(slotColumns).
			AddRow("s1", "R1", "t1", "c1", 1, 480, 570, time.Now(), time.Now()).
			AddRow("s2", "R2", "t1", "c2", 4, 600, 660, time.Now(), time.Now()))

	slots, err := repo.ListByTeacher(context.Background(), "t1")
	require.NoError(t, err)
	assert.Len(t, slots, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeSlotRepositoryUpdateChecked(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("LOCK TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM time_slots").WithArgs(1).WillReturnRows(sqlmock.NewRows(slotColumns))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE time_slots SET room")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	slot := &models.TimeSlot{ID: "s1", Room: "R1", TeacherID: "t1", CourseID: "c1", DayOfWeek: models.Monday, StartTime: 480, EndTime: 540}
	require.NoError(t, repo.UpdateChecked(context.Background(), slot, func([]models.TimeSlot) error { return nil }))
	assert.False(t, slot.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeSlotRepositoryUpdateCheckedMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("LOCK TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM time_slots").WithArgs(1).WillReturnRows(sqlmock.NewRows(slotColumns))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE time_slots SET room")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	slot := &models.TimeSlot{ID: "gone", Room: "R1", TeacherID: "t1", CourseID: "c1", DayOfWeek: models.Monday, StartTime: 480, EndTime: 540}
	err := repo.UpdateChecked(context.Background(), slot, func([]models.TimeSlot) error { return nil })
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeSlotRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM time_slots WHERE id = $1")).WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM time_slots WHERE id = $1")).WithArgs("gone").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "s1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "gone"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
