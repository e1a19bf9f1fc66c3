package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-academic-api/internal/models"
)

const timeSlotColumns = `id, room, teacher_id, course_id, day_of_week, start_minute, end_minute, created_at, updated_at`

const insertTimeSlotQuery = `INSERT INTO time_slots (id, room, teacher_id, course_id, day_of_week, start_minute, end_minute, created_at, updated_at)
        VALUES (:id, :room, :teacher_id, :course_id, :day_of_week, :start_minute, :end_minute, :created_at, :updated_at)`

// SlotCheck inspects the committed slots on the affected days before a timetable write.
// It runs inside the write transaction while the table is locked against concurrent writers.
type SlotCheck func(existing []models.TimeSlot) error

// TimeSlotRepository persists weekly time slots.
type TimeSlotRepository struct {
	db *sqlx.DB
}

// NewTimeSlotRepository creates a new time slot repository.
func NewTimeSlotRepository(db *sqlx.DB) *TimeSlotRepository {
	return &TimeSlotRepository{db: db}
}

// List returns time slots with optional filtering and pagination.
func (r *TimeSlotRepository) List(ctx context.Context, filter models.TimeSlotFilter) ([]models.TimeSlot, int, error) {
	base := "FROM time_slots WHERE 1=1"
	var args []interface{}
	if filter.Room != "" {
		args = append(args, filter.Room)
		base += fmt.Sprintf(" AND LOWER(room) = LOWER($%d)", len(args))
	}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		base += fmt.Sprintf(" AND teacher_id = $%d", len(args))
	}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		base += fmt.Sprintf(" AND course_id = $%d", len(args))
	}
	if filter.DayOfWeek != 0 {
		args = append(args, int(filter.DayOfWeek))
		base += fmt.Sprintf(" AND day_of_week = $%d", len(args))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY day_of_week ASC, start_minute ASC, room ASC LIMIT %d OFFSET %d", timeSlotColumns, base, size, offset)
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list time slots: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count time slots: %w", err)
	}
	return slots, total, nil
}

// FindByID loads a time slot by id.
func (r *TimeSlotRepository) FindByID(ctx context.Context, id string) (*models.TimeSlot, error) {
	query := `SELECT ` + timeSlotColumns + ` FROM time_slots WHERE id = $1`
	var slot models.TimeSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// ListByTeacher returns the weekly timetable of a teacher.
func (r *TimeSlotRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.TimeSlot, error) {
	query := `SELECT ` + timeSlotColumns + ` FROM time_slots WHERE teacher_id = $1 ORDER BY day_of_week ASC, start_minute ASC`
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, teacherID); err != nil {
		return nil, fmt.Errorf("list time slots by teacher: %w", err)
	}
	return slots, nil
}

// ListByDays returns every committed slot on the given days.
func (r *TimeSlotRepository) ListByDays(ctx context.Context, days []models.Weekday) ([]models.TimeSlot, error) {
	return r.listByDays(ctx, r.db, days)
}

// CreateChecked inserts slots after check accepts the committed slots on the same days.
func (r *TimeSlotRepository) CreateChecked(ctx context.Context, slots []models.TimeSlot, check SlotCheck) error {
	if len(slots) == 0 {
		return nil
	}
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		existing, err := r.lockAndLoad(ctx, tx, slots)
		if err != nil {
			return err
		}
		if err := check(existing); err != nil {
			return err
		}
		now := time.Now().UTC()
		for i := range slots {
			if slots[i].ID == "" {
				slots[i].ID = uuid.NewString()
			}
			slots[i].CreatedAt = now
			slots[i].UpdatedAt = now
			if _, err := tx.NamedExecContext(ctx, insertTimeSlotQuery, slots[i]); err != nil {
				return fmt.Errorf("insert time slot: %w", err)
			}
		}
		return nil
	})
}

// UpdateChecked rewrites slot after check accepts the committed slots on its day.
func (r *TimeSlotRepository) UpdateChecked(ctx context.Context, slot *models.TimeSlot, check SlotCheck) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		existing, err := r.lockAndLoad(ctx, tx, []models.TimeSlot{*slot})
		if err != nil {
			return err
		}
		if err := check(existing); err != nil {
			return err
		}
		slot.UpdatedAt = time.Now().UTC()
		const query = `UPDATE time_slots SET room = :room, teacher_id = :teacher_id, course_id = :course_id, day_of_week = :day_of_week,
        start_minute = :start_minute, end_minute = :end_minute, updated_at = :updated_at WHERE id = :id`
		result, err := tx.NamedExecContext(ctx, query, slot)
		if err != nil {
			return fmt.Errorf("update time slot: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("check updated time slot rows: %w", err)
		}
		if affected == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

// Delete removes a time slot. It returns sql.ErrNoRows when the slot does not exist.
func (r *TimeSlotRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM time_slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete time slot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted time slot rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// lockAndLoad blocks concurrent timetable writers (readers stay unaffected) and loads the
// committed slots on the days touched by slots.
func (r *TimeSlotRepository) lockAndLoad(ctx context.Context, tx *sqlx.Tx, slots []models.TimeSlot) ([]models.TimeSlot, error) {
	if _, err := tx.ExecContext(ctx, `LOCK TABLE time_slots IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return nil, fmt.Errorf("lock time slots: %w", err)
	}
	return r.listByDays(ctx, tx, distinctDays(slots))
}

func (r *TimeSlotRepository) listByDays(ctx context.Context, q sqlx.QueryerContext, days []models.Weekday) ([]models.TimeSlot, error) {
	if len(days) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(days))
	args := make([]interface{}, len(days))
	for i, day := range days {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = int(day)
	}
	query := fmt.Sprintf(`SELECT %s FROM time_slots WHERE day_of_week IN (%s) ORDER BY day_of_week ASC, start_minute ASC, id ASC`, timeSlotColumns, strings.Join(placeholders, ","))
	var slots []models.TimeSlot
	if err := sqlx.SelectContext(ctx, q, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("list time slots by day: %w", err)
	}
	return slots, nil
}

func distinctDays(slots []models.TimeSlot) []models.Weekday {
	seen := make(map[models.Weekday]struct{}, len(slots))
	days := make([]models.Weekday, 0, len(slots))
	for _, slot := range slots {
		if _, ok := seen[slot.DayOfWeek]; ok {
			continue
		}
		seen[slot.DayOfWeek] = struct{}{}
		days = append(days, slot.DayOfWeek)
	}
	return days
}
