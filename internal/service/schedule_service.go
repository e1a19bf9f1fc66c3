package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-academic-api/internal/models"
	"github.com/noah-isme/sma-academic-api/internal/repository"
	"github.com/noah-isme/sma-academic-api/internal/scheduling"
	"github.com/noah-isme/sma-academic-api/pkg/config"
	appErrors "github.com/noah-isme/sma-academic-api/pkg/errors"
	"github.com/noah-isme/sma-academic-api/pkg/logger"
)

var errConflictsRejected = errors.New("schedule conflicts rejected")

type timeSlotStore interface {
	List(ctx context.Context, filter models.TimeSlotFilter) ([]models.TimeSlot, int, error)
	FindByID(ctx context.Context, id string) (*models.TimeSlot, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.TimeSlot, error)
	ListByDays(ctx context.Context, days []models.Weekday) ([]models.TimeSlot, error)
	CreateChecked(ctx context.Context, slots []models.TimeSlot, check repository.SlotCheck) error
	UpdateChecked(ctx context.Context, slot *models.TimeSlot, check repository.SlotCheck) error
	Delete(ctx context.Context, id string) error
}

// TimeSlotPayload describes one weekly slot. Times use "HH:MM" and are required; an explicit
// "00:00" is distinct from an omitted time.
type TimeSlotPayload struct {
	Room      string            `json:"room" validate:"required,max=50"`
	TeacherID string            `json:"teacher_id" validate:"required"`
	CourseID  string            `json:"course_id" validate:"required"`
	DayOfWeek models.Weekday    `json:"day_of_week" swaggertype:"string" example:"MONDAY"`
	StartTime *models.ClockTime `json:"start_time" validate:"required" binding:"required" swaggertype:"string" example:"07:30"`
	EndTime   *models.ClockTime `json:"end_time" validate:"required" binding:"required" swaggertype:"string" example:"09:00"`
}

func (p TimeSlotPayload) toSlot() models.TimeSlot {
	return models.TimeSlot{
		Room:      strings.TrimSpace(p.Room),
		TeacherID: strings.TrimSpace(p.TeacherID),
		CourseID:  strings.TrimSpace(p.CourseID),
		DayOfWeek: p.DayOfWeek,
		StartTime: clockValue(p.StartTime),
		EndTime:   clockValue(p.EndTime),
	}
}

// clockValue maps an unset time below midnight so interval validation rejects it.
func clockValue(t *models.ClockTime) models.ClockTime {
	if t == nil {
		return -1
	}
	return *t
}

// CreateTimeSlotRequest proposes a single slot. Confirm stores it despite conflicts when the
// conflict policy allows it.
type CreateTimeSlotRequest struct {
	TimeSlotPayload
	Confirm bool `json:"confirm"`
}

// BulkCreateTimeSlotsRequest proposes several slots that are stored together or not at all.
type BulkCreateTimeSlotsRequest struct {
	Slots   []TimeSlotPayload `json:"slots" validate:"required,min=1,dive" binding:"required,min=1,dive"`
	Confirm bool              `json:"confirm"`
}

// UpdateTimeSlotRequest moves or reassigns an existing slot.
type UpdateTimeSlotRequest struct {
	TimeSlotPayload
	Confirm bool `json:"confirm"`
}

// CheckTimeSlot is a candidate of a dry run. A set ID checks the slot as a replacement.
type CheckTimeSlot struct {
	ID string `json:"id,omitempty"`
	TimeSlotPayload
}

// CheckTimeSlotsRequest runs conflict detection without storing anything.
type CheckTimeSlotsRequest struct {
	Slots []CheckTimeSlot `json:"slots" validate:"required,min=1,dive" binding:"required,min=1,dive"`
}

// ScheduleResult carries stored slots and the conflicts detected for them.
type ScheduleResult struct {
	Slots     []models.TimeSlot         `json:"slots,omitempty"`
	Conflicts []models.ScheduleConflict `json:"conflicts"`
}

// ScheduleService maintains the weekly timetable and guards it against double-booking.
type ScheduleService struct {
	slots     timeSlotStore
	policy    string
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService constructs ScheduleService. policy is config.ConflictPolicyBlock or
// config.ConflictPolicyConfirm.
func NewScheduleService(slots timeSlotStore, policy string, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy != config.ConflictPolicyConfirm {
		policy = config.ConflictPolicyBlock
	}
	return &ScheduleService{slots: slots, policy: policy, metrics: metrics, validator: validate, logger: logger}
}

// List returns time slots with pagination.
func (s *ScheduleService) List(ctx context.Context, filter models.TimeSlotFilter) ([]models.TimeSlot, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	slots, total, err := s.slots.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list time slots")
	}
	return slots, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a time slot.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.TimeSlot, error) {
	slot, err := s.slots.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slot")
	}
	return slot, nil
}

// Check reports the conflicts the candidates would cause against the stored timetable and each
// other. Nothing is written.
func (s *ScheduleService) Check(ctx context.Context, req CheckTimeSlotsRequest) (*ScheduleResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time slot payload")
	}
	proposed := make([]models.TimeSlot, len(req.Slots))
	for i, candidate := range req.Slots {
		proposed[i] = candidate.toSlot()
		proposed[i].ID = candidate.ID
	}
	if err := validateIntervals(proposed); err != nil {
		return nil, err
	}
	existing, err := s.slots.ListByDays(ctx, distinctWeekdays(proposed))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slots")
	}
	return &ScheduleResult{Conflicts: scheduling.DetectConflicts(existing, proposed)}, nil
}

// Create stores one slot.
func (s *ScheduleService) Create(ctx context.Context, req CreateTimeSlotRequest) (*ScheduleResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time slot payload")
	}
	return s.create(ctx, []models.TimeSlot{req.toSlot()}, req.Confirm)
}

// BulkCreate stores several slots atomically.
func (s *ScheduleService) BulkCreate(ctx context.Context, req BulkCreateTimeSlotsRequest) (*ScheduleResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time slot payload")
	}
	slots := make([]models.TimeSlot, len(req.Slots))
	for i, payload := range req.Slots {
		slots[i] = payload.toSlot()
	}
	return s.create(ctx, slots, req.Confirm)
}

// Update rewrites a slot. Its previous version is not counted as a conflict.
func (s *ScheduleService) Update(ctx context.Context, id string, req UpdateTimeSlotRequest) (*ScheduleResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time slot payload")
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	slot := req.toSlot()
	slot.ID = current.ID
	slot.CreatedAt = current.CreatedAt
	if err := validateIntervals([]models.TimeSlot{slot}); err != nil {
		return nil, err
	}

	var conflicts []models.ScheduleConflict
	err = s.slots.UpdateChecked(ctx, &slot, func(existing []models.TimeSlot) error {
		conflicts = scheduling.DetectConflicts(existing, []models.TimeSlot{slot})
		return s.admit(conflicts, req.Confirm)
	})
	if err != nil {
		return s.writeError(err, conflicts, req.Confirm, "failed to update time slot")
	}
	s.stored(ctx, conflicts)
	return &ScheduleResult{Slots: []models.TimeSlot{slot}, Conflicts: conflicts}, nil
}

// Delete removes a slot.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.slots.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete time slot")
	}
	return nil
}

// TeacherLoad sums the weekly teaching hours of a teacher.
func (s *ScheduleService) TeacherLoad(ctx context.Context, teacherID string) (*models.WeeklyLoad, error) {
	slots, err := s.slots.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher timetable")
	}
	return &models.WeeklyLoad{
		TeacherID: teacherID,
		SlotCount: len(slots),
		Hours:     scheduling.ComputeWeeklyHours(slots),
	}, nil
}

func (s *ScheduleService) create(ctx context.Context, slots []models.TimeSlot, confirm bool) (*ScheduleResult, error) {
	if err := validateIntervals(slots); err != nil {
		return nil, err
	}
	if err := checkCourseRoomOverlap(slots); err != nil {
		return nil, err
	}
	for i := range slots {
		slots[i].ID = uuid.NewString()
	}

	var conflicts []models.ScheduleConflict
	err := s.slots.CreateChecked(ctx, slots, func(existing []models.TimeSlot) error {
		conflicts = scheduling.DetectConflicts(existing, slots)
		return s.admit(conflicts, confirm)
	})
	if err != nil {
		return s.writeError(err, conflicts, confirm, "failed to create time slots")
	}
	s.stored(ctx, conflicts)
	return &ScheduleResult{Slots: slots, Conflicts: conflicts}, nil
}

// admit decides whether a write may proceed given its conflicts.
func (s *ScheduleService) admit(conflicts []models.ScheduleConflict, confirm bool) error {
	if len(conflicts) == 0 {
		return nil
	}
	if s.policy == config.ConflictPolicyConfirm && confirm {
		return nil
	}
	return errConflictsRejected
}

func (s *ScheduleService) writeError(err error, conflicts []models.ScheduleConflict, confirm bool, message string) (*ScheduleResult, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
	}
	if !errors.Is(err, errConflictsRejected) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
	}
	s.metrics.RecordConflicts(conflicts)
	msg := fmt.Sprintf("%d schedule conflict(s) detected", len(conflicts))
	if s.policy == config.ConflictPolicyConfirm && !confirm {
		msg += "; resubmit with confirm=true to store anyway"
	}
	return &ScheduleResult{Conflicts: conflicts}, appErrors.Clone(appErrors.ErrScheduleConflict, msg)
}

func (s *ScheduleService) stored(ctx context.Context, conflicts []models.ScheduleConflict) {
	if len(conflicts) == 0 {
		return
	}
	s.metrics.RecordConflicts(conflicts)
	logger.WithContext(ctx, s.logger).Warn("time slots stored with confirmed conflicts", zap.Int("conflicts", len(conflicts)))
}

func validateIntervals(slots []models.TimeSlot) error {
	for i, slot := range slots {
		if err := scheduling.ValidateSlot(slot); err != nil {
			msg := err.Error()
			if len(slots) > 1 {
				msg = fmt.Sprintf("slot %d: %s", i, msg)
			}
			return appErrors.Wrap(err, appErrors.ErrInvalidInterval.Code, appErrors.ErrInvalidInterval.Status, msg)
		}
	}
	return nil
}

// checkCourseRoomOverlap rejects a request that books the same course twice in one room at once.
func checkCourseRoomOverlap(slots []models.TimeSlot) error {
	for i := range slots {
		for j := i + 1; j < len(slots); j++ {
			a, b := slots[i], slots[j]
			if a.CourseID == b.CourseID && strings.EqualFold(a.Room, b.Room) && scheduling.Overlaps(a, b) {
				return appErrors.Clone(appErrors.ErrValidation,
					fmt.Sprintf("slots %d and %d book course %s in room %s at overlapping times", i, j, a.CourseID, a.Room))
			}
		}
	}
	return nil
}

func distinctWeekdays(slots []models.TimeSlot) []models.Weekday {
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
