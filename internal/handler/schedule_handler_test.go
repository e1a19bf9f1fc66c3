package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-academic-api/internal/models"
	"github.com/noah-isme/sma-academic-api/internal/service"
	appErrors "github.com/noah-isme/sma-academic-api/pkg/errors"
)

type scheduleServiceMock struct {
	filter  models.TimeSlotFilter
	created service.CreateTimeSlotRequest
	result  *service.ScheduleResult
	err     error
}

func (m *scheduleServiceMock) List(ctx context.Context, filter models.TimeSlotFilter) ([]models.TimeSlot, *models.Pagination, error) {
	m.filter = filter
	return []models.TimeSlot{}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 0}, nil
}

func (m *scheduleServiceMock) Get(ctx context.Context, id string) (*models.TimeSlot, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
}

func (m *scheduleServiceMock) Check(ctx context.Context, req service.CheckTimeSlotsRequest) (*service.ScheduleResult, error) {
	return m.result, m.err
}

func (m *scheduleServiceMock) Create(ctx context.Context, req service.CreateTimeSlotRequest) (*service.ScheduleResult, error) {
	m.created = req
	return m.result, m.err
}

func (m *scheduleServiceMock) BulkCreate(ctx context.Context, req service.BulkCreateTimeSlotsRequest) (*service.ScheduleResult, error) {
	return m.result, m.err
}

func (m *scheduleServiceMock) Update(ctx context.Context, id string, req service.UpdateTimeSlotRequest) (*service.ScheduleResult, error) {
	return m.result, m.err
}

func (m *scheduleServiceMock) Delete(ctx context.Context, id string) error {
	return m.err
}

func (m *scheduleServiceMock) TeacherLoad(ctx context.Context, teacherID string) (*models.WeeklyLoad, error) {
	return &models.WeeklyLoad{TeacherID: teacherID, SlotCount: 3, Hours: decimal.RequireFromString("4.5")}, nil
}

func conflictFixture() []models.ScheduleConflict {
	a := models.TimeSlot{ID: "new", Room: "R1", TeacherID: "t1", CourseID: "c1", DayOfWeek: models.Monday, StartTime: models.MustClockTime("08:00"), EndTime: models.MustClockTime("09:00")}
	b := models.TimeSlot{ID: "s1", Room: "R1", TeacherID: "t2", CourseID: "c2", DayOfWeek: models.Monday, StartTime: models.MustClockTime("07:00"), EndTime: models.MustClockTime("08:30")}
	return []models.ScheduleConflict{{SlotA: a, SlotB: b, Kind: models.ConflictRoomOverlap}}
}

func TestScheduleHandlerCreateDecodesClockTimes(t *testing.T) {
	svc := &scheduleServiceMock{result: &service.ScheduleResult{Conflicts: []models.ScheduleConflict{}}}
	h := NewScheduleHandler(svc)

	c, w := newGinContext(http.MethodPost, "/time-slots", []byte(`{"room":"R1","teacher_id":"t1","course_id":"c1","day_of_week":"tuesday","start_time":"07:30","end_time":"09:00"}`))
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.Tuesday, svc.created.DayOfWeek)
	require.NotNil(t, svc.created.StartTime)
	require.NotNil(t, svc.created.EndTime)
	assert.Equal(t, models.ClockTime(450), *svc.created.StartTime)
	assert.Equal(t, models.ClockTime(540), *svc.created.EndTime)
	assert.False(t, svc.created.Confirm)
}

func TestScheduleHandlerCreateConflictCarriesList(t *testing.T) {
	svc := &scheduleServiceMock{
		result: &service.ScheduleResult{Conflicts: conflictFixture()},
		err:    appErrors.Clone(appErrors.ErrScheduleConflict, "1 schedule conflict(s) detected"),
	}
	h := NewScheduleHandler(svc)

	c, w := newGinContext(http.MethodPost, "/time-slots", []byte(`{"room":"R1","teacher_id":"t1","course_id":"c1","day_of_week":"MONDAY","start_time":"08:00","end_time":"09:00"}`))
	h.Create(c)

	require.Equal(t, http.StatusConflict, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "SCHEDULE_CONFLICT", env.Error.Code)
	data := string(env.Data)
	assert.Contains(t, data, `"kind":"ROOM_OVERLAP"`)
	assert.Contains(t, data, `"start_time":"07:00"`)
	assert.Contains(t, data, `"day_of_week":"MONDAY"`)
}

func TestScheduleHandlerCreateRejectsWeekend(t *testing.T) {
	h := NewScheduleHandler(&scheduleServiceMock{})
	c, w := newGinContext(http.MethodPost, "/time-slots", []byte(`{"room":"R1","teacher_id":"t1","course_id":"c1","day_of_week":"SATURDAY","start_time":"08:00","end_time":"09:00"}`))
	h.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleHandlerCreateRequiresTimes(t *testing.T) {
	svc := &scheduleServiceMock{result: &service.ScheduleResult{Conflicts: []models.ScheduleConflict{}}}
	h := NewScheduleHandler(svc)

	for _, body := range []string{
		`{"room":"R1","teacher_id":"t1","course_id":"c1","day_of_week":"MONDAY","end_time":"09:00"}`,
		`{"room":"R1","teacher_id":"t1","course_id":"c1","day_of_week":"MONDAY","start_time":"08:00"}`,
		`{"room":"R1","teacher_id":"t1","course_id":"c1","day_of_week":"MONDAY","start_time":null,"end_time":"09:00"}`,
		`{"room":"R1","teacher_id":"t1","course_id":"c1","day_of_week":"MONDAY","start_time":"+8:00","end_time":"09:00"}`,
	} {
		c, w := newGinContext(http.MethodPost, "/time-slots", []byte(body))
		h.Create(c)

		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "VALIDATION_ERROR", decodeEnvelope(t, w).Error.Code, body)
	}
	assert.Empty(t, svc.created.Room)
}

func TestScheduleHandlerBulkRequiresTimes(t *testing.T) {
	h := NewScheduleHandler(&scheduleServiceMock{result: &service.ScheduleResult{Conflicts: []models.ScheduleConflict{}}})

	body := `{"slots":[{"room":"R1","teacher_id":"t1","course_id":"c1","day_of_week":"MONDAY","start_time":"08:00","end_time":"09:00"},{"room":"R2","teacher_id":"t2","course_id":"c2","day_of_week":"MONDAY","start_time":"08:00"}]}`
	c, w := newGinContext(http.MethodPost, "/time-slots/bulk", []byte(body))
	h.BulkCreate(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeEnvelope(t, w).Error.Code)
}

func TestScheduleHandlerListParsesFilter(t *testing.T) {
	svc := &scheduleServiceMock{}
	h := NewScheduleHandler(svc)

	c, w := newGinContext(http.MethodGet, "/time-slots?room=R1&teacher_id=t1&day=wednesday&page=2&page_size=5", nil)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "R1", svc.filter.Room)
	assert.Equal(t, models.Wednesday, svc.filter.DayOfWeek)
	assert.Equal(t, 2, svc.filter.Page)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 5, env.Pagination.PageSize)

	c, w = newGinContext(http.MethodGet, "/time-slots?day=sunday", nil)
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleHandlerTeacherLoad(t *testing.T) {
	h := NewScheduleHandler(&scheduleServiceMock{})
	c, w := newGinContext(http.MethodGet, "/teachers/t1/load", nil)
	c.Params = gin.Params{{Key: "id", Value: "t1"}}
	h.TeacherLoad(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"hours":"4.5"`)
}

func TestScheduleHandlerInvalidInterval(t *testing.T) {
	svc := &scheduleServiceMock{err: appErrors.Clone(appErrors.ErrInvalidInterval, "start must be before end")}
	h := NewScheduleHandler(svc)
	c, w := newGinContext(http.MethodPut, "/time-slots/s1", []byte(`{"room":"R1","teacher_id":"t1","course_id":"c1","day_of_week":"MONDAY","start_time":"09:00","end_time":"08:00"}`))
	c.Params = gin.Params{{Key: "id", Value: "s1"}}
	h.Update(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INTERVAL", decodeEnvelope(t, w).Error.Code)
}
