package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-academic-api/internal/middleware"
	"github.com/noah-isme/sma-academic-api/internal/models"
	"github.com/noah-isme/sma-academic-api/internal/service"
	appErrors "github.com/noah-isme/sma-academic-api/pkg/errors"
	"github.com/noah-isme/sma-academic-api/pkg/response"
)

type scheduleService interface {
	List(ctx context.Context, filter models.TimeSlotFilter) ([]models.TimeSlot, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.TimeSlot, error)
	Check(ctx context.Context, req service.CheckTimeSlotsRequest) (*service.ScheduleResult, error)
	Create(ctx context.Context, req service.CreateTimeSlotRequest) (*service.ScheduleResult, error)
	BulkCreate(ctx context.Context, req service.BulkCreateTimeSlotsRequest) (*service.ScheduleResult, error)
	Update(ctx context.Context, id string, req service.UpdateTimeSlotRequest) (*service.ScheduleResult, error)
	Delete(ctx context.Context, id string) error
	TeacherLoad(ctx context.Context, teacherID string) (*models.WeeklyLoad, error)
}

// ScheduleHandler manages the weekly timetable.
type ScheduleHandler struct {
	service scheduleService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc scheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// List godoc
// @Summary List time slots
// @Tags Timetable
// @Produce json
// @Param room query string false "Filter by room"
// @Param teacher_id query string false "Filter by teacher"
// @Param course_id query string false "Filter by course"
// @Param day query string false "Filter by day (MONDAY..FRIDAY)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /time-slots [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	filter := models.TimeSlotFilter{
		Room:      strings.TrimSpace(c.Query("room")),
		TeacherID: c.Query("teacher_id"),
		CourseID:  c.Query("course_id"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "page_size", 20),
	}
	if raw := c.Query("day"); raw != "" {
		if err := filter.DayOfWeek.UnmarshalText([]byte(raw)); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid day"))
			return
		}
	}
	slots, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, pagination, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get time slot
// @Tags Timetable
// @Produce json
// @Param id path string true "Time slot ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /time-slots/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	slot, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil, middleware.ExtractMeta(c))
}

// Check godoc
// @Summary Detect conflicts without storing
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body service.CheckTimeSlotsRequest true "Candidate slots"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /time-slots/check [post]
func (h *ScheduleHandler) Check(c *gin.Context) {
	var req service.CheckTimeSlotsRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.Check(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// Create godoc
// @Summary Create time slot
// @Description Responds 409 SCHEDULE_CONFLICT with the conflict list unless the conflict policy accepts confirm=true.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body service.CreateTimeSlotRequest true "Time slot payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /time-slots [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req service.CreateTimeSlotRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.Create(c.Request.Context(), req)
	h.respondWrite(c, result, err, http.StatusCreated)
}

// BulkCreate godoc
// @Summary Create several time slots atomically
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body service.BulkCreateTimeSlotsRequest true "Time slots payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /time-slots/bulk [post]
func (h *ScheduleHandler) BulkCreate(c *gin.Context) {
	var req service.BulkCreateTimeSlotsRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.BulkCreate(c.Request.Context(), req)
	h.respondWrite(c, result, err, http.StatusCreated)
}

// Update godoc
// @Summary Update time slot
// @Tags Timetable
// @Accept json
// @Produce json
// @Param id path string true "Time slot ID"
// @Param payload body service.UpdateTimeSlotRequest true "Time slot payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /time-slots/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req service.UpdateTimeSlotRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	h.respondWrite(c, result, err, http.StatusOK)
}

// Delete godoc
// @Summary Delete time slot
// @Tags Timetable
// @Param id path string true "Time slot ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /time-slots/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// TeacherLoad godoc
// @Summary Weekly teaching hours of a teacher
// @Tags Timetable
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/load [get]
func (h *ScheduleHandler) TeacherLoad(c *gin.Context) {
	load, err := h.service.TeacherLoad(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, load, nil, middleware.ExtractMeta(c))
}

func (h *ScheduleHandler) respondWrite(c *gin.Context, result *service.ScheduleResult, err error, status int) {
	if err != nil {
		if result != nil {
			response.ErrorWithData(c, err, result)
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, status, result, nil, middleware.ExtractMeta(c))
}
