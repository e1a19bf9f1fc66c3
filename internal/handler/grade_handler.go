package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-academic-api/internal/middleware"
	"github.com/noah-isme/sma-academic-api/internal/models"
	"github.com/noah-isme/sma-academic-api/internal/service"
	"github.com/noah-isme/sma-academic-api/pkg/response"
)

type gradeService interface {
	Upsert(ctx context.Context, req service.UpsertGradeRequest) (*models.GradeEntry, error)
	BulkUpsert(ctx context.Context, req service.BulkGradesRequest) (*service.BulkGradesResult, error)
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.GradeEntry, error)
	EnrollmentAverage(ctx context.Context, enrollmentID string) (*models.EnrollmentAverage, error)
	CourseStatistics(ctx context.Context, courseID string) (*models.CourseStatistics, bool, error)
}

// GradeHandler exposes grade entry and average endpoints.
type GradeHandler struct {
	grades gradeService
}

// NewGradeHandler constructs handler.
func NewGradeHandler(grades gradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// Upsert godoc
// @Summary Record a score
// @Description Idempotent on (enrollment_id, rubric_item_id).
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body service.UpsertGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /grades [put]
func (h *GradeHandler) Upsert(c *gin.Context) {
	var req service.UpsertGradeRequest
	if !bindJSON(c, &req) {
		return
	}
	entry, err := h.grades.Upsert(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil, middleware.ExtractMeta(c))
}

// Bulk godoc
// @Summary Record scores of a course in one transaction
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body service.BulkGradesRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /grades/bulk [post]
func (h *GradeHandler) Bulk(c *gin.Context) {
	var req service.BulkGradesRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.grades.BulkUpsert(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// ListByEnrollment godoc
// @Summary List scores of an enrollment
// @Tags Grades
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{id}/grades [get]
func (h *GradeHandler) ListByEnrollment(c *gin.Context) {
	entries, err := h.grades.ListByEnrollment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil, middleware.ExtractMeta(c))
}

// Average godoc
// @Summary Weighted average of an enrollment
// @Description average is null when no active rubric item has been graded yet.
// @Tags Grades
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{id}/average [get]
func (h *GradeHandler) Average(c *gin.Context) {
	avg, err := h.grades.EnrollmentAverage(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, avg, nil, middleware.ExtractMeta(c))
}

// Statistics godoc
// @Summary Course averages and class statistics
// @Tags Grades
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/statistics [get]
func (h *GradeHandler) Statistics(c *gin.Context) {
	stats, hit, err := h.grades.CourseStatistics(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}
