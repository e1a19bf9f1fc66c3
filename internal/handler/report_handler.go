package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-academic-api/internal/service"
	"github.com/noah-isme/sma-academic-api/pkg/response"
)

type reportService interface {
	CourseGradeReport(ctx context.Context, courseID, format string) (*service.ReportFile, error)
}

// ReportHandler serves downloadable grade sheets.
type ReportHandler struct {
	reports reportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports reportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// CourseGradeReport godoc
// @Summary Download the grade report of a course
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Course ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/grade-report [get]
func (h *ReportHandler) CourseGradeReport(c *gin.Context) {
	file, err := h.reports.CourseGradeReport(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.ContentType, file.Filename, file.Body)
}
