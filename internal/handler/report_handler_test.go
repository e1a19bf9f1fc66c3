package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-academic-api/internal/service"
	appErrors "github.com/noah-isme/sma-academic-api/pkg/errors"
)

type reportServiceMock struct {
	format string
	file   *service.ReportFile
	err    error
}

func (m *reportServiceMock) CourseGradeReport(ctx context.Context, courseID, format string) (*service.ReportFile, error) {
	m.format = format
	return m.file, m.err
}

func TestReportHandlerDownload(t *testing.T) {
	svc := &reportServiceMock{file: &service.ReportFile{Filename: "bio-10-grades.csv", ContentType: "text/csv", Body: []byte("Student ID\n")}}
	h := NewReportHandler(svc)

	c, w := newGinContext(http.MethodGet, "/courses/c1/grade-report?format=csv", nil)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	h.CourseGradeReport(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", svc.format)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "bio-10-grades.csv")
	assert.Equal(t, "Student ID\n", w.Body.String())
}

func TestReportHandlerUnsupportedFormat(t *testing.T) {
	svc := &reportServiceMock{err: appErrors.Clone(appErrors.ErrValidation, `unsupported report format "xlsx"`)}
	h := NewReportHandler(svc)

	c, w := newGinContext(http.MethodGet, "/courses/c1/grade-report?format=xlsx", nil)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	h.CourseGradeReport(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
