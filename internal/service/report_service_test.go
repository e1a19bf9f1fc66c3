package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-academic-api/internal/models"
	appErrors "github.com/noah-isme/sma-academic-api/pkg/errors"
)

type stubStatisticsProvider struct {
	stats *models.CourseStatistics
	err   error
}

func (s *stubStatisticsProvider) CourseStatistics(ctx context.Context, courseID string) (*models.CourseStatistics, bool, error) {
	return s.stats, false, s.err
}

func newReportServiceForTest() *ReportService {
	stats := &models.CourseStatistics{
		CourseID:      "c1",
		PassThreshold: dec("70"),
		Policy:        "renormalize",
		Students: []models.EnrollmentAverage{
			{EnrollmentID: "e1", StudentID: "S-001", StudentName: "Ayu", Average: decimal.NewNullDecimal(dec("91.5")), GradedWeight: dec("1"), Passed: true},
			{EnrollmentID: "e2", StudentID: "S-002", StudentName: "Budi", GradedWeight: decimal.Zero},
		},
		Statistics: models.ClassStatistics{Total: 1, Mean: dec("91.5"), PassCount: 1, PassRate: dec("100")},
	}
	courses := &mockCourseReader{courses: map[string]*models.Course{"c1": {ID: "c1", Code: "BIO 10", Name: "Biology"}}}
	svc := NewReportService(&stubStatisticsProvider{stats: stats}, courses, NewMetricsService(), nil)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	return svc
}

func TestReportServiceCSV(t *testing.T) {
	svc := newReportServiceForTest()
	file, err := svc.CourseGradeReport(context.Background(), "c1", "")
	require.NoError(t, err)
	assert.Equal(t, "bio-10-grades.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	lines := strings.Split(strings.TrimSpace(string(file.Body)), "\n")
	assert.Equal(t, "Student ID,Student,Average,Graded weight,Result", lines[0])
	assert.Equal(t, "S-001,Ayu,91.50,100%,PASS", lines[1])
	assert.Equal(t, "S-002,Budi,,0%,NO DATA", lines[2])
	assert.Contains(t, string(file.Body), "Graded students,1 of 2")
	assert.Contains(t, string(file.Body), "Pass rate,100.00%")
	assert.Contains(t, string(file.Body), "Generated at,2025-03-01T09:00:00Z")
}

func TestReportServicePDF(t *testing.T) {
	svc := newReportServiceForTest()
	file, err := svc.CourseGradeReport(context.Background(), "c1", "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Body, []byte("%PDF")))
}

func TestReportServiceRejectsUnknownFormat(t *testing.T) {
	svc := newReportServiceForTest()
	_, err := svc.CourseGradeReport(context.Background(), "c1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportServicePropagatesNotFound(t *testing.T) {
	svc := NewReportService(&stubStatisticsProvider{err: appErrors.Clone(appErrors.ErrNotFound, "course not found")}, &mockCourseReader{}, nil, nil)
	_, err := svc.CourseGradeReport(context.Background(), "nope", "csv")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
