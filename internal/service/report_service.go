package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-academic-api/internal/models"
	appErrors "github.com/noah-isme/sma-academic-api/pkg/errors"
	"github.com/noah-isme/sma-academic-api/pkg/logger"
	"github.com/noah-isme/sma-academic-api/pkg/export"
)

// Report formats.
const (
	ReportFormatCSV = "csv"
	ReportFormatPDF = "pdf"
)

type courseStatisticsProvider interface {
	CourseStatistics(ctx context.Context, courseID string) (*models.CourseStatistics, bool, error)
}

// ReportFile is a rendered report ready for download.
type ReportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ReportService renders course grade sheets.
type ReportService struct {
	stats   courseStatisticsProvider
	courses courseReader
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewReportService constructs ReportService.
func NewReportService(stats courseStatisticsProvider, courses courseReader, metrics *MetricsService, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		stats:   stats,
		courses: courses,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(2, 3),
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// CourseGradeReport renders the grade sheet of a course as CSV or PDF.
func (s *ReportService) CourseGradeReport(ctx context.Context, courseID, format string) (*ReportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ReportFormatCSV
	}
	if format != ReportFormatCSV && format != ReportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report format %q", format))
	}

	stats, _, err := s.stats.CourseStatistics(ctx, courseID)
	if err != nil {
		return nil, err
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	report := models.CourseGradeReport{Course: *course, Statistics: *stats, GeneratedAt: s.now().UTC()}
	data := reportDataset(report)

	file := &ReportFile{Filename: fmt.Sprintf("%s-grades.%s", reportSlug(course), format)}
	switch format {
	case ReportFormatPDF:
		file.ContentType = export.ContentTypePDF
		file.Body, err = s.pdf.Render(data)
	default:
		file.ContentType = export.ContentTypeCSV
		file.Body, err = s.csv.Render(data)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render grade report")
	}
	s.metrics.RecordReportExport(format)
	logger.WithContext(ctx, s.logger).Info("grade report rendered", zap.String("course_id", courseID), zap.String("format", format), zap.Int("bytes", len(file.Body)))
	return file, nil
}

func reportDataset(report models.CourseGradeReport) export.Dataset {
	stats := report.Statistics
	data := export.Dataset{
		Title:   fmt.Sprintf("%s %s grade report", report.Course.Code, report.Course.Name),
		Headers: []string{"Student ID", "Student", "Average", "Graded weight", "Result"},
		Rows:    make([][]string, 0, len(stats.Students)),
	}
	for _, student := range stats.Students {
		average, result := "", "NO DATA"
		if student.Average.Valid {
			average = student.Average.Decimal.StringFixed(2)
			result = "FAIL"
			if student.Passed {
				result = "PASS"
			}
		}
		data.Rows = append(data.Rows, []string{
			student.StudentID,
			student.StudentName,
			average,
			student.GradedWeight.Mul(hundredPercent).StringFixed(0) + "%",
			result,
		})
	}
	data.Summary = [][2]string{
		{"Graded students", fmt.Sprintf("%d of %d", stats.Statistics.Total, len(stats.Students))},
		{"Mean", stats.Statistics.Mean.StringFixed(2)},
		{"Passed", fmt.Sprintf("%d", stats.Statistics.PassCount)},
		{"Failed", fmt.Sprintf("%d", stats.Statistics.FailCount)},
		{"Pass rate", stats.Statistics.PassRate.StringFixed(2) + "%"},
		{"Pass threshold", stats.PassThreshold.StringFixed(2)},
		{"Missing grades", stats.Policy},
		{"Generated at", report.GeneratedAt.Format(time.RFC3339)},
	}
	return data
}

func reportSlug(course *models.Course) string {
	slug := course.Code
	if slug == "" {
		slug = course.ID
	}
	return strings.ToLower(strings.ReplaceAll(slug, " ", "-"))
}
