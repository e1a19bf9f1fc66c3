package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-academic-api/internal/grading"
	"github.com/noah-isme/sma-academic-api/internal/models"
	"github.com/noah-isme/sma-academic-api/pkg/cache"
	appErrors "github.com/noah-isme/sma-academic-api/pkg/errors"
	"github.com/noah-isme/sma-academic-api/pkg/logger"
)

// scorePlaces matches the grade_entries.score column scale.
const scorePlaces = 4

var (
	maxScore       = decimal.NewFromInt(100)
	hundredPercent = decimal.NewFromInt(100)
)

type gradeEntryStore interface {
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.GradeEntry, error)
	Upsert(ctx context.Context, entry *models.GradeEntry) error
	BulkUpsert(ctx context.Context, entries []models.GradeEntry) error
	FetchScores(ctx context.Context, enrollmentIDs []string) (map[string]map[string]decimal.Decimal, error)
}

type enrollmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	ListActiveByCourse(ctx context.Context, courseID string) ([]models.Enrollment, error)
}

type rubricItemReader interface {
	ListByCourse(ctx context.Context, courseID string, includeInactive bool) ([]models.RubricItem, error)
	FindByID(ctx context.Context, id string) (*models.RubricItem, error)
}

// GradingOptions carries the configured pass threshold and missing grade policy.
type GradingOptions struct {
	PassThreshold decimal.Decimal
	Policy        grading.MissingGradePolicy
}

// UpsertGradeRequest records the score of one enrollment for one rubric item.
type UpsertGradeRequest struct {
	EnrollmentID string           `json:"enrollment_id" validate:"required"`
	RubricItemID string           `json:"rubric_item_id" validate:"required"`
	Score        *decimal.Decimal `json:"score" validate:"required" binding:"required" swaggertype:"string" example:"87.5"`
	Note         *string          `json:"note" validate:"omitempty,max=500"`
}

// BulkGradeItem is one score of a bulk upload.
type BulkGradeItem struct {
	EnrollmentID string           `json:"enrollment_id" validate:"required"`
	RubricItemID string           `json:"rubric_item_id" validate:"required"`
	Score        *decimal.Decimal `json:"score" validate:"required" binding:"required" swaggertype:"string" example:"87.5"`
	Note         *string          `json:"note" validate:"omitempty,max=500"`
}

// BulkGradesRequest uploads scores of one course atomically.
type BulkGradesRequest struct {
	CourseID string          `json:"course_id" validate:"required"`
	Items    []BulkGradeItem `json:"items" validate:"required,min=1,dive" binding:"required,min=1,dive"`
}

// BulkGradesResult summarises a stored bulk upload.
type BulkGradesResult struct {
	CourseID     string `json:"course_id"`
	SuccessCount int    `json:"success_count"`
}

// GradeService records scores and derives weighted averages and class statistics.
type GradeService struct {
	entries     gradeEntryStore
	enrollments enrollmentReader
	rubric      rubricItemReader
	courses     courseReader
	cache       *CacheService
	metrics     *MetricsService
	options     GradingOptions
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGradeService constructs GradeService.
func NewGradeService(entries gradeEntryStore, enrollments enrollmentReader, rubric rubricItemReader, courses courseReader, cache *CacheService, metrics *MetricsService, options GradingOptions, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if options.PassThreshold.IsZero() {
		options.PassThreshold = grading.DefaultPassThreshold
	}
	return &GradeService{
		entries:     entries,
		enrollments: enrollments,
		rubric:      rubric,
		courses:     courses,
		cache:       cache,
		metrics:     metrics,
		options:     options,
		validator:   validate,
		logger:      logger,
	}
}

// Upsert stores a score, replacing the previous one for the same enrollment and rubric item.
func (s *GradeService) Upsert(ctx context.Context, req UpsertGradeRequest) (*models.GradeEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if err := validateScore(req.Score); err != nil {
		return nil, err
	}
	enrollment, err := s.loadEnrollment(ctx, req.EnrollmentID)
	if err != nil {
		return nil, err
	}
	item, err := s.rubric.FindByID(ctx, req.RubricItemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rubric item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rubric item")
	}
	if err := checkGradeTarget(enrollment, item); err != nil {
		return nil, err
	}

	entry := &models.GradeEntry{EnrollmentID: enrollment.ID, RubricItemID: item.ID, Score: *req.Score, Note: req.Note}
	if err := s.entries.Upsert(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store grade")
	}
	s.metrics.RecordGradeWrites(1)
	s.cache.InvalidateCourse(ctx, enrollment.CourseID)
	return entry, nil
}

// BulkUpsert validates every item against the course roster and rubric, then stores all of them
// in one transaction. A single invalid item rejects the whole upload.
func (s *GradeService) BulkUpsert(ctx context.Context, req BulkGradesRequest) (*BulkGradesResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk grade payload")
	}
	if _, err := s.loadCourse(ctx, req.CourseID); err != nil {
		return nil, err
	}
	roster, err := s.enrollments.ListActiveByCourse(ctx, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	items, err := s.rubric.ListByCourse(ctx, req.CourseID, true)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rubric")
	}
	enrolled := make(map[string]struct{}, len(roster))
	for _, e := range roster {
		enrolled[e.ID] = struct{}{}
	}
	rubricByID := make(map[string]models.RubricItem, len(items))
	for _, item := range items {
		rubricByID[item.ID] = item
	}

	entries := make([]models.GradeEntry, 0, len(req.Items))
	seen := make(map[[2]string]struct{}, len(req.Items))
	for i, row := range req.Items {
		if err := validateScore(row.Score); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("item %d: %s", i, err.Error()))
		}
		if _, ok := enrolled[row.EnrollmentID]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("item %d: enrollment %s is not active in course", i, row.EnrollmentID))
		}
		item, ok := rubricByID[row.RubricItemID]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("item %d: rubric item %s does not belong to course", i, row.RubricItemID))
		}
		if !item.Active {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("item %d: rubric item %s is inactive", i, row.RubricItemID))
		}
		key := [2]string{row.EnrollmentID, row.RubricItemID}
		if _, dup := seen[key]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("item %d: duplicate score for enrollment %s and rubric item %s", i, row.EnrollmentID, row.RubricItemID))
		}
		seen[key] = struct{}{}
		entries = append(entries, models.GradeEntry{EnrollmentID: row.EnrollmentID, RubricItemID: row.RubricItemID, Score: *row.Score, Note: row.Note})
	}

	if err := s.entries.BulkUpsert(ctx, entries); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store grades")
	}
	s.metrics.RecordGradeWrites(len(entries))
	s.cache.InvalidateCourse(ctx, req.CourseID)
	logger.WithContext(ctx, s.logger).Info("bulk grades stored", zap.String("course_id", req.CourseID), zap.Int("count", len(entries)))
	return &BulkGradesResult{CourseID: req.CourseID, SuccessCount: len(entries)}, nil
}

// ListByEnrollment returns the stored scores of an enrollment.
func (s *GradeService) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.GradeEntry, error) {
	if _, err := s.loadEnrollment(ctx, enrollmentID); err != nil {
		return nil, err
	}
	entries, err := s.entries.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return entries, nil
}

// EnrollmentAverage computes the weighted average of one enrollment over the active rubric.
func (s *GradeService) EnrollmentAverage(ctx context.Context, enrollmentID string) (*models.EnrollmentAverage, error) {
	enrollment, err := s.loadEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	items, err := s.rubric.ListByCourse(ctx, enrollment.CourseID, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rubric")
	}
	scores, err := s.entries.FetchScores(ctx, []string{enrollment.ID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scores")
	}
	avg := s.present(*enrollment, items, scores[enrollment.ID])
	return &avg, nil
}

// CourseStatistics computes every active student's average and the class statistics of a course.
// The boolean reports whether the result came from cache.
func (s *GradeService) CourseStatistics(ctx context.Context, courseID string) (*models.CourseStatistics, bool, error) {
	key := cache.StatsKey(courseID)
	var cached models.CourseStatistics
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	if _, err := s.loadCourse(ctx, courseID); err != nil {
		return nil, false, err
	}
	items, err := s.rubric.ListByCourse(ctx, courseID, false)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rubric")
	}
	roster, err := s.enrollments.ListActiveByCourse(ctx, courseID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	ids := make([]string, len(roster))
	for i, e := range roster {
		ids[i] = e.ID
	}
	scores, err := s.entries.FetchScores(ctx, ids)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scores")
	}

	result := &models.CourseStatistics{
		CourseID:      courseID,
		PassThreshold: s.options.PassThreshold,
		Policy:        s.options.Policy.String(),
		Students:      make([]models.EnrollmentAverage, 0, len(roster)),
	}
	averages := make([]decimal.Decimal, 0, len(roster))
	for _, enrollment := range roster {
		raw := grading.ComputeWeightedAverage(items, scores[enrollment.ID], s.options.Policy)
		if raw.Valid {
			averages = append(averages, raw.Decimal)
		}
		result.Students = append(result.Students, s.present(enrollment, items, scores[enrollment.ID]))
	}
	stats := grading.ComputeClassStatistics(averages, s.options.PassThreshold)
	stats.Mean = grading.RoundScore(stats.Mean)
	stats.PassRate = grading.RoundScore(stats.PassRate)
	result.Statistics = stats

	s.cache.Set(ctx, key, result)
	return result, false, nil
}

func (s *GradeService) present(enrollment models.Enrollment, items []models.RubricItem, scores map[string]decimal.Decimal) models.EnrollmentAverage {
	agg := grading.Accumulate(items, scores)
	avg := agg.Average(s.options.Policy)
	return models.EnrollmentAverage{
		EnrollmentID: enrollment.ID,
		StudentID:    enrollment.StudentID,
		StudentName:  enrollment.StudentName,
		Average:      grading.RoundNullScore(avg),
		GradedWeight: agg.GradedWeight,
		Passed:       avg.Valid && grading.Passed(avg.Decimal, s.options.PassThreshold),
	}
}

func (s *GradeService) loadEnrollment(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.enrollments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment, nil
}

func (s *GradeService) loadCourse(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

func checkGradeTarget(enrollment *models.Enrollment, item *models.RubricItem) error {
	switch {
	case enrollment.Status != models.EnrollmentStatusActive:
		return appErrors.Clone(appErrors.ErrValidation, "enrollment is not active")
	case item.CourseID != enrollment.CourseID:
		return appErrors.Clone(appErrors.ErrValidation, "rubric item does not belong to the enrollment's course")
	case !item.Active:
		return appErrors.Clone(appErrors.ErrValidation, "rubric item is inactive")
	}
	return nil
}

func validateScore(score *decimal.Decimal) error {
	switch {
	case score == nil:
		return appErrors.Clone(appErrors.ErrValidation, "score is required")
	case score.IsNegative() || score.GreaterThan(maxScore):
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("score must be between 0 and 100, got %s", score.String()))
	case !score.Equal(score.Round(scorePlaces)):
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("score allows at most %d decimal places, got %s", scorePlaces, score.String()))
	}
	return nil
}
