package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-academic-api/internal/grading"
	"github.com/noah-isme/sma-academic-api/internal/models"
	"github.com/noah-isme/sma-academic-api/internal/repository"
	appErrors "github.com/noah-isme/sma-academic-api/pkg/errors"
	"github.com/noah-isme/sma-academic-api/pkg/logger"
)

type rubricItemStore interface {
	ListByCourse(ctx context.Context, courseID string, includeInactive bool) ([]models.RubricItem, error)
	FindByID(ctx context.Context, id string) (*models.RubricItem, error)
	CreateChecked(ctx context.Context, item *models.RubricItem, check repository.SiblingCheck) error
	UpdateChecked(ctx context.Context, item *models.RubricItem, check repository.SiblingCheck) error
	Deactivate(ctx context.Context, id string) error
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// CreateRubricItemRequest defines a new weighted category of a course.
type CreateRubricItemRequest struct {
	CourseID string          `json:"course_id" validate:"required"`
	Name     string          `json:"name" validate:"required,max=120"`
	Weight   decimal.Decimal `json:"weight" swaggertype:"string" example:"0.25"`
	Category string          `json:"category" validate:"omitempty,max=60"`
}

// UpdateRubricItemRequest rewrites a rubric item. Omitted fields keep their value.
type UpdateRubricItemRequest struct {
	Name     *string          `json:"name" validate:"omitempty,min=1,max=120"`
	Weight   *decimal.Decimal `json:"weight" swaggertype:"string" example:"0.25"`
	Category *string          `json:"category" validate:"omitempty,max=60"`
	Active   *bool            `json:"active"`
}

// RubricService manages the weighted rubric of each course.
type RubricService struct {
	items     rubricItemStore
	courses   courseReader
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRubricService constructs RubricService.
func NewRubricService(items rubricItemStore, courses courseReader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *RubricService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RubricService{items: items, courses: courses, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// ListByCourse returns the rubric of a course, inactive items included on request.
func (s *RubricService) ListByCourse(ctx context.Context, courseID string, includeInactive bool) ([]models.RubricItem, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	items, err := s.items.ListByCourse(ctx, courseID, includeInactive)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rubric items")
	}
	return items, nil
}

// Get returns a rubric item.
func (s *RubricService) Get(ctx context.Context, id string) (*models.RubricItem, error) {
	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rubric item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rubric item")
	}
	return item, nil
}

// Create adds a rubric item after checking the course weight budget under a course lock.
func (s *RubricService) Create(ctx context.Context, req CreateRubricItemRequest) (*models.RubricItem, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rubric item payload")
	}
	if err := validateWeight(req.Weight); err != nil {
		return nil, err
	}

	item := &models.RubricItem{
		CourseID: req.CourseID,
		Name:     req.Name,
		Weight:   req.Weight,
		Category: strings.TrimSpace(req.Category),
		Active:   true,
	}
	err := s.items.CreateChecked(ctx, item, func(siblings []models.RubricItem) error {
		return grading.ValidateRubricWeights(siblings, item.Weight, "")
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, s.rubricWriteError(err, "failed to create rubric item")
	}

	s.cache.InvalidateCourse(ctx, item.CourseID)
	logger.WithContext(ctx, s.logger).Info("rubric item created",
		zap.String("course_id", item.CourseID),
		zap.String("rubric_item_id", item.ID),
		zap.String("weight", item.Weight.String()))
	return item, nil
}

// Update rewrites a rubric item. The weight budget is re-checked, excluding the item's previous
// weight, whenever the item is active after the update.
func (s *RubricService) Update(ctx context.Context, id string, req UpdateRubricItemRequest) (*models.RubricItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rubric item payload")
	}
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		item.Name = strings.TrimSpace(*req.Name)
	}
	if req.Weight != nil {
		if err := validateWeight(*req.Weight); err != nil {
			return nil, err
		}
		item.Weight = *req.Weight
	}
	if req.Category != nil {
		item.Category = strings.TrimSpace(*req.Category)
	}
	if req.Active != nil {
		item.Active = *req.Active
	}

	err = s.items.UpdateChecked(ctx, item, func(siblings []models.RubricItem) error {
		if !item.Active {
			return nil
		}
		return grading.ValidateRubricWeights(siblings, item.Weight, item.ID)
	})
	if err != nil {
		return nil, s.rubricWriteError(err, "failed to update rubric item")
	}

	s.cache.InvalidateCourse(ctx, item.CourseID)
	return item, nil
}

// Delete deactivates a rubric item. Its grades remain stored but no longer count.
func (s *RubricService) Delete(ctx context.Context, id string) error {
	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.items.Deactivate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "rubric item not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate rubric item")
	}
	s.cache.InvalidateCourse(ctx, item.CourseID)
	logger.WithContext(ctx, s.logger).Info("rubric item deactivated", zap.String("course_id", item.CourseID), zap.String("rubric_item_id", id))
	return nil
}

func (s *RubricService) rubricWriteError(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "rubric item not found")
	}
	var exceeded *grading.WeightExceededError
	if errors.As(err, &exceeded) {
		s.metrics.RecordWeightRejection()
		return appErrors.Wrap(err, appErrors.ErrWeightExceeded.Code, appErrors.ErrWeightExceeded.Status, exceeded.Error())
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// weightPlaces matches the rubric_items.weight column scale. Finer weights would be rounded on
// insert and could push the stored course total past 1.
const weightPlaces = 4

func validateWeight(weight decimal.Decimal) error {
	if !weight.IsPositive() || weight.GreaterThan(grading.FullWeight) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("weight must be greater than 0 and at most 1, got %s", weight.String()))
	}
	if !weight.Equal(weight.Round(weightPlaces)) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("weight allows at most %d decimal places, got %s", weightPlaces, weight.String()))
	}
	return nil
}
