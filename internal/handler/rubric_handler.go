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

type rubricService interface {
	ListByCourse(ctx context.Context, courseID string, includeInactive bool) ([]models.RubricItem, error)
	Get(ctx context.Context, id string) (*models.RubricItem, error)
	Create(ctx context.Context, req service.CreateRubricItemRequest) (*models.RubricItem, error)
	Update(ctx context.Context, id string, req service.UpdateRubricItemRequest) (*models.RubricItem, error)
	Delete(ctx context.Context, id string) error
}

// RubricHandler exposes the weighted rubric of a course.
type RubricHandler struct {
	rubric rubricService
}

// NewRubricHandler constructs RubricHandler.
func NewRubricHandler(rubric rubricService) *RubricHandler {
	return &RubricHandler{rubric: rubric}
}

// ListByCourse godoc
// @Summary List rubric items of a course
// @Tags Rubric
// @Produce json
// @Param id path string true "Course ID"
// @Param include_inactive query bool false "Include deactivated items"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/rubric-items [get]
func (h *RubricHandler) ListByCourse(c *gin.Context) {
	items, err := h.rubric.ListByCourse(c.Request.Context(), c.Param("id"), queryBool(c, "include_inactive"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil, middleware.ExtractMeta(c))
}

// Create godoc
// @Summary Add a rubric item to a course
// @Description Rejected with WEIGHT_EXCEEDED when the active weights of the course would exceed 100%.
// @Tags Rubric
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.CreateRubricItemRequest true "Rubric item payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/rubric-items [post]
func (h *RubricHandler) Create(c *gin.Context) {
	var req service.CreateRubricItemRequest
	if !bindJSON(c, &req) {
		return
	}
	req.CourseID = c.Param("id")
	item, err := h.rubric.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get rubric item
// @Tags Rubric
// @Produce json
// @Param id path string true "Rubric item ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rubric-items/{id} [get]
func (h *RubricHandler) Get(c *gin.Context) {
	item, err := h.rubric.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil, middleware.ExtractMeta(c))
}

// Update godoc
// @Summary Update rubric item
// @Tags Rubric
// @Accept json
// @Produce json
// @Param id path string true "Rubric item ID"
// @Param payload body service.UpdateRubricItemRequest true "Rubric item changes"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rubric-items/{id} [put]
func (h *RubricHandler) Update(c *gin.Context) {
	var req service.UpdateRubricItemRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.rubric.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil, middleware.ExtractMeta(c))
}

// Delete godoc
// @Summary Deactivate rubric item
// @Description Stored grades are kept but stop counting towards averages.
// @Tags Rubric
// @Param id path string true "Rubric item ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /rubric-items/{id} [delete]
func (h *RubricHandler) Delete(c *gin.Context) {
	if err := h.rubric.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
