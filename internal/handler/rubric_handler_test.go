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

type rubricServiceMock struct {
	created     service.CreateRubricItemRequest
	createErr   error
	updated     service.UpdateRubricItemRequest
	inactiveArg bool
	deleteErr   error
}

func (m *rubricServiceMock) ListByCourse(ctx context.Context, courseID string, includeInactive bool) ([]models.RubricItem, error) {
	m.inactiveArg = includeInactive
	return []models.RubricItem{{ID: "r1", CourseID: courseID, Weight: decimal.RequireFromString("0.4"), Active: true}}, nil
}

func (m *rubricServiceMock) Get(ctx context.Context, id string) (*models.RubricItem, error) {
	return &models.RubricItem{ID: id}, nil
}

func (m *rubricServiceMock) Create(ctx context.Context, req service.CreateRubricItemRequest) (*models.RubricItem, error) {
	m.created = req
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.RubricItem{ID: "r-new", CourseID: req.CourseID, Name: req.Name, Weight: req.Weight, Active: true}, nil
}

func (m *rubricServiceMock) Update(ctx context.Context, id string, req service.UpdateRubricItemRequest) (*models.RubricItem, error) {
	m.updated = req
	return &models.RubricItem{ID: id}, nil
}

func (m *rubricServiceMock) Delete(ctx context.Context, id string) error {
	return m.deleteErr
}

func TestRubricHandlerCreateUsesPathCourse(t *testing.T) {
	svc := &rubricServiceMock{}
	h := NewRubricHandler(svc)

	c, w := newGinContext(http.MethodPost, "/courses/c1/rubric-items", []byte(`{"course_id":"ignored","name":"Exam","weight":"0.4"}`))
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "c1", svc.created.CourseID)
	assert.True(t, svc.created.Weight.Equal(decimal.RequireFromString("0.4")))
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"weight":"0.4"`)
}

func TestRubricHandlerCreateWeightExceeded(t *testing.T) {
	svc := &rubricServiceMock{createErr: appErrors.Clone(appErrors.ErrWeightExceeded, "the weight sum would exceed 100%; available: 10.00%")}
	h := NewRubricHandler(svc)

	c, w := newGinContext(http.MethodPost, "/courses/c1/rubric-items", []byte(`{"name":"Project","weight":0.2}`))
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	h.Create(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "WEIGHT_EXCEEDED", env.Error.Code)
	assert.Contains(t, env.Error.Message, "available: 10.00%")
}

func TestRubricHandlerRejectsMalformedJSON(t *testing.T) {
	h := NewRubricHandler(&rubricServiceMock{})
	c, w := newGinContext(http.MethodPost, "/courses/c1/rubric-items", []byte(`{"weight":`))
	h.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeEnvelope(t, w).Error.Code)
}

func TestRubricHandlerListIncludeInactive(t *testing.T) {
	svc := &rubricServiceMock{}
	h := NewRubricHandler(svc)
	c, w := newGinContext(http.MethodGet, "/courses/c1/rubric-items?include_inactive=true", nil)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	h.ListByCourse(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.inactiveArg)
}

func TestRubricHandlerUpdateAndDelete(t *testing.T) {
	svc := &rubricServiceMock{}
	h := NewRubricHandler(svc)

	c, w := newGinContext(http.MethodPut, "/rubric-items/r1", []byte(`{"active":false}`))
	c.Params = gin.Params{{Key: "id", Value: "r1"}}
	h.Update(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.updated.Active)
	assert.False(t, *svc.updated.Active)
	assert.Nil(t, svc.updated.Weight)

	svc.deleteErr = appErrors.Clone(appErrors.ErrNotFound, "rubric item not found")
	c, w = newGinContext(http.MethodDelete, "/rubric-items/nope", nil)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}
	h.Delete(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
