package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/sma-academic-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]string
	assert.ErrorIs(t, repo.Get(ctx, "grading:course:c1:stats", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "grading:course:c1:stats", map[string]string{"a": "b"}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(ctx, "grading:course:c1:*"))
	assert.NoError(t, repo.Close())
}
