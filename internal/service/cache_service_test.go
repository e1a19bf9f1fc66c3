package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/sma-academic-api/pkg/errors"
)

type memoryCache struct {
	entries map[string][]byte
	getErr  error
	deleted []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
			m.deleted = append(m.deleted, key)
		}
	}
	return nil
}

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := newMemoryCache()
	svc := NewCacheService(repo, NewMetricsService(), time.Minute, nil, true)
	ctx := context.Background()

	var out map[string]int
	assert.False(t, svc.Get(ctx, "grading:course:c1:stats", &out))

	svc.Set(ctx, "grading:course:c1:stats", map[string]int{"total": 3})
	assert.True(t, svc.Get(ctx, "grading:course:c1:stats", &out))
	assert.Equal(t, 3, out["total"])

	svc.InvalidateCourse(ctx, "c1")
	assert.Equal(t, []string{"grading:course:c1:stats"}, repo.deleted)
	assert.False(t, svc.Get(ctx, "grading:course:c1:stats", &out))
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCache()
	svc := NewCacheService(repo, nil, 0, nil, false)
	svc.Set(context.Background(), "k", 1)
	assert.Empty(t, repo.entries)
	var out int
	assert.False(t, svc.Get(context.Background(), "k", &out))
}

func TestCacheServiceErrorsAreMisses(t *testing.T) {
	repo := newMemoryCache()
	repo.getErr = errors.New("connection refused")
	svc := NewCacheService(repo, nil, 0, nil, true)
	var out int
	assert.False(t, svc.Get(context.Background(), "k", &out))
}

func TestCacheServiceInvalidationHook(t *testing.T) {
	svc := NewCacheService(newMemoryCache(), nil, time.Minute, nil, true)
	var invalidated []string
	svc.OnInvalidate(func(courseID string) { invalidated = append(invalidated, courseID) })

	svc.InvalidateCourse(context.Background(), "c1")
	svc.InvalidateCourse(context.Background(), "")

	assert.Equal(t, []string{"c1"}, invalidated)
}
