package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-academic-api/pkg/cache"
	appErrors "github.com/noah-isme/sma-academic-api/pkg/errors"
	"github.com/noah-isme/sma-academic-api/pkg/logger"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService fronts the course statistics cache and records its metrics.
// Cache failures never fail the calling request; they are logged and treated as misses.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool

	onInvalidate func(courseID string)
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) bool {
	if !s.Enabled() {
		return false
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		logger.WithContext(ctx, s.logger).Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}
	return err == nil
}

// Set stores the value using the default TTL.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) {
	if !s.Enabled() {
		return
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, s.defaultTTL)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		logger.WithContext(ctx, s.logger).Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateCourse drops every cached payload derived from a course.
func (s *CacheService) InvalidateCourse(ctx context.Context, courseID string) {
	if !s.Enabled() || courseID == "" {
		return
	}
	pattern := cache.CoursePattern(courseID)
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		logger.WithContext(ctx, s.logger).Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return
	}
	if s.onInvalidate != nil {
		s.onInvalidate(courseID)
	}
}

// OnInvalidate registers fn to run after a course's entries were dropped.
func (s *CacheService) OnInvalidate(fn func(courseID string)) {
	s.onInvalidate = fn
}
