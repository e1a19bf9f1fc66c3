package service

import (
	"context"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-academic-api/pkg/errors"
	"github.com/noah-isme/sma-academic-api/pkg/jobs"
)

const jobTypeCourseStatistics = "course_statistics"

// StatsWarmer recomputes course statistics in the background after the cache for a course
// was invalidated, so the next read is served from cache.
type StatsWarmer struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewStatsWarmer builds a warmer that refreshes entries through stats.
func NewStatsWarmer(stats courseStatisticsProvider, logger *zap.Logger) *StatsWarmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := func(ctx context.Context, job jobs.Job) error {
		_, _, err := stats.CourseStatistics(ctx, job.Key)
		if appErr := appErrors.FromError(err); appErr != nil && appErr.Code == appErrors.ErrNotFound.Code {
			return nil
		}
		return err
	}
	return &StatsWarmer{
		queue:  jobs.NewQueue("stats-warmer", handler, jobs.QueueConfig{Workers: 1, MaxRetries: 2, Logger: logger}),
		logger: logger,
	}
}

// Start launches the worker.
func (w *StatsWarmer) Start(ctx context.Context) {
	w.queue.Start(ctx)
}

// Stop waits for the running job to finish.
func (w *StatsWarmer) Stop() {
	w.queue.Stop()
}

// Warm schedules a refresh of courseID. Repeated calls before the refresh starts are merged.
func (w *StatsWarmer) Warm(courseID string) {
	if w == nil || courseID == "" {
		return
	}
	if _, err := w.queue.Enqueue(jobs.Job{Key: courseID, Type: jobTypeCourseStatistics}); err != nil {
		w.logger.Warn("statistics refresh not scheduled", zap.String("course_id", courseID), zap.Error(err))
	}
}
