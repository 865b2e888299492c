package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/retail-analytics/internal/jobs"
)

// CacheBumper invalidates cached reports.
type CacheBumper interface {
	Bump(ctx context.Context) (int64, error)
}

// CacheBumpJob moves the report cache to a new version.
type CacheBumpJob struct {
	Cache   CacheBumper
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewCacheBumpJob wires the cache bump handler.
func NewCacheBumpJob(cache CacheBumper, logger *slog.Logger, metrics *jobmetrics.Metrics) *CacheBumpJob {
	return &CacheBumpJob{Cache: cache, Logger: logger, Metrics: metrics}
}

// Handle processes cache bump tasks.
func (j *CacheBumpJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Cache == nil {
		return errors.New("cache bump: handler not configured")
	}
	var payload CacheBumpPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskCacheBump)

	version, err := j.Cache.Bump(ctx)
	if err != nil {
		j.log().Error("bump report cache", slog.String("reason", payload.Reason), slog.Any("error", err))
		return tracker.End(err)
	}
	j.log().Info("report cache invalidated", slog.String("reason", payload.Reason), slog.Int64("version", version))
	return tracker.End(nil)
}

func (j *CacheBumpJob) log() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskCacheBump))
	}
	return slog.Default().With(slog.String("job", TaskCacheBump))
}
