package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportWarmup precomputes the current reports into the cache.
	TaskReportWarmup = "analytics:report-warmup"
	// TaskCacheBump invalidates every cached report.
	TaskCacheBump = "analytics:cache-bump"
)

// ReportWarmupPayload selects the shops to warm. An empty ShopID warms every
// shop plus the all-shops view.
type ReportWarmupPayload struct {
	ShopID string `json:"shop_id,omitempty"`
}

// CacheBumpPayload records why the cache was invalidated.
type CacheBumpPayload struct {
	Reason string `json:"reason,omitempty"`
}

// NewReportWarmupTask constructs a warmup task. Pass "all" to warm only the
// aggregated view.
func NewReportWarmupTask(shopID string) (*asynq.Task, error) {
	body, err := json.Marshal(ReportWarmupPayload{ShopID: shopID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportWarmup, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// NewCacheBumpTask constructs a cache invalidation task, typically enqueued
// after orders or expenses are written upstream.
func NewCacheBumpTask(reason string) (*asynq.Task, error) {
	body, err := json.Marshal(CacheBumpPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCacheBump, body, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}
