package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/retail-analytics/internal/analytics"
	jobmetrics "github.com/odyssey-erp/retail-analytics/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ReportService builds (and caches) analytics reports.
type ReportService interface {
	Report(ctx context.Context, q analytics.Query) (analytics.Report, error)
	Today() time.Time
}

// ShopLister enumerates the shops to warm.
type ShopLister interface {
	ListShopIDs(ctx context.Context) ([]string, error)
}

// ReportWarmupJob pre-populates the report cache so the first dashboard view
// of the day does not pay for four collection scans.
type ReportWarmupJob struct {
	Reports ReportService
	Shops   ShopLister
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewReportWarmupJob wires dependencies for the warmup handler.
func NewReportWarmupJob(reports ReportService, shops ShopLister, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportWarmupJob {
	return &ReportWarmupJob{Reports: reports, Shops: shops, Logger: logger, Metrics: metrics}
}

// Handle processes report warmup tasks.
func (j *ReportWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("report warmup: handler not configured")
	}
	var payload ReportWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(TaskReportWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	shops, err := j.resolveShops(ctx, payload.ShopID)
	if err != nil {
		resultErr = err
		logger.Error("resolve shops", slog.Any("error", err))
		return resultErr
	}

	start := time.Now()
	today := j.Reports.Today()
	monthly, weekly := 0, 0
	for _, shop := range shops {
		for _, q := range warmupQueries(shop, today) {
			scopeCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
			_, err := j.Reports.Report(scopeCtx, q)
			cancel()
			if err != nil {
				resultErr = err
				logger.Error("warm report", slog.String("shop_id", shop), slog.String("month", q.Month), slog.Any("error", err))
				j.metrics().AddWarmed("month", monthly)
				j.metrics().AddWarmed("week", weekly)
				return resultErr
			}
			if q.Month != "" {
				monthly++
			} else {
				weekly++
			}
		}
	}

	j.metrics().AddWarmed("month", monthly)
	j.metrics().AddWarmed("week", weekly)
	logger.Info("completed report warmup", slog.Int("shops", len(shops)), slog.Int("reports", monthly+weekly), slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *ReportWarmupJob) resolveShops(ctx context.Context, shopID string) ([]string, error) {
	if shopID != "" {
		return []string{shopID}, nil
	}
	shops := []string{analytics.AllShops}
	if j.Shops == nil {
		return shops, nil
	}
	ids, err := j.Shops.ListShopIDs(ctx)
	if err != nil {
		return nil, err
	}
	return append(shops, ids...), nil
}

// warmupQueries returns the current-month view and the trailing-week view of
// a shop, the two reports the dashboard opens with.
func warmupQueries(shop string, today time.Time) []analytics.Query {
	return []analytics.Query{
		{
			ShopID: shop,
			Month:  today.Format("01"),
			Year:   strconv.Itoa(today.Year()),
		},
		{ShopID: shop},
	}
}

func (j *ReportWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportWarmup))
	}
	return slog.Default().With(slog.String("job", TaskReportWarmup))
}

func (j *ReportWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
