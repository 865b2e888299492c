package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/odyssey-erp/retail-analytics/cmd/retailctl/cli"
	"github.com/odyssey-erp/retail-analytics/internal/analytics"
	analyticsdb "github.com/odyssey-erp/retail-analytics/internal/analytics/db"
	"github.com/odyssey-erp/retail-analytics/internal/app"
	"github.com/odyssey-erp/retail-analytics/internal/platform/cache"
	"github.com/odyssey-erp/retail-analytics/internal/platform/db"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	env := &cli.Env{
		Reports: func(ctx context.Context) (cli.ReportService, func(), error) {
			pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: 4})
			if err != nil {
				return nil, nil, err
			}
			redisClient, err := cache.New(ctx, cfg.RedisAddr)
			var reportCache *analytics.Cache
			if err != nil {
				logger.Warn("redis unavailable, reports are not cached", slog.Any("error", err))
			} else {
				reportCache = analytics.NewCache(redisClient, cfg.ReportCacheTTL)
			}
			service := analytics.NewService(analyticsdb.New(pool), reportCache)
			service.WithLocation(cfg.Location())
			cleanup := func() {
				pool.Close()
				_ = redisClient.Close()
			}
			return service, cleanup, nil
		},
		Jobs: func() (*cli.JobsCLI, error) {
			return cli.NewJobsCLI(cfg.RedisAddr), nil
		},
	}

	if err := cli.NewRootCmd(env).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "retailctl:", err)
		os.Exit(1)
	}
}
