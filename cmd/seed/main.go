// seed 一次性從 TheMealDB 匯入所有分類的食譜
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"recipe-recommender/internal/bootstrap"
	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/pkg/common"
)

func main() {
	timeout := flag.Duration("timeout", 30*time.Minute, "overall seeding deadline")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	err = run(cfg, *timeout)
	if err != nil {
		common.LogError("Seeding failed", zap.Error(err))
	}
	common.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, timeout time.Duration) error {
	app, err := bootstrap.Build(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
	defer cancelTimeout()

	app.Ingest.Start(ctx)
	report, err := app.Seeder.Seed(ctx)
	if err != nil {
		return err
	}

	total, err := app.Store.Count(ctx)
	if err != nil {
		common.LogWarn("Failed to count recipes", zap.Error(err))
	}
	status := app.Ingest.GetQueueStatus()
	common.LogInfo("Seeding finished",
		zap.Int("categories", report.Categories),
		zap.Int("enqueued", report.Enqueued),
		zap.Int("skipped", report.Skipped),
		zap.Int64("failed", status.Failed),
		zap.Int64("total_recipes", total),
	)
	return nil
}
