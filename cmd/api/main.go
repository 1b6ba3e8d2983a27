package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"recipe-recommender/internal/api"
	"recipe-recommender/internal/api/handlers/health"
	"recipe-recommender/internal/bootstrap"
	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/pkg/common"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	common.LogInfo("載入設定",
		zap.String("env", cfg.App.Env),
		zap.String("database_driver", cfg.Database.Driver),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
		zap.Bool("generator_enabled", cfg.OpenRouter.GeneratorEnabled()),
		zap.String("openrouter_model", cfg.OpenRouter.Model),
	)

	// 等待中斷信號
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = serve(ctx, cfg)
	stop()
	if err != nil {
		common.LogError("Server stopped with error", zap.Error(err))
		common.Sync()
		os.Exit(1)
	}
	common.Sync()
}

// serve 建立服務並持續運作，直到 ctx 結束或伺服器啟動失敗；返回前一定會釋放資源
func serve(ctx context.Context, cfg *config.Config) error {
	app, err := bootstrap.Build(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer app.Close()

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	app.Ingest.Start(ctx)
	if cfg.Ingest.SeedOnStart {
		go func() {
			report, err := app.Seeder.Seed(ctx)
			if err != nil {
				common.LogError("Seeding failed", zap.Error(err))
				return
			}
			common.LogInfo("Seeding finished",
				zap.Int("enqueued", report.Enqueued),
				zap.Int("skipped", report.Skipped),
			)
		}()
	} else {
		app.Seeder.MarkReady()
	}

	router := api.SetupRouter(cfg, api.Dependencies{
		Recipes: app.Recipes,
		Health: health.Checks{
			Version:    cfg.App.Version,
			Queue:      app.Ingest.GetQueueStatus,
			CacheStats: app.Recipes.CacheStats,
			Ready:      app.Seeder.Ready,
			Ping:       app.Ping,
		},
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.Int("port", cfg.Server.Port),
			zap.Bool("debug", cfg.App.Debug),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	common.LogInfo("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}

	common.LogInfo("Server exited")
	return nil
}
