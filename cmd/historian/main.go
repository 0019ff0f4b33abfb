// cmd/historian/main.go drains room actions from Redis into Postgres.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/heartboard/server/internal/cache"
	"github.com/heartboard/server/internal/config"
	"github.com/heartboard/server/internal/database"
	"github.com/heartboard/server/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger, err := cfg.Log.NewLogger()
	if err != nil {
		logrus.Fatalf("logger: %v", err)
	}
	if cfg.Database.URL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.DB)
	if err != nil {
		logger.Fatal(err)
	}
	defer rdb.Close()

	if err := database.Connect(ctx, cfg.Database.URL); err != nil {
		logger.Fatal(err)
	}
	defer database.Close()
	if err := database.Migrate(ctx); err != nil {
		logger.Fatal(err)
	}

	svc := historian.New(
		cache.NewActionQueue(rdb, cfg.Historian.QueueName),
		database.HistorySink{},
		historian.Config{
			BatchSize:     cfg.Historian.BatchSize,
			FlushInterval: cfg.Historian.FlushInterval,
			Inactivity:    cfg.Historian.Inactivity,
		},
		logger,
	)
	if err := svc.Run(ctx); err != nil {
		logger.Errorf("historian exited: %v", err)
	}
}
