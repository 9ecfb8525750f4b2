package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"churchpay/internal/config"
	"churchpay/internal/database"
	"churchpay/internal/domain/donation"
	"churchpay/internal/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	db, err := database.Connect(cfg.Database.URL, lg)
	if err != nil {
		lg.Fatal("db connect failed", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	cleanup := donation.NewCleanupService(donation.NewNotificationRepository(db), lg)
	if _, err := cleanup.Run(context.Background(), cfg.Notification.Retention); err != nil {
		lg.Fatal("notification cleanup failed", zap.Error(err))
	}
}
