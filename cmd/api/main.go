package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"churchpay/internal/config"
	"churchpay/internal/database"
	"churchpay/internal/domain/donation"
	"churchpay/internal/domain/receipt"
	"churchpay/internal/middleware"
	jwtsvc "churchpay/internal/pkg/jwt"
	"churchpay/internal/pkg/logger"
	"churchpay/internal/pkg/payfast"
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
		lg.Fatal("database connect failed", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	models := append(donation.Models(), receipt.Models()...)
	if err := database.Migrate(db, models...); err != nil {
		lg.Fatal("migration failed", zap.Error(err))
	}

	j := jwtsvc.New(cfg.JWT.Secret, 24*time.Hour)

	txRepo := donation.NewRepository(db)
	auditRepo := donation.NewNotificationRepository(db)
	outbox := receipt.NewOutbox(db, lg)

	donationService := donation.NewService(txRepo, auditRepo, outbox, donation.Options{
		Gateway: payfast.Config{
			MerchantID:  cfg.PayFast.MerchantID,
			MerchantKey: cfg.PayFast.MerchantKey,
			Passphrase:  cfg.PayFast.Passphrase,
			Sandbox:     cfg.PayFast.Sandbox,
		},
		ReturnURL:      cfg.PayFast.ReturnURL,
		CancelURL:      cfg.PayFast.CancelURL,
		NotifyURL:      cfg.PayFast.NotifyURL,
		PlatformFeeBPS: cfg.PayFast.PlatformFeeBPS,
	}, lg)
	donationHandler := donation.NewHandler(donationService, lg)
	receiptHandler := receipt.NewHandler(outbox)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ErrorLogger(lg), middleware.CORS(cfg.CORS.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		// public
		donationHandler.RegisterPublicRoutes(v1)

		// protected
		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(j))
		{
			donationHandler.RegisterOperatorRoutes(protected)
			receiptHandler.RegisterRoutes(protected)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Notification.CleanupInterval > 0 {
		donation.NewCleanupService(auditRepo, lg).Schedule(ctx, cfg.Notification.CleanupInterval, cfg.Notification.Retention)
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		lg.Info("http server started",
			zap.String("addr", cfg.HTTP.Addr),
			zap.String("env", cfg.App.Env),
			zap.Bool("payfast_sandbox", cfg.PayFast.Sandbox),
			zap.String("merchant_id", payfast.MaskMerchantID(cfg.PayFast.MerchantID)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	lg.Info("shutdown signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Warn("shutdown timeout exceeded", zap.Error(err))
		return
	}
	lg.Info("shutdown completed successfully")
}
