package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/naryn-heritage/heritage-backend/internal/config"
	"github.com/naryn-heritage/heritage-backend/internal/database"
	"github.com/naryn-heritage/heritage-backend/internal/handlers"
	"github.com/naryn-heritage/heritage-backend/internal/imaging"
	"github.com/naryn-heritage/heritage-backend/internal/logging"
	"github.com/naryn-heritage/heritage-backend/internal/middleware"
	"github.com/naryn-heritage/heritage-backend/internal/notify"
	"github.com/naryn-heritage/heritage-backend/internal/qr"
	"github.com/naryn-heritage/heritage-backend/internal/routes"
	"github.com/naryn-heritage/heritage-backend/internal/services"
	"github.com/naryn-heritage/heritage-backend/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Structured logging (JSON to stdout)
	level := logging.ParseLevel(cfg.LogLevel)
	logging.Setup(level)

	// Database
	db, err := database.Connect(cfg)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// ERROR+ records are also batched into system_logs
	dbLogHandler := logging.NewDBHandler(db, 5*time.Second)
	logging.Setup(level, dbLogHandler)

	cleanup, err := logging.ScheduleCleanup(db, cfg.LogCleanupCron, cfg.LogRetentionDays)
	if err != nil {
		slog.Error("log cleanup schedule failed", "error", err)
		os.Exit(1)
	}

	// Media storage
	media, err := storage.New(storage.Config{
		Backend: cfg.MediaBackend,
		Dir:     cfg.MediaDir,
		S3: storage.S3Config{
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Endpoint:        cfg.S3Endpoint,
			UsePathStyle:    cfg.S3UsePathStyle,
		},
	})
	if err != nil {
		slog.Error("media storage init failed", "backend", cfg.MediaBackend, "error", err)
		os.Exit(1)
	}
	slog.Info("media storage ready", "backend", cfg.MediaBackend)

	// Notifications
	var (
		notifier services.Notifier = notify.Discard{}
		queue    *notify.Queue
	)
	if cfg.MailEnabled() {
		sender, err := notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		if err != nil {
			slog.Error("smtp sender init failed", "error", err)
			os.Exit(1)
		}
		queue = notify.NewQueue(sender, cfg.MailQueueSize)
		notifier = queue
	} else {
		slog.Warn("SMTP_HOST not set, notifications are disabled")
	}

	// Services
	authService := services.NewAuthService(db, cfg, notifier)
	userService := services.NewUserService(db)
	moderationService := services.NewModerationService(db, notifier)
	contentService := services.NewContentService(db, media,
		imaging.NewCompressor(cfg.ImageMaxWidth, cfg.ImageMaxHeight, cfg.ImageQuality),
		services.UploadLimits{MaxImageBytes: cfg.MaxImageUploadSize, MaxVideoBytes: cfg.MaxVideoUploadSize})
	reportService := services.NewReportService(db)
	taxonomyService := services.NewTaxonomyService(db)
	qrService := services.NewQRCodeService(db, media, qr.NewRenderer(cfg.QRSize), cfg.BaseURL)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	fiberCfg := fiber.Config{
		BodyLimit:    cfg.BodyLimitMB * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	}
	if cfg.TrustedProxy != "" {
		fiberCfg.EnableTrustedProxyCheck = true
		fiberCfg.TrustedProxies = []string{cfg.TrustedProxy}
		fiberCfg.ProxyHeader = fiber.HeaderXForwardedFor
	}
	app := fiber.New(fiberCfg)

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:requestid}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	routes.Setup(app, cfg, db, routes.Handlers{
		Auth:       handlers.NewAuthHandler(authService),
		Health:     handlers.NewHealthHandler(db),
		Content:    handlers.NewContentHandler(contentService, moderationService),
		Moderation: handlers.NewModerationHandler(moderationService),
		Reports:    handlers.NewReportHandler(reportService),
		QRCodes:    handlers.NewQRCodeHandler(qrService),
		Taxonomy:   handlers.NewTaxonomyHandler(taxonomyService),
		Users:      handlers.NewUserHandler(userService),
		Media:      handlers.NewMediaHandler(media),
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	<-cleanup.Stop().Done()
	if queue != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := queue.Close(ctx); err != nil {
			slog.Warn("notification queue not drained", "error", err)
		}
		cancel()
	}
	dbLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
