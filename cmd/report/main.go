package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"menuiserie-report/internal/common/config"
	"menuiserie-report/internal/common/logging"
	"menuiserie-report/internal/common/middleware"
	"menuiserie-report/internal/report/handlers"
	"menuiserie-report/internal/report/renderer"
	"menuiserie-report/internal/report/repository"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"go.uber.org/zap"
)

// ============================================================
// Report Service
// ============================================================

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	db, err := repository.OpenSQLite(cfg.ReportsDB)
	if err != nil {
		logger.Fatal("open db", zap.String("path", cfg.ReportsDB), zap.Error(err))
	}
	defer db.Close()

	repo := repository.New(db)
	if err := repo.Init(context.Background()); err != nil {
		logger.Fatal("init db", zap.Error(err))
	}

	reportRenderer := renderer.New(renderer.WithLogger(logger.Named("renderer")))
	reportHandler := handlers.NewReportHandler(reportRenderer, repo, logger)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		BodyLimit:    cfg.BodyLimitMB * 1024 * 1024,
		AppName:      "Report Service",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS(cfg.CORSOrigins))

	// ============================================================
	// Routes
	// ============================================================

	handlers.SetupRoutes(app, reportHandler, repo)

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	logger.Info("starting report service", zap.String("addr", addr), zap.String("env", cfg.Environment))

	if err := app.Listen(addr); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}
