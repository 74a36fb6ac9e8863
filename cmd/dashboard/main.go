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

	"github.com/Wuchinator/astro-chat-analytics/internal/analytics"
	"github.com/Wuchinator/astro-chat-analytics/internal/app"
	"github.com/Wuchinator/astro-chat-analytics/internal/config"
	"github.com/Wuchinator/astro-chat-analytics/internal/dashboard"
	"github.com/Wuchinator/astro-chat-analytics/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer log.Sync()

	log = logger.WithService(log, "dashboard")
	log.Info("Starting Dashboard",
		zap.String("environment", cfg.Environment),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("astro_source", cfg.AstroSource),
	)

	policy, err := analytics.ParseTimestampPolicy(cfg.Pipeline.TimestampPolicy)
	if err != nil {
		log.Fatal("Invalid timestamp policy", zap.Error(err))
	}

	profiles, err := app.Profiles(cfg)
	if err != nil {
		log.Fatal("Failed to load report profiles", zap.Error(err))
	}

	opts := dashboard.Options{
		Profiles:       profiles,
		DefaultProfile: cfg.Pipeline.Profile,
		MaxUploadBytes: cfg.Dashboard.MaxUploadBytes,
	}

	db, err := app.Postgres(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	if db != nil {
		defer db.Close()
		repo, err := app.AstrologerRepository(db, cfg, log)
		if err != nil {
			log.Fatal("Failed to create astrologer repository", zap.Error(err))
		}
		opts.Astrologers = repo
		opts.Health = db.HealthCheck
	}

	if cfg.Dashboard.SaveReports {
		delivery, closer, err := app.Delivery(context.Background(), cfg, log)
		defer closer.Close()
		if err != nil {
			log.Fatal("Failed to create report delivery", zap.Error(err))
		}
		opts.Delivery = delivery
	}

	service := analytics.NewService(cfg.Pipeline.JSONColumn, policy, log)
	handler, err := dashboard.NewHandler(service, dashboard.NewHistory(cfg.Dashboard.ReportHistory), opts, log)
	if err != nil {
		log.Fatal("Failed to create dashboard handler", zap.Error(err))
	}

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           dashboard.NewRouter(handler, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Warn("Shutdown timeout, forcing stop", zap.Error(err))
		_ = server.Close()
	} else {
		log.Info("Server stopped gracefully")
	}

	log.Info("Dashboard stopped")
}
