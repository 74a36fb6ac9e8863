package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Wuchinator/astro-chat-analytics/internal/analytics"
	"github.com/Wuchinator/astro-chat-analytics/internal/app"
	"github.com/Wuchinator/astro-chat-analytics/internal/astrologer"
	"github.com/Wuchinator/astro-chat-analytics/internal/config"
	"github.com/Wuchinator/astro-chat-analytics/internal/dataset"
	"github.com/Wuchinator/astro-chat-analytics/internal/report"
	"github.com/Wuchinator/astro-chat-analytics/pkg/logger"
	"go.uber.org/zap"
)

const (
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(exitUsage)
	}

	flag.StringVar(&cfg.Pipeline.RawDataFile, "raw", cfg.Pipeline.RawDataFile, "path of the raw event log csv")
	flag.StringVar(&cfg.Pipeline.CompletedDataFile, "completed", cfg.Pipeline.CompletedDataFile, "path of the completed chats csv")
	flag.StringVar(&cfg.Pipeline.AstroDataFile, "astro", cfg.Pipeline.AstroDataFile, "path of the astrologer metadata csv")
	flag.StringVar(&cfg.Pipeline.Profile, "profile", cfg.Pipeline.Profile, "report profile")
	flag.StringVar(&cfg.Pipeline.ReportOutputDir, "out", cfg.Pipeline.ReportOutputDir, "output directory")
	flag.StringVar(&cfg.Pipeline.TimestampPolicy, "timestamps", cfg.Pipeline.TimestampPolicy, "invalid timestamp policy: fail or skip")
	flag.Parse()

	log, err := logger.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer log.Sync()
	log = logger.WithService(log, "hourly-report")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Hourly report failed", zap.Error(err))
		if errors.Is(err, analytics.ErrMissingInput) || errors.Is(err, analytics.ErrUnknownProfile) {
			os.Exit(exitUsage)
		}
		os.Exit(exitFailure)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	policy, err := analytics.ParseTimestampPolicy(cfg.Pipeline.TimestampPolicy)
	if err != nil {
		return err
	}

	profiles, err := app.Profiles(cfg)
	if err != nil {
		return err
	}
	profile, err := profiles.Get(cfg.Pipeline.Profile)
	if err != nil {
		return err
	}

	log.Info("Starting hourly report",
		zap.String("profile", profile.Name),
		zap.String("raw", cfg.Pipeline.RawDataFile),
		zap.String("astro_source", cfg.AstroSource),
	)

	var in analytics.Inputs
	if in.Events, err = readTable(cfg.Pipeline.RawDataFile); err != nil {
		return err
	}
	if profile.NeedsCompleted() {
		if in.Completed, err = readTable(cfg.Pipeline.CompletedDataFile); err != nil {
			return err
		}
	}
	if in.Astrologers, err = loadDirectory(ctx, cfg, log); err != nil {
		return err
	}

	svc := analytics.NewService(cfg.Pipeline.JSONColumn, policy, log)
	result, err := svc.Run(ctx, profile, in)
	if err != nil {
		return err
	}

	delivery, closer, err := app.Delivery(ctx, cfg, log)
	defer closer.Close()
	if err != nil {
		return err
	}

	locations, err := delivery.Deliver(ctx, result, report.Files{
		Flattened: cfg.Pipeline.FlattenedOutputFile,
		Final:     cfg.Pipeline.ReportOutputFile,
	})
	if err != nil {
		return err
	}

	for _, loc := range locations {
		fmt.Println(loc)
	}
	return nil
}

func loadDirectory(ctx context.Context, cfg *config.Config, log *zap.Logger) (*astrologer.Directory, error) {
	db, err := app.Postgres(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	var list []astrologer.Astrologer
	if db != nil {
		defer db.Close()
		repo, err := app.AstrologerRepository(db, cfg, log)
		if err != nil {
			return nil, err
		}
		if list, err = repo.List(ctx); err != nil {
			return nil, err
		}
	} else {
		table, err := readTable(cfg.Pipeline.AstroDataFile)
		if err != nil {
			return nil, err
		}
		if list, err = astrologer.FromTable(table); err != nil {
			return nil, err
		}
	}
	return astrologer.NewDirectory(list, log), nil
}

func readTable(path string) (*dataset.Table, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no path given", analytics.ErrMissingInput)
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", analytics.ErrMissingInput, path)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := dataset.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
