package report

import (
	"context"
	"fmt"

	"github.com/Wuchinator/astro-chat-analytics/internal/analytics"
	"github.com/Wuchinator/astro-chat-analytics/pkg/objectstore"
	"go.uber.org/zap"
)

// Delivery writes a run's files to a store and optionally publishes its rows.
type Delivery struct {
	store     objectstore.Store
	publisher *Publisher
	logger    *zap.Logger
}

// Files holds the names a run is written under. An empty name skips that file.
type Files struct {
	Flattened string
	Final     string
}

func DefaultFiles() Files {
	return Files{Flattened: FlattenedFileName, Final: FinalFileName}
}

// RunFiles places both outputs under a per-run directory.
func RunFiles(runID string) Files {
	return Files{Flattened: runID + "/" + FlattenedFileName, Final: runID + "/" + FinalFileName}
}

// NewDelivery accepts a nil publisher when Kafka is disabled.
func NewDelivery(store objectstore.Store, publisher *Publisher, logger *zap.Logger) *Delivery {
	return &Delivery{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// Deliver returns the locations written, flattened file first.
func (d *Delivery) Deliver(ctx context.Context, result *analytics.Result, files Files) ([]string, error) {
	var locations []string

	if files.Flattened != "" {
		data, err := TableCSV(result.Flattened)
		if err != nil {
			return nil, err
		}
		loc, err := d.store.Save(ctx, files.Flattened, data)
		if err != nil {
			return nil, fmt.Errorf("failed to save flattened events: %w", err)
		}
		locations = append(locations, loc)
	}

	if files.Final != "" {
		data, err := CSV(result.Report)
		if err != nil {
			return nil, err
		}
		loc, err := d.store.Save(ctx, files.Final, data)
		if err != nil {
			return nil, fmt.Errorf("failed to save report: %w", err)
		}
		locations = append(locations, loc)
	}

	if d.publisher != nil {
		if err := d.publisher.Publish(ctx, result.Report); err != nil {
			return locations, err
		}
	}

	d.logger.Info("Report delivered",
		zap.String("run_id", result.RunID.String()),
		zap.Strings("locations", locations),
	)
	return locations, nil
}
