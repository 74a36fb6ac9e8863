// Package app wires configuration into the stores, sinks and metadata sources
// shared by the command line report and the dashboard.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/Wuchinator/astro-chat-analytics/internal/analytics"
	"github.com/Wuchinator/astro-chat-analytics/internal/astrologer"
	"github.com/Wuchinator/astro-chat-analytics/internal/config"
	"github.com/Wuchinator/astro-chat-analytics/internal/report"
	"github.com/Wuchinator/astro-chat-analytics/pkg/kafka"
	"github.com/Wuchinator/astro-chat-analytics/pkg/objectstore"
	"github.com/Wuchinator/astro-chat-analytics/pkg/postgres"
	"go.uber.org/zap"
)

// Closer releases everything opened by the wiring helpers.
type Closer []func() error

func (c Closer) Close() {
	for i := len(c) - 1; i >= 0; i-- {
		_ = c[i]()
	}
}

// Profiles returns the built-in profiles, extended by PROFILE_FILE when set.
func Profiles(cfg *config.Config) (*analytics.Profiles, error) {
	if cfg.Pipeline.ProfileFile == "" {
		return analytics.NewProfiles(analytics.DefaultProfiles()...)
	}
	f, err := os.Open(cfg.Pipeline.ProfileFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile file: %w", err)
	}
	defer f.Close()
	return analytics.LoadProfiles(f)
}

// Postgres opens the metadata database when ASTRO_SOURCE=postgres and returns nil otherwise.
func Postgres(ctx context.Context, cfg *config.Config, log *zap.Logger) (*postgres.DB, error) {
	if cfg.AstroSource != config.AstroSourcePostgres {
		return nil, nil
	}
	return postgres.New(ctx, postgres.Config{
		DSN:             cfg.Postgres.PostgresDSN(),
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	}, log)
}

func AstrologerRepository(db *postgres.DB, cfg *config.Config, log *zap.Logger) (astrologer.Repository, error) {
	return astrologer.NewRepository(db.DB, cfg.Postgres.AstrologerTable, log)
}

// Delivery builds the report sink: a local directory, an S3 bucket when configured,
// and a Kafka publisher when enabled.
func Delivery(ctx context.Context, cfg *config.Config, log *zap.Logger) (*report.Delivery, Closer, error) {
	var closer Closer

	local, err := objectstore.NewLocalStore(cfg.Pipeline.ReportOutputDir)
	if err != nil {
		return nil, closer, err
	}
	stores := objectstore.Multi{local}

	if cfg.S3.Enabled() {
		s3Store, err := objectstore.NewS3Store(ctx, objectstore.S3Config{
			Bucket:       cfg.S3.Bucket,
			Region:       cfg.S3.Region,
			Endpoint:     cfg.S3.Endpoint,
			Prefix:       cfg.S3.Prefix,
			UsePathStyle: cfg.S3.UsePathStyle,
		}, log)
		if err != nil {
			return nil, closer, err
		}
		stores = append(stores, s3Store)
	}

	var publisher *report.Publisher
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:          cfg.Kafka.Brokers,
			Topic:            cfg.Kafka.Topic,
			Retries:          cfg.Kafka.ProducerRetries,
			Timeout:          cfg.Kafka.ProducerTimeout,
			RequiredAcks:     cfg.Kafka.RequiredAcks,
			Compression:      cfg.Kafka.CompressionType,
			IdempotentWrites: cfg.Kafka.IdempotentWrites,
			MaxMessageBytes:  cfg.Kafka.MaxMessageBytes,
		}, log)
		if err != nil {
			return nil, closer, err
		}
		closer = append(closer, producer.Close)
		publisher = report.NewPublisher(producer, 0, log)
	}

	return report.NewDelivery(stores, publisher, log), closer, nil
}
