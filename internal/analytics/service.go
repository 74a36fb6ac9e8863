package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/Wuchinator/astro-chat-analytics/internal/dataset"
	"github.com/Wuchinator/astro-chat-analytics/internal/flatten"
	"github.com/Wuchinator/astro-chat-analytics/internal/metrics"
	"github.com/Wuchinator/astro-chat-analytics/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Inputs are the tables of one run. Completed is only read by profiles with
// categories sourced from completed chats.
type Inputs struct {
	Events      *dataset.Table
	Completed   *dataset.Table
	Astrologers Directory
}

type Result struct {
	RunID     uuid.UUID
	Flattened *dataset.Table
	Report    *Report
}

type Service struct {
	flattener  *flatten.Flattener
	aggregator *Aggregator
	jsonColumn string
	logger     *zap.Logger
}

func NewService(jsonColumn string, policy TimestampPolicy, logger *zap.Logger) *Service {
	return &Service{
		flattener:  flatten.NewFlattener(logger),
		aggregator: NewAggregator(policy, logger),
		jsonColumn: jsonColumn,
		logger:     logger,
	}
}

// Run flattens the event log, aggregates every category of the profile, merges the
// slices and joins astrologer metadata.
func (s *Service) Run(ctx context.Context, profile Profile, in Inputs) (result *Result, err error) {
	runID := uuid.New()
	log := logger.WithRun(s.logger, runID.String())
	start := time.Now()
	defer func() {
		metrics.RecordPipelineRun(profile.Name, time.Since(start), err)
	}()

	if err := s.checkInputs(profile, in); err != nil {
		log.Warn("Run rejected", zap.String("profile", profile.Name), zap.Error(err))
		return nil, err
	}

	metrics.RecordInputRows(string(SourceEvents), in.Events.Len())
	if in.Completed != nil {
		metrics.RecordInputRows(string(SourceCompleted), in.Completed.Len())
	}

	flattened := in.Events
	if in.Events.HasColumn(s.jsonColumn) {
		res, err := s.flattener.Flatten(in.Events, s.jsonColumn)
		if err != nil {
			return nil, fmt.Errorf("failed to flatten events: %w", err)
		}
		metrics.RecordFlattenFailures(res.Failed)
		flattened = res.Table
	} else {
		log.Warn("JSON column not present, skipping flattening", zap.String("column", s.jsonColumn))
	}

	slices := make([]*Slice, 0, len(profile.Categories))
	for _, c := range profile.Categories {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		src := flattened
		if c.Source == SourceCompleted {
			src = in.Completed
		}

		slice, err := s.aggregator.Aggregate(src, c)
		if err != nil {
			log.Error("Failed to aggregate category", zap.String("category", c.Output), zap.Error(err))
			return nil, fmt.Errorf("failed to aggregate: %w", err)
		}
		metrics.RecordTimestampSkips(c.Output, slice.SkippedRows)
		slices = append(slices, slice)
	}

	merged := Merge(slices...)
	rows := Enrich(merged, in.Astrologers, profile)

	report := &Report{
		RunID:        runID,
		Profile:      profile.Name,
		Columns:      append([]string(nil), profile.Columns...),
		CountColumns: profile.CountColumns(),
		Rows:         rows,
		GeneratedAt:  time.Now().UTC(),
	}
	metrics.RecordReportRows(profile.Name, len(rows))

	log.Info("Hourly report built",
		zap.String("profile", profile.Name),
		zap.Int("event_rows", in.Events.Len()),
		zap.Int("report_rows", len(rows)),
		zap.Duration("duration", time.Since(start)),
	)

	return &Result{
		RunID:     runID,
		Flattened: flattened,
		Report:    report,
	}, nil
}

func (s *Service) checkInputs(profile Profile, in Inputs) error {
	if in.Events == nil {
		return fmt.Errorf("%w: event log", ErrMissingInput)
	}
	if in.Astrologers == nil {
		return fmt.Errorf("%w: astrologer data", ErrMissingInput)
	}
	if profile.NeedsCompleted() && in.Completed == nil {
		return fmt.Errorf("%w: completed chats log", ErrMissingInput)
	}
	return nil
}
