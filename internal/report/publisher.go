package report

import (
	"context"
	"fmt"

	"github.com/Wuchinator/astro-chat-analytics/internal/analytics"
	"github.com/Wuchinator/astro-chat-analytics/pkg/kafka"
	"go.uber.org/zap"
)

// Sender is the part of the Kafka producer the publisher needs.
type Sender interface {
	SendMessageBatch(ctx context.Context, messages []kafka.Message) error
}

// RowMessage is the JSON value of one published report row.
type RowMessage struct {
	RunID   string            `json:"run_id"`
	Profile string            `json:"profile"`
	ActorID string            `json:"_id"`
	Name    *string           `json:"name"`
	Type    *string           `json:"type"`
	Date    string            `json:"date"`
	Hour    int               `json:"hour"`
	Counts  map[string]*int64 `json:"counts"`
}

type Publisher struct {
	sender    Sender
	batchSize int
	logger    *zap.Logger
}

func NewPublisher(sender Sender, batchSize int, logger *zap.Logger) *Publisher {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Publisher{
		sender:    sender,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Publish sends one message per report row keyed by actor id, in report order.
func (p *Publisher) Publish(ctx context.Context, r *analytics.Report) error {
	runID := r.RunID.String()
	headers := map[string]string{"run_id": runID, "profile": r.Profile}

	batch := make([]kafka.Message, 0, p.batchSize)
	sent := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.sender.SendMessageBatch(ctx, batch); err != nil {
			return fmt.Errorf("failed to publish report rows: %w", err)
		}
		sent += len(batch)
		batch = batch[:0]
		return nil
	}

	for _, row := range r.Rows {
		counts := make(map[string]*int64, len(r.CountColumns))
		for j, col := range r.CountColumns {
			counts[col] = row.Counts[j]
		}
		batch = append(batch, kafka.Message{
			Key: row.ActorID,
			Value: RowMessage{
				RunID:   runID,
				Profile: r.Profile,
				ActorID: row.ActorID,
				Name:    optional(row.Name.Value, row.Name.Valid),
				Type:    optional(row.Type.Value, row.Type.Valid),
				Date:    row.Date.Format(analytics.DateLayout),
				Hour:    row.Hour,
				Counts:  counts,
			},
			Headers: headers,
		})
		if len(batch) == p.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	p.logger.Info("Report published",
		zap.String("run_id", runID),
		zap.Int("messages", sent),
	)
	return nil
}

func optional(v string, valid bool) *string {
	if !valid {
		return nil
	}
	return &v
}
