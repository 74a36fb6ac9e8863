package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Wuchinator/astro-chat-analytics/internal/analytics"
	"github.com/Wuchinator/astro-chat-analytics/internal/dataset"
	"github.com/Wuchinator/astro-chat-analytics/pkg/kafka"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func count(v int64) *int64 { return &v }

func date(s string) time.Time {
	d, err := time.Parse(analytics.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func sampleReport() *analytics.Report {
	return &analytics.Report{
		RunID:        uuid.MustParse("6f1c2a34-5b7d-4e8f-9a0b-1c2d3e4f5a6b"),
		Profile:      analytics.ProfileHourly,
		Columns:      []string{"_id", "name", "type", "date", "hour", "chat_intake_requests", "chat_completed"},
		CountColumns: []string{"chat_intake_requests", "chat_completed"},
		Rows: []analytics.ReportRow{
			{
				Bucket: analytics.Bucket{ActorID: "a1", Date: date("2024-03-01"), Hour: 10},
				Name:   dataset.String("Asha"),
				Type:   dataset.String("TAROT"),
				Counts: []*int64{count(2), nil},
			},
			{
				Bucket: analytics.Bucket{ActorID: "a1", Date: date("2024-03-01"), Hour: 9},
				Name:   dataset.String("Asha"),
				Type:   dataset.String("TAROT"),
				Counts: []*int64{nil, count(1)},
			},
			{
				Bucket: analytics.Bucket{ActorID: "zz", Date: date("2024-03-01"), Hour: 9},
				Name:   dataset.Null,
				Type:   dataset.Null,
				Counts: []*int64{count(1), count(3)},
			},
		},
	}
}

func TestCSV(t *testing.T) {
	data, err := CSV(sampleReport())
	if err != nil {
		t.Fatalf("CSV failed: %v", err)
	}
	want := "_id,name,type,date,hour,chat_intake_requests,chat_completed\n" +
		"a1,Asha,TAROT,2024-03-01,10,2,\n" +
		"a1,Asha,TAROT,2024-03-01,9,,1\n" +
		"zz,,,2024-03-01,9,1,3\n"
	if string(data) != want {
		t.Fatalf("unexpected csv:\n%s", data)
	}
}

func TestCharts(t *testing.T) {
	charts := Charts(sampleReport())
	if len(charts) != 2 {
		t.Fatalf("expected one chart per count column, got %d", len(charts))
	}

	intakes := charts[0]
	if intakes.Column != "chat_intake_requests" || intakes.Title != "Chat Intake Requests per Hour" {
		t.Errorf("unexpected chart %s %q", intakes.Column, intakes.Title)
	}
	if len(intakes.Series) != 2 || intakes.Series[0].Name != "Asha" || intakes.Series[1].Name != "zz" {
		t.Fatalf("expected lines for Asha and the unnamed actor id, got %+v", intakes.Series)
	}

	asha := intakes.Series[0].Points
	if len(asha) != 2 || asha[0].Hour != 9 || asha[1].Hour != 10 {
		t.Fatalf("points should be ordered by hour, got %+v", asha)
	}
	if asha[0].Value != nil {
		t.Errorf("missing count must stay a gap, got %d", *asha[0].Value)
	}
	if asha[1].Value == nil || *asha[1].Value != 2 {
		t.Errorf("expected 2 intakes at hour 10")
	}
}

type fakeSender struct {
	batches [][]kafka.Message
	err     error
}

func (f *fakeSender) SendMessageBatch(_ context.Context, messages []kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, append([]kafka.Message(nil), messages...))
	return nil
}

func TestPublisherBatchesRows(t *testing.T) {
	sender := &fakeSender{}
	p := NewPublisher(sender, 2, zap.NewNop())

	if err := p.Publish(context.Background(), sampleReport()); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if len(sender.batches) != 2 || len(sender.batches[0]) != 2 || len(sender.batches[1]) != 1 {
		t.Fatalf("unexpected batching %v", sender.batches)
	}

	first := sender.batches[0][0]
	if first.Key != "a1" || first.Headers["run_id"] != "6f1c2a34-5b7d-4e8f-9a0b-1c2d3e4f5a6b" {
		t.Errorf("unexpected message key %q headers %v", first.Key, first.Headers)
	}
	msg := first.Value.(RowMessage)
	if msg.Name == nil || *msg.Name != "Asha" || msg.Date != "2024-03-01" || msg.Hour != 10 {
		t.Errorf("unexpected row message %+v", msg)
	}
	if msg.Counts["chat_completed"] != nil || *msg.Counts["chat_intake_requests"] != 2 {
		t.Errorf("unexpected counts %+v", msg.Counts)
	}

	unnamed := sender.batches[1][0].Value.(RowMessage)
	if unnamed.Name != nil || unnamed.Type != nil {
		t.Errorf("null metadata must publish as null, got %+v", unnamed)
	}
}

func TestPublisherError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewPublisher(&fakeSender{err: boom}, 0, zap.NewNop())
	if err := p.Publish(context.Background(), sampleReport()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped broker error, got %v", err)
	}
}

type memoryStore map[string][]byte

func (m memoryStore) Save(_ context.Context, name string, data []byte) (string, error) {
	m[name] = data
	return "mem://" + name, nil
}

func TestDeliver(t *testing.T) {
	flattened, err := dataset.New("event_name", "platform")
	if err != nil {
		t.Fatalf("dataset.New failed: %v", err)
	}
	_ = flattened.AppendStrings("chat_intake_submit", "ios")

	result := &analytics.Result{RunID: uuid.New(), Flattened: flattened, Report: sampleReport()}
	store := memoryStore{}
	sender := &fakeSender{}

	locations, err := NewDelivery(store, NewPublisher(sender, 10, zap.NewNop()), zap.NewNop()).
		Deliver(context.Background(), result, DefaultFiles())
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	if len(locations) != 2 || locations[0] != "mem://combined_data_hour_wise.csv" || locations[1] != "mem://combined_data_final_hour_wise.csv" {
		t.Errorf("unexpected locations %v", locations)
	}
	if string(store[FlattenedFileName]) != "event_name,platform\nchat_intake_submit,ios\n" {
		t.Errorf("unexpected flattened csv %q", store[FlattenedFileName])
	}
	if len(sender.batches) != 1 || len(sender.batches[0]) != 3 {
		t.Errorf("expected all rows in one batch, got %v", sender.batches)
	}
}

func TestRunFiles(t *testing.T) {
	files := RunFiles("abc")
	if files.Final != "abc/combined_data_final_hour_wise.csv" || files.Flattened != "abc/combined_data_hour_wise.csv" {
		t.Errorf("unexpected files %+v", files)
	}
}
