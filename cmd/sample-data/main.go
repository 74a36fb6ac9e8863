package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/Wuchinator/astro-chat-analytics/internal/dataset"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

var rawColumns = []string{
	"event_name", "astrologerId", "userId", "user_id", "clientId",
	"status", "type", "paid", "createdAt", "event_time", "other_data",
}

var completedColumns = []string{"astrologerId", "userId", "status", "type", "createdAt"}

var (
	astroTypes = []string{"TAROT", "VEDIC", "NUMEROLOGY"}
	platforms  = []string{"android", "ios", "web"}
	statuses   = []string{"COMPLETED", "COMPLETED", "COMPLETED", "CANCELLED", "REJECTED"}
)

type generator struct {
	rnd         *rand.Rand
	day         time.Time
	astrologers []string
	users       []string
}

func main() {
	out := flag.String("out", ".", "output directory")
	astrologers := flag.Int("astrologers", 8, "number of astrologers")
	users := flag.Int("users", 120, "number of users")
	sessions := flag.Int("sessions", 400, "number of chat sessions")
	day := flag.String("day", "2024-03-01", "day of the generated events (YYYY-MM-DD)")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	if *astrologers < 1 || *users < 1 {
		log.Fatal("Need at least one astrologer and one user")
	}
	start, err := time.Parse("2006-01-02", *day)
	if err != nil {
		log.Fatalf("Invalid day: %v", err)
	}

	g := &generator{rnd: rand.New(rand.NewSource(*seed)), day: start}
	for i := 0; i < *astrologers; i++ {
		g.astrologers = append(g.astrologers, uuid.NewString())
	}
	for i := 0; i < *users; i++ {
		g.users = append(g.users, uuid.NewString())
	}

	raw, completed, err := g.sessions(*sessions)
	if err != nil {
		log.Fatalf("Failed to generate sessions: %v", err)
	}
	astro, err := g.astroTable()
	if err != nil {
		log.Fatalf("Failed to generate astrologers: %v", err)
	}

	if err := os.MkdirAll(*out, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}
	for name, t := range map[string]*dataset.Table{
		"raw_data.csv":            raw,
		"chat_completed_data.csv": completed,
		"astro_type.csv":          astro,
	} {
		path := filepath.Join(*out, name)
		if err := write(path, t); err != nil {
			log.Fatalf("Failed to write %s: %v", path, err)
		}
		fmt.Printf("%s: %d rows\n", path, t.Len())
	}
}

// sessions simulates intake, accept and completion events. Roughly a third of the
// intakes are never accepted and every twentieth payload is malformed.
func (g *generator) sessions(n int) (*dataset.Table, *dataset.Table, error) {
	raw, err := dataset.New(rawColumns...)
	if err != nil {
		return nil, nil, err
	}
	completed, err := dataset.New(completedColumns...)
	if err != nil {
		return nil, nil, err
	}

	for i := 0; i < n; i++ {
		astro := g.astrologers[g.rnd.Intn(len(g.astrologers))]
		user := g.users[g.rnd.Intn(len(g.users))]
		at := g.day.Add(time.Duration(g.rnd.Intn(24*60)) * time.Minute)
		paid := "0"
		chatType := "FREE"
		if g.rnd.Intn(3) == 0 {
			paid, chatType = "1", "PAID"
		}

		payload := g.payload(i)
		ts := at.UTC().Format(time.RFC3339)
		if err := raw.AppendRow(cells("chat_intake_submit", astro, user, user, "", "", "", paid, ts, ts, payload)); err != nil {
			return nil, nil, err
		}
		if g.rnd.Intn(3) == 0 {
			continue
		}

		accepted := at.Add(time.Duration(1+g.rnd.Intn(5)) * time.Minute).UTC().Format(time.RFC3339)
		if err := raw.AppendRow(cells("accept_chat", "", "", astro, user, "", "", paid, accepted, accepted, "")); err != nil {
			return nil, nil, err
		}

		status := statuses[g.rnd.Intn(len(statuses))]
		done := at.Add(time.Duration(10+g.rnd.Intn(40)) * time.Minute).UTC().Format(time.RFC3339)
		if err := raw.AppendRow(cells("", astro, user, "", "", status, chatType, paid, done, "", "")); err != nil {
			return nil, nil, err
		}
		if err := completed.AppendRow(cells(astro, user, status, chatType, done)); err != nil {
			return nil, nil, err
		}
	}
	return raw, completed, nil
}

func (g *generator) payload(i int) string {
	if i%20 == 19 {
		return "{not json"
	}
	if g.rnd.Intn(4) == 0 {
		return ""
	}
	data, _ := json.Marshal(map[string]any{
		"platform": platforms[g.rnd.Intn(len(platforms))],
		"session":  uuid.NewString(),
		"app": map[string]any{
			"version": fmt.Sprintf("4.%d.%d", g.rnd.Intn(5), g.rnd.Intn(10)),
		},
	})
	return string(data)
}

func (g *generator) astroTable() (*dataset.Table, error) {
	t, err := dataset.New("_id", "name", "type", "languages")
	if err != nil {
		return nil, err
	}
	// the last astrologer has no metadata so the report shows null name and type
	for i, id := range g.astrologers[:len(g.astrologers)-1] {
		if err := t.AppendStrings(id, fmt.Sprintf("Astrologer %d", i+1), astroTypes[i%len(astroTypes)], "en,hi"); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func cells(values ...string) []dataset.Cell {
	out := make([]dataset.Cell, len(values))
	for i, v := range values {
		if v != "" {
			out[i] = dataset.String(v)
		}
	}
	return out
}

func write(path string, t *dataset.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := dataset.WriteCSV(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
