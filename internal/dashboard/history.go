package dashboard

import (
	"sync"
	"time"

	"github.com/Wuchinator/astro-chat-analytics/internal/analytics"
	"github.com/Wuchinator/astro-chat-analytics/internal/report"
)

// Entry is a finished run kept for preview and download.
type Entry struct {
	ID        string
	Title     string
	Result    *analytics.Result
	CSV       []byte
	Charts    []report.Chart
	Locations []string
	CreatedAt time.Time
}

// History keeps the most recent finished runs. It is the only state shared
// between requests.
type History struct {
	mu       sync.RWMutex
	capacity int
	order    []string
	entries  map[string]*Entry
}

func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{
		capacity: capacity,
		entries:  make(map[string]*Entry, capacity),
	}
}

// Add stores e and evicts the oldest entry once capacity is exceeded.
func (h *History) Add(e *Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.entries[e.ID]; !exists {
		h.order = append(h.order, e.ID)
	}
	h.entries[e.ID] = e

	for len(h.order) > h.capacity {
		oldest := h.order[0]
		h.order = h.order[1:]
		delete(h.entries, oldest)
	}
}

func (h *History) Get(id string) (*Entry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	e, ok := h.entries[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	return e, nil
}

// List returns the entries newest first.
func (h *History) List() []*Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*Entry, 0, len(h.order))
	for i := len(h.order) - 1; i >= 0; i-- {
		out = append(out, h.entries[h.order[i]])
	}
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.order)
}
