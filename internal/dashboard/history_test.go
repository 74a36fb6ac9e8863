package dashboard

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestHistoryEvictsOldest(t *testing.T) {
	h := NewHistory(2)
	h.Add(&Entry{ID: "a"})
	h.Add(&Entry{ID: "b"})
	h.Add(&Entry{ID: "c"})

	if h.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", h.Len())
	}
	if _, err := h.Get("a"); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("oldest entry should be evicted, got %v", err)
	}

	list := h.List()
	if list[0].ID != "c" || list[1].ID != "b" {
		t.Errorf("expected newest first, got %s %s", list[0].ID, list[1].ID)
	}
}

func TestHistoryReplaceKeepsPosition(t *testing.T) {
	h := NewHistory(2)
	h.Add(&Entry{ID: "a", Title: "first"})
	h.Add(&Entry{ID: "a", Title: "second"})

	e, err := h.Get("a")
	if err != nil || e.Title != "second" || h.Len() != 1 {
		t.Errorf("unexpected replace result %+v %v len=%d", e, err, h.Len())
	}
}

func TestHistoryConcurrentAdds(t *testing.T) {
	h := NewHistory(10)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h.Add(&Entry{ID: fmt.Sprintf("run-%d", i)})
			_ = h.List()
		}(i)
	}
	wg.Wait()

	if h.Len() != 10 {
		t.Errorf("expected capacity to hold, got %d", h.Len())
	}
}
