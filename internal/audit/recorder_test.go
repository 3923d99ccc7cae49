package audit

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/scanpoint/scanpoint-core/internal/session"
)

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// record adds a minimal entry with a deterministic creation time so
// ordering assertions do not depend on clock resolution.
func record(r *Recorder, action, terminalID string, seq int) {
	r.Record(Entry{
		Action:     action,
		TerminalID: terminalID,
		Source:     "test",
		CreatedAt:  time.Date(2026, 3, 1, 9, 0, seq, 0, time.UTC),
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Recording
// ─────────────────────────────────────────────────────────────────────────────

func TestRecorder_Record_GeneratesIDAndTimestamp(t *testing.T) {
	r := NewRecorder(10)

	before := time.Now().UTC()
	r.Record(Entry{Action: "submit", Source: "test"})

	result := r.List(Filter{})
	if len(result.Entries) != 1 {
		t.Fatalf("List() returned %d entries, want 1", len(result.Entries))
	}

	e := result.Entries[0]
	if !strings.HasPrefix(e.ID, "aud-") {
		t.Errorf("generated ID = %q, want aud- prefix", e.ID)
	}
	if e.CreatedAt.Before(before) {
		t.Errorf("CreatedAt = %v, want >= %v", e.CreatedAt, before)
	}
}

func TestRecorder_Record_PreservesProvidedFields(t *testing.T) {
	r := NewRecorder(10)

	when := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	r.Record(Entry{
		ID:        "aud-fixed",
		Action:    "logout",
		Source:    "api",
		CreatedAt: when,
	})

	e := r.List(Filter{}).Entries[0]
	if e.ID != "aud-fixed" {
		t.Errorf("ID = %q, want aud-fixed", e.ID)
	}
	if !e.CreatedAt.Equal(when) {
		t.Errorf("CreatedAt = %v, want %v", e.CreatedAt, when)
	}
}

func TestRecorder_EvictsOldest(t *testing.T) {
	r := NewRecorder(3)

	for i := 0; i < 5; i++ {
		record(r, fmt.Sprintf("action-%d", i), "term-1", i)
	}

	result := r.List(Filter{})
	if result.Total != 3 {
		t.Fatalf("Total = %d, want 3 after eviction", result.Total)
	}

	// Newest first: action-4, action-3, action-2. The first two were evicted.
	want := []string{"action-4", "action-3", "action-2"}
	for i, w := range want {
		if result.Entries[i].Action != w {
			t.Errorf("Entries[%d].Action = %q, want %q", i, result.Entries[i].Action, w)
		}
	}

	stats := r.GetStats()
	if stats.Recorded != 5 {
		t.Errorf("Recorded = %d, want 5", stats.Recorded)
	}
	if stats.Retained != 3 {
		t.Errorf("Retained = %d, want 3", stats.Retained)
	}
}

func TestRecorder_ZeroCapacityUsesDefault(t *testing.T) {
	r := NewRecorder(0)
	if r.capacity != DefaultCapacity {
		t.Errorf("capacity = %d, want %d", r.capacity, DefaultCapacity)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Listing and filtering
// ─────────────────────────────────────────────────────────────────────────────

func TestRecorder_List_NewestFirst(t *testing.T) {
	r := NewRecorder(10)
	record(r, "first", "term-1", 0)
	record(r, "second", "term-1", 1)
	record(r, "third", "term-1", 2)

	result := r.List(Filter{})
	want := []string{"third", "second", "first"}
	for i, w := range want {
		if result.Entries[i].Action != w {
			t.Errorf("Entries[%d].Action = %q, want %q", i, result.Entries[i].Action, w)
		}
	}
}

func TestRecorder_List_FilterByAction(t *testing.T) {
	r := NewRecorder(10)
	record(r, "verify_accepted", "term-1", 0)
	record(r, "verify_rejected", "term-1", 1)
	record(r, "verify_accepted", "term-2", 2)

	result := r.List(Filter{Action: "verify_accepted"})
	if result.Total != 2 {
		t.Fatalf("Total = %d, want 2", result.Total)
	}
	for _, e := range result.Entries {
		if e.Action != "verify_accepted" {
			t.Errorf("entry action = %q, want verify_accepted", e.Action)
		}
	}
}

func TestRecorder_List_FilterByTerminal(t *testing.T) {
	r := NewRecorder(10)
	record(r, "submit", "term-1", 0)
	record(r, "submit", "term-2", 1)
	record(r, "logout", "term-2", 2)

	result := r.List(Filter{TerminalID: "term-2"})
	if result.Total != 2 {
		t.Fatalf("Total = %d, want 2", result.Total)
	}
	if result.Entries[0].Action != "logout" || result.Entries[1].Action != "submit" {
		t.Errorf("entries = [%s, %s], want [logout, submit]",
			result.Entries[0].Action, result.Entries[1].Action)
	}
}

func TestRecorder_List_CombinedFilters(t *testing.T) {
	r := NewRecorder(10)
	record(r, "submit", "term-1", 0)
	record(r, "submit", "term-2", 1)
	record(r, "logout", "term-1", 2)

	result := r.List(Filter{Action: "submit", TerminalID: "term-1"})
	if result.Total != 1 {
		t.Fatalf("Total = %d, want 1", result.Total)
	}
	if result.Entries[0].TerminalID != "term-1" {
		t.Errorf("TerminalID = %q, want term-1", result.Entries[0].TerminalID)
	}
}

func TestRecorder_List_Pagination(t *testing.T) {
	r := NewRecorder(20)
	for i := 0; i < 10; i++ {
		record(r, fmt.Sprintf("action-%d", i), "term-1", i)
	}

	page := r.List(Filter{Limit: 3, Offset: 3})
	if page.Total != 10 {
		t.Errorf("Total = %d, want 10", page.Total)
	}
	if len(page.Entries) != 3 {
		t.Fatalf("len(Entries) = %d, want 3", len(page.Entries))
	}
	// Newest first is action-9..action-0; offset 3 starts at action-6.
	want := []string{"action-6", "action-5", "action-4"}
	for i, w := range want {
		if page.Entries[i].Action != w {
			t.Errorf("Entries[%d].Action = %q, want %q", i, page.Entries[i].Action, w)
		}
	}
}

func TestRecorder_List_ClampsLimitAndOffset(t *testing.T) {
	r := NewRecorder(10)
	record(r, "submit", "term-1", 0)

	result := r.List(Filter{Limit: 500, Offset: -3})
	if result.Limit != 200 {
		t.Errorf("Limit = %d, want clamped to 200", result.Limit)
	}
	if result.Offset != 0 {
		t.Errorf("Offset = %d, want clamped to 0", result.Offset)
	}

	result = r.List(Filter{})
	if result.Limit != 50 {
		t.Errorf("default Limit = %d, want 50", result.Limit)
	}
}

func TestRecorder_List_OffsetBeyondTotal(t *testing.T) {
	r := NewRecorder(10)
	record(r, "submit", "term-1", 0)

	result := r.List(Filter{Offset: 10})
	if result.Total != 1 {
		t.Errorf("Total = %d, want 1", result.Total)
	}
	if len(result.Entries) != 0 {
		t.Errorf("len(Entries) = %d, want 0", len(result.Entries))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Stats and concurrency
// ─────────────────────────────────────────────────────────────────────────────

func TestRecorder_GetStats_CountsPerAction(t *testing.T) {
	r := NewRecorder(2)
	record(r, "submit", "term-1", 0)
	record(r, "submit", "term-1", 1)
	record(r, "logout", "term-1", 2)

	stats := r.GetStats()
	if stats.Actions["submit"] != 2 {
		t.Errorf("Actions[submit] = %d, want 2", stats.Actions["submit"])
	}
	if stats.Actions["logout"] != 1 {
		t.Errorf("Actions[logout] = %d, want 1", stats.Actions["logout"])
	}
	// Eviction trims the ring but not the per-action totals.
	if stats.Retained != 2 {
		t.Errorf("Retained = %d, want 2", stats.Retained)
	}
	if stats.Recorded != 3 {
		t.Errorf("Recorded = %d, want 3", stats.Recorded)
	}
}

func TestRecorder_ConcurrentRecord(t *testing.T) {
	r := NewRecorder(100)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				r.Record(Entry{Action: "submit", TerminalID: fmt.Sprintf("term-%d", n)})
			}
		}(i)
	}
	wg.Wait()

	stats := r.GetStats()
	if stats.Recorded != 200 {
		t.Errorf("Recorded = %d, want 200", stats.Recorded)
	}
	if stats.Retained != 100 {
		t.Errorf("Retained = %d, want 100", stats.Retained)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Session observer
// ─────────────────────────────────────────────────────────────────────────────

func TestObserver_RecordsTransitions(t *testing.T) {
	r := NewRecorder(10)
	o := NewObserver(r)

	state := session.State{
		ID:         "ses-1",
		TerminalID: "term-1",
		Code:       "QR123",
	}
	o.SessionChanged(state, session.EventCodeDetected)

	result := r.List(Filter{})
	if result.Total != 1 {
		t.Fatalf("Total = %d, want 1", result.Total)
	}

	e := result.Entries[0]
	if e.Action != session.EventCodeDetected {
		t.Errorf("Action = %q, want %q", e.Action, session.EventCodeDetected)
	}
	if e.TerminalID != "term-1" || e.SessionID != "ses-1" {
		t.Errorf("identity = (%q, %q), want (term-1, ses-1)", e.TerminalID, e.SessionID)
	}
	if e.Source != "session" {
		t.Errorf("Source = %q, want session", e.Source)
	}
	if e.Details["code"] != "QR123" {
		t.Errorf("Details[code] = %v, want QR123", e.Details["code"])
	}
}

func TestObserver_SkipsKeystrokes(t *testing.T) {
	r := NewRecorder(10)
	o := NewObserver(r)

	o.SessionChanged(session.State{ID: "ses-1"}, session.EventInputChanged)

	if got := r.List(Filter{}).Total; got != 0 {
		t.Errorf("Total = %d, want 0 after input_changed", got)
	}
}

func TestObserver_CapturesErrorDetail(t *testing.T) {
	r := NewRecorder(10)
	o := NewObserver(r)

	state := session.State{
		ID:         "ses-1",
		TerminalID: "term-1",
		Error:      "An error occurred: store offline",
	}
	o.SessionChanged(state, session.EventVerifyError)

	e := r.List(Filter{}).Entries[0]
	if e.Details["error"] != state.Error {
		t.Errorf("Details[error] = %v, want %q", e.Details["error"], state.Error)
	}
}

func TestObserver_CapturesImageRefOnImport(t *testing.T) {
	r := NewRecorder(10)
	o := NewObserver(r)

	state := session.State{
		ID:         "ses-1",
		TerminalID: "term-1",
		ImageRef:   "frame-042.png",
	}
	o.SessionChanged(state, session.EventImport)

	e := r.List(Filter{}).Entries[0]
	if e.Details["image_ref"] != "frame-042.png" {
		t.Errorf("Details[image_ref] = %v, want frame-042.png", e.Details["image_ref"])
	}
}
