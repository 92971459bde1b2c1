package metering

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestMeterStore_Record(t *testing.T) {
	store := NewMeterStore()
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	store.Record("C1->C2", Event{Outcome: Received})
	store.Record("C1->C2", Event{Outcome: Relayed, Latency: 200 * time.Millisecond})
	store.Record("C1->C2", Event{Outcome: Received})
	store.Record("C1->C2", Event{Outcome: Relayed, Latency: 400 * time.Millisecond, Timestamp: ts})
	store.Record("C2->C1", Event{Outcome: Moderated})
	store.Record("C2->C1", Event{Outcome: Failed})
	store.Record("C2->C1", Event{Outcome: Dropped})

	m, ok := store.GetRouteMeter("C1->C2")
	if !ok {
		t.Fatal("expected meter for C1->C2")
	}
	if m.Received != 2 || m.Relayed != 2 {
		t.Errorf("received/relayed: got %d/%d, want 2/2", m.Received, m.Relayed)
	}
	if m.AverageLatency() != 300 {
		t.Errorf("average latency: got %v, want 300", m.AverageLatency())
	}
	if !m.LastActivity.Equal(ts) {
		t.Errorf("last activity: got %v, want %v", m.LastActivity, ts)
	}

	other, _ := store.GetRouteMeter("C2->C1")
	if other.Moderated != 1 || other.Failed != 1 || other.Dropped != 1 {
		t.Errorf("unexpected counters: %+v", other)
	}

	if _, ok := store.GetRouteMeter("C9->C8"); ok {
		t.Error("expected no meter for unknown route")
	}
}

func TestMeterStore_GetReturnsCopy(t *testing.T) {
	store := NewMeterStore()
	store.Record("r", Event{Outcome: Received})
	m, _ := store.GetRouteMeter("r")
	m.Received = 99
	again, _ := store.GetRouteMeter("r")
	if again.Received != 1 {
		t.Errorf("store mutated through copy: %d", again.Received)
	}
}

func TestMeterStore_NilIsNoop(t *testing.T) {
	var store *MeterStore
	store.Record("r", Event{Outcome: Relayed})
	if got := store.Snapshot(); got != nil {
		t.Errorf("nil snapshot: got %v", got)
	}
	if _, ok := store.GetRouteMeter("r"); ok {
		t.Error("nil store should report no meter")
	}
}

func TestMeterStore_Concurrent(t *testing.T) {
	store := NewMeterStore()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Record("r", Event{Outcome: Relayed, Latency: time.Millisecond})
		}()
	}
	wg.Wait()
	m, _ := store.GetRouteMeter("r")
	if m.Relayed != 50 {
		t.Errorf("relayed: got %d, want 50", m.Relayed)
	}
}

func TestHandler(t *testing.T) {
	store := NewMeterStore()
	store.Record("b", Event{Outcome: Relayed})
	store.Record("a", Event{Outcome: Dropped})

	w := httptest.NewRecorder()
	store.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}

	var body struct {
		Routes []RouteMeter `json:"routes"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Routes) != 2 || body.Routes[0].Route != "a" || body.Routes[1].Relayed != 1 {
		t.Errorf("unexpected body: %+v", body.Routes)
	}
}

func TestHandler_Empty(t *testing.T) {
	w := httptest.NewRecorder()
	NewMeterStore().Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
	if got := w.Body.String(); got != "{\"routes\":[]}\n" {
		t.Errorf("body: got %q", got)
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	w := httptest.NewRecorder()
	NewMeterStore().Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/stats", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}
