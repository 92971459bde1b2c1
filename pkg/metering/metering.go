// Package metering aggregates per-route relay outcomes for the /stats
// endpoint.
package metering

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Outcome classifies what happened to one relayed event.
type Outcome string

const (
	Received  Outcome = "received"
	Relayed   Outcome = "relayed"
	Moderated Outcome = "moderated"
	Dropped   Outcome = "dropped"
	Failed    Outcome = "failed"
)

// Event is one observation for a route.
type Event struct {
	Outcome   Outcome
	Latency   time.Duration
	Timestamp time.Time
}

// RouteMeter tracks usage of one relay direction.
type RouteMeter struct {
	Route        string    `json:"route"`
	Received     int64     `json:"received"`
	Relayed      int64     `json:"relayed"`
	Moderated    int64     `json:"moderated"`
	Dropped      int64     `json:"dropped"`
	Failed       int64     `json:"failed"`
	TotalLatency float64   `json:"total_latency_ms"`
	LastActivity time.Time `json:"last_activity"`
}

// AverageLatency is the mean end-to-end latency of relayed messages in
// milliseconds.
func (m RouteMeter) AverageLatency() float64 {
	if m.Relayed == 0 {
		return 0
	}
	return m.TotalLatency / float64(m.Relayed)
}

// MeterStore is safe for concurrent use. A nil store ignores records.
type MeterStore struct {
	mu     sync.RWMutex
	meters map[string]*RouteMeter
}

func NewMeterStore() *MeterStore {
	return &MeterStore{
		meters: make(map[string]*RouteMeter),
	}
}

// Record adds an event to the meter of route.
func (s *MeterStore) Record(route string, event Event) {
	if s == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	meter, ok := s.meters[route]
	if !ok {
		meter = &RouteMeter{Route: route}
		s.meters[route] = meter
	}

	switch event.Outcome {
	case Received:
		meter.Received++
	case Relayed:
		meter.Relayed++
		meter.TotalLatency += float64(event.Latency) / float64(time.Millisecond)
	case Moderated:
		meter.Moderated++
	case Dropped:
		meter.Dropped++
	case Failed:
		meter.Failed++
	}
	meter.LastActivity = event.Timestamp
}

// GetRouteMeter returns a copy of the meter for route.
func (s *MeterStore) GetRouteMeter(route string) (RouteMeter, bool) {
	if s == nil {
		return RouteMeter{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meters[route]
	if !ok {
		return RouteMeter{}, false
	}
	return *m, true
}

// Snapshot returns copies of all meters sorted by route.
func (s *MeterStore) Snapshot() []RouteMeter {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	result := make([]RouteMeter, 0, len(s.meters))
	for _, m := range s.meters {
		result = append(result, *m)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].Route < result[j].Route })
	return result
}

// Handler serves the snapshot as JSON.
func (s *MeterStore) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		routes := s.Snapshot()
		if routes == nil {
			routes = []RouteMeter{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"routes": routes})
	})
}
