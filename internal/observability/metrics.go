package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for the HTTP layer and the
// allocation engine.
type Metrics struct {
	mu             sync.Mutex
	requestCount   map[string]int64
	errorCount     map[string]int64
	admissions     map[string]int64
	completions    map[string]int64
	rebalanceMoves map[string]int64
	rebalanceSkips map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:   make(map[string]int64),
		errorCount:     make(map[string]int64),
		admissions:     make(map[string]int64),
		completions:    make(map[string]int64),
		rebalanceMoves: make(map[string]int64),
		rebalanceSkips: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordAdmission counts an admission per priority.
func (m *Metrics) RecordAdmission(priorityID string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admissions[priorityID]++
}

// RecordCompletion counts a completed service per priority.
func (m *Metrics) RecordCompletion(priorityID string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completions[priorityID]++
}

// RecordRebalance accumulates rebalance outcomes per priority.
func (m *Metrics) RecordRebalance(priorityID string, moved, skipped int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rebalanceMoves[priorityID] += int64(moved)
	m.rebalanceSkips[priorityID] += int64(skipped)
}

// EngineSnapshot is a point-in-time copy of the engine counters.
type EngineSnapshot struct {
	Admissions     map[string]int64 `json:"admissions"`
	Completions    map[string]int64 `json:"completions"`
	RebalanceMoves map[string]int64 `json:"rebalance_moves"`
	RebalanceSkips map[string]int64 `json:"rebalance_skips"`
}

// Snapshot copies the engine counters for the stats endpoint.
func (m *Metrics) Snapshot() EngineSnapshot {
	snap := EngineSnapshot{
		Admissions:     make(map[string]int64),
		Completions:    make(map[string]int64),
		RebalanceMoves: make(map[string]int64),
		RebalanceSkips: make(map[string]int64),
	}
	if m == nil {
		return snap
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.admissions {
		snap.Admissions[k] = v
	}
	for k, v := range m.completions {
		snap.Completions[k] = v
	}
	for k, v := range m.rebalanceMoves {
		snap.RebalanceMoves[k] = v
	}
	for k, v := range m.rebalanceSkips {
		snap.RebalanceSkips[k] = v
	}
	return snap
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
