package observability

import (
	"sync"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// Confidence scores are bucketed into tenths for the distribution surface.
const confidenceBuckets = 10

// Metrics aggregates pipeline counters in memory. The pipeline emits events;
// this recorder owns aggregation and the /metrics projection.
type Metrics struct {
	mu             sync.Mutex
	ticketsByState map[domain.TicketStatus]int64
	retriesByHost  map[string]int64
	confidence     [confidenceBuckets + 1]int64
	errorCount     map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		ticketsByState: make(map[domain.TicketStatus]int64),
		retriesByHost:  make(map[string]int64),
		errorCount:     make(map[string]int64),
	}
}

// RecordTicketStatus counts a ticket reaching the given status.
func (m *Metrics) RecordTicketStatus(status domain.TicketStatus) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticketsByState[status]++
}

// RecordRoutingAttempt counts one dispatch attempt against a target host.
func (m *Metrics) RecordRoutingAttempt(host string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retriesByHost[host]++
}

// RecordConfidence buckets a classification confidence score.
func (m *Metrics) RecordConfidence(score float64) {
	if m == nil {
		return
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	bucket := int(score * confidenceBuckets)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confidence[bucket]++
}

// RecordError counts a normalized error code.
func (m *Metrics) RecordError(code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[code]++
}

// Snapshot is the JSON projection served at /metrics.
type Snapshot struct {
	TicketsByStatus map[string]int64 `json:"tickets_by_status"`
	RetriesByTarget map[string]int64 `json:"retries_by_target"`
	Confidence      map[string]int64 `json:"confidence_distribution"`
	ErrorsByCode    map[string]int64 `json:"errors_by_code"`
}

// Snapshot copies current counters.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{
		TicketsByStatus: map[string]int64{},
		RetriesByTarget: map[string]int64{},
		Confidence:      map[string]int64{},
		ErrorsByCode:    map[string]int64{},
	}
	if m == nil {
		return snap
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for status, count := range m.ticketsByState {
		snap.TicketsByStatus[string(status)] = count
	}
	for host, count := range m.retriesByHost {
		snap.RetriesByTarget[host] = count
	}
	for bucket, count := range m.confidence {
		if count == 0 {
			continue
		}
		snap.Confidence[bucketLabel(bucket)] = count
	}
	for code, count := range m.errorCount {
		snap.ErrorsByCode[code] = count
	}
	return snap
}

func bucketLabel(bucket int) string {
	labels := [confidenceBuckets + 1]string{
		"0.0-0.1", "0.1-0.2", "0.2-0.3", "0.3-0.4", "0.4-0.5",
		"0.5-0.6", "0.6-0.7", "0.7-0.8", "0.8-0.9", "0.9-1.0", "1.0",
	}
	return labels[bucket]
}
