package store

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agroflow/irrigation-advisor/internal/notify"
	"github.com/agroflow/irrigation-advisor/internal/predict"
)

// ErrNotFound is returned when no record exists for a request id.
var ErrNotFound = errors.New("no record for request")

// Record status values.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Record is one processed request's audit trail: the recommendation, how its
// delivery ended, and derivation warnings. A request that failed terminally
// still gets a record, with Status failed and the error, so pollers see
// closure instead of a permanent miss. Written once, never mutated.
type Record struct {
	RequestID uuid.UUID      `json:"requestId"`
	FarmerID  string         `json:"farmerId"`
	Status    string         `json:"status"`
	Error     string         `json:"error,omitempty"`
	Result    predict.Result `json:"result"`
	Outcome   notify.Outcome `json:"outcome"`
	Warnings  []string       `json:"warnings,omitempty"`
	Message   string         `json:"message,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// AuditStore is a concurrency-safe in-memory store of processed requests.
// It stands in for the persistence collaborator: the pipeline writes results
// and outcomes here and never reads them back during request processing.
type AuditStore struct {
	mu sync.RWMutex

	records map[uuid.UUID]Record
	order   []uuid.UUID // insertion order for retention

	// undelivered holds request ids queued for later redelivery.
	undelivered []uuid.UUID

	maxRecords int
	maxAge     time.Duration
}

// NewAuditStore creates an AuditStore with optional retention limits.
// maxRecords <= 0 means unlimited.
func NewAuditStore(maxRecords int, maxAge time.Duration) *AuditStore {
	return &AuditStore{
		records:    make(map[uuid.UUID]Record),
		maxRecords: maxRecords,
		maxAge:     maxAge,
	}
}

// Save persists a record and enforces retention. An undelivered outcome is
// also queued for redelivery.
func (s *AuditStore) Save(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.RequestID]; !exists {
		s.order = append(s.order, rec.RequestID)
	}
	s.records[rec.RequestID] = rec

	// Only records that actually produced a message are candidates for
	// redelivery; failure records carry nothing to redeliver.
	if rec.Message != "" && !rec.Outcome.Delivered {
		s.undelivered = append(s.undelivered, rec.RequestID)
	}

	// Retention by count.
	if s.maxRecords > 0 && len(s.order) > s.maxRecords {
		over := len(s.order) - s.maxRecords
		for _, id := range s.order[:over] {
			delete(s.records, id)
		}
		s.order = s.order[over:]
	}

	// Retention by age.
	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(s.order); i++ {
			r, ok := s.records[s.order[i]]
			if !ok || r.CreatedAt.After(cutoff) || r.CreatedAt.Equal(cutoff) {
				break
			}
			delete(s.records, s.order[i])
		}
		if i > 0 {
			s.order = s.order[i:]
		}
	}
}

// Get returns the record for a request id.
func (s *AuditStore) Get(id uuid.UUID) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Undelivered returns the ids queued for redelivery, oldest first.
func (s *AuditStore) Undelivered() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]uuid.UUID, len(s.undelivered))
	copy(out, s.undelivered)
	return out
}
