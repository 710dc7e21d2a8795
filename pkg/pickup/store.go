package pickup

import (
	"context"
	"sync"

	"github.com/tournevent/pickup/pkg/carrier"
)

// Record is the durable payload persisted per order once a pickup has been
// scheduled. Written on successful creation, read on session construction,
// never deleted automatically.
type Record struct {
	OrderID      string                     `json:"order_id"`
	Success      bool                       `json:"success"`
	Confirmation carrier.PickupConfirmation `json:"confirmation"`
}

// ConfirmationStore is the durable storage collaborator, keyed by order ID.
type ConfirmationStore interface {
	// Load returns the persisted record for an order, or (nil, nil) when absent.
	Load(ctx context.Context, orderID string) (*Record, error)
	Save(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, orderID string) error
}

// MemoryStore is an in-memory ConfirmationStore for tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Load returns the stored record, or (nil, nil) when absent.
func (s *MemoryStore) Load(ctx context.Context, orderID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[orderID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Save stores the record keyed by its order ID.
func (s *MemoryStore) Save(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.OrderID] = *rec
	return nil
}

// Delete removes the record for an order.
func (s *MemoryStore) Delete(ctx context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, orderID)
	return nil
}

var _ ConfirmationStore = (*MemoryStore)(nil)
