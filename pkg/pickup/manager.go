package pickup

import (
	"context"
	"sync"

	"github.com/tournevent/pickup/pkg/carrier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
)

// Manager hands out one Session per order identifier. There is a single
// writer per order, so the session map is the only shared state it guards.
type Manager struct {
	carrier carrier.Carrier
	store   ConfirmationStore
	logger  *otelzap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager bound to one carrier and store.
func NewManager(c carrier.Carrier, store ConfirmationStore, logger *otelzap.Logger) *Manager {
	return &Manager{
		carrier:  c,
		store:    store,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Session returns the live session for an order, constructing (and
// hydrating) it on first use.
func (m *Manager) Session(ctx context.Context, orderID string) (*Session, error) {
	m.mu.Lock()
	if s, ok := m.sessions[orderID]; ok {
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	// Construct outside the lock: hydration may hit storage and the carrier.
	s, err := NewSession(ctx, orderID, m.carrier, m.store, m.logger)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[orderID]; ok {
		return existing, nil
	}
	m.sessions[orderID] = s
	return s, nil
}

// Drop forgets the in-memory session for an order. The durable record, if
// any, is untouched; a later Session call re-hydrates from it.
func (m *Manager) Drop(orderID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, orderID)
}
