// Package pickup orchestrates the carrier pickup flow for one order:
// quote rates, select one, schedule the pickup, poll its status, with
// the scheduled confirmation persisted so it survives a restart.
package pickup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tournevent/pickup/pkg/carrier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// State is the explicit session state. There is no implicit state derived
// from which fields happen to be populated.
type State int

const (
	StateNoPickup State = iota
	StateRatesQuoted
	StatePickupScheduled
	StateStatusKnown
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNoPickup:
		return "no_pickup"
	case StateRatesQuoted:
		return "rates_quoted"
	case StatePickupScheduled:
		return "pickup_scheduled"
	case StateStatusKnown:
		return "status_known"
	default:
		return "unknown"
	}
}

// Session drives the pickup flow for a single order. At most one carrier
// call is in flight per session; all transitions are caller-driven.
// No partial transition occurs on failure: an error leaves the state as it
// was.
type Session struct {
	orderID string
	carrier carrier.Carrier
	store   ConfirmationStore
	logger  *otelzap.Logger
	now     func() time.Time

	mu           sync.Mutex
	state        State
	address      carrier.Address
	pickupDate   string
	window       carrier.TimeWindow
	rates        []carrier.RateOption
	selected     *carrier.RateOption
	confirmation *carrier.PickupConfirmation
	status       *carrier.PickupStatus
}

// NewSession constructs a session for the given order and hydrates it from
// durable storage: a persisted confirmation puts the session straight into
// StatePickupScheduled and triggers an immediate status refresh
// (best-effort; a failed refresh leaves the session scheduled).
func NewSession(ctx context.Context, orderID string, c carrier.Carrier, store ConfirmationStore, logger *otelzap.Logger) (*Session, error) {
	s := &Session{
		orderID: orderID,
		carrier: c,
		store:   store,
		logger:  logger,
		now:     time.Now,
		state:   StateNoPickup,
	}

	rec, err := store.Load(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load pickup record for order %s: %w", orderID, err)
	}
	if rec != nil && rec.Success {
		conf := rec.Confirmation
		s.confirmation = &conf
		s.state = StatePickupScheduled

		if _, err := s.RefreshStatus(ctx); err != nil {
			logger.Warn("Status refresh on session resume failed",
				zap.String("order_id", orderID),
				zap.String("prn", conf.PRN),
				zap.Error(err),
			)
		}
	}

	return s, nil
}

// OrderID returns the order identifier this session is bound to.
func (s *Session) OrderID() string {
	return s.orderID
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Rates returns a copy of the most recent quote result.
func (s *Session) Rates() []carrier.RateOption {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]carrier.RateOption, len(s.rates))
	copy(out, s.rates)
	return out
}

// Confirmation returns a copy of the stored confirmation, or nil.
func (s *Session) Confirmation() *carrier.PickupConfirmation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.confirmation == nil {
		return nil
	}
	conf := *s.confirmation
	return &conf
}

// Status returns a copy of the last status snapshot, or nil.
func (s *Session) Status() *carrier.PickupStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == nil {
		return nil
	}
	st := *s.status
	return &st
}

// QuoteRates validates the address locally, then requests pickup rate
// options from the carrier. Allowed from any state (the user may change
// the date or address at any time); an existing confirmation is kept until
// a new pickup is actually created. On failure the session is unchanged.
func (s *Session) QuoteRates(ctx context.Context, addr carrier.Address, pickupDate string, window carrier.TimeWindow) ([]carrier.RateOption, error) {
	if err := addr.Validate(); err != nil {
		return nil, err
	}

	resp, err := s.carrier.QuoteRates(ctx, &carrier.RateRequest{
		Reference:  s.orderID,
		Address:    addr,
		PickupDate: pickupDate,
		Window:     window,
	})
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		// Caller went away mid-request; discard the result.
		return nil, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.address = addr
	s.pickupDate = pickupDate
	s.window = window
	s.rates = resp.Rates
	s.selected = nil
	s.state = StateRatesQuoted

	s.logger.Info("Pickup rates quoted",
		zap.String("order_id", s.orderID),
		zap.Int("rate_count", len(resp.Rates)),
	)

	out := make([]carrier.RateOption, len(resp.Rates))
	copy(out, resp.Rates)
	return out, nil
}

// SelectRate marks one option from the current quote as the caller's choice.
func (s *Session) SelectRate(rateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRatesQuoted {
		return &carrier.ValidationError{Reason: "no rate quote in progress"}
	}
	for i := range s.rates {
		if s.rates[i].RateID == rateID {
			rate := s.rates[i]
			s.selected = &rate
			return nil
		}
	}
	return &carrier.ValidationError{Reason: "unknown rate id: " + rateID}
}

// Schedule creates the pickup with the carrier using the selected rate.
// The confirmation is persisted before the session transitions or the
// caller is notified, so a crash after the carrier's success cannot lose
// the PRN. Duplicate scheduling for the same order is rejected; starting
// over requires a new order context (or an explicit Clear).
func (s *Session) Schedule(ctx context.Context) (*carrier.CreateResponse, error) {
	s.mu.Lock()
	if s.confirmation != nil {
		s.mu.Unlock()
		return nil, &carrier.ValidationError{Reason: carrier.ErrPickupExists.Error()}
	}
	if s.selected == nil {
		s.mu.Unlock()
		return nil, &carrier.ValidationError{Reason: carrier.ErrNoRateSelected.Error()}
	}
	req := &carrier.CreateRequest{
		Reference:  s.orderID,
		Address:    s.address,
		PickupDate: s.pickupDate,
		Window:     s.window,
		Rate:       *s.selected,
	}
	s.mu.Unlock()

	if err := req.Address.Validate(); err != nil {
		return nil, err
	}

	resp, err := s.carrier.CreatePickup(ctx, req)
	if err != nil {
		return nil, err
	}

	// The pickup now exists with the carrier; from here on the confirmation
	// must not be dropped even if persistence or the caller misbehaves.
	s.mu.Lock()
	conf := resp.Confirmation
	s.confirmation = &conf
	s.state = StatePickupScheduled
	s.mu.Unlock()

	rec := &Record{OrderID: s.orderID, Success: true, Confirmation: resp.Confirmation}
	if err := s.store.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("pickup %s created but persisting confirmation failed: %w", resp.Confirmation.PRN, err)
	}

	s.logger.Info("Pickup scheduled",
		zap.String("order_id", s.orderID),
		zap.String("prn", resp.Confirmation.PRN),
		zap.Strings("warnings", resp.Warnings),
	)

	return resp, nil
}

// RefreshStatus fetches the current status of the scheduled pickup by its
// PRN and overwrites any prior snapshot. Never merged: each snapshot is a
// point-in-time read.
func (s *Session) RefreshStatus(ctx context.Context) (*carrier.PickupStatus, error) {
	s.mu.Lock()
	if s.confirmation == nil {
		s.mu.Unlock()
		return nil, &carrier.ValidationError{Reason: "no pickup scheduled for this order"}
	}
	prn := s.confirmation.PRN
	s.mu.Unlock()

	st, err := s.carrier.PickupStatus(ctx, &carrier.StatusRequest{PRN: prn})
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	s.mu.Lock()
	s.status = st
	s.state = StateStatusKnown
	s.mu.Unlock()

	snapshot := *st
	return &snapshot, nil
}

// Clear removes the persisted confirmation (e.g., after order completion)
// and resets the session. This is the only way a confirmation is ever
// deleted.
func (s *Session) Clear(ctx context.Context) error {
	if err := s.store.Delete(ctx, s.orderID); err != nil {
		return fmt.Errorf("delete pickup record for order %s: %w", s.orderID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateNoPickup
	s.rates = nil
	s.selected = nil
	s.confirmation = nil
	s.status = nil
	return nil
}
