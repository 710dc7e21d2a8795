// Package carrier provides an abstraction layer for shipping carrier pickup APIs.
package carrier

import (
	"context"
)

// Carrier defines the interface that all pickup carriers must implement.
type Carrier interface {
	// Name returns the carrier identifier (e.g., "ups").
	Name() string

	// QuoteRates returns pickup rate options for an address, date and time window.
	QuoteRates(ctx context.Context, req *RateRequest) (*RateResponse, error)

	// CreatePickup schedules a physical pickup and returns the carrier-issued
	// Pickup Reference Number. Not safely retryable: a retried timeout may
	// schedule a duplicate physical pickup.
	CreatePickup(ctx context.Context, req *CreateRequest) (*CreateResponse, error)

	// PickupStatus looks up the current status of a scheduled pickup by PRN.
	// Pure read, safe to call at any frequency.
	PickupStatus(ctx context.Context, req *StatusRequest) (*PickupStatus, error)
}
