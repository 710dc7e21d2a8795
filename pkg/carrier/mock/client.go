// Package mock provides a mock carrier implementation for testing.
package mock

import (
	"context"
	"fmt"
	"time"

	"github.com/tournevent/pickup/pkg/carrier"
)

// Client is a mock carrier for testing.
type Client struct {
	name string
}

// New creates a new mock carrier.
func New(name string) *Client {
	return &Client{name: name}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return c.name
}

// QuoteRates returns mock pickup rates.
func (c *Client) QuoteRates(ctx context.Context, req *carrier.RateRequest) (*carrier.RateResponse, error) {
	if err := req.Address.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	ready, close := req.Window.Hours()

	return &carrier.RateResponse{
		QuoteID: fmt.Sprintf("%s-quote-%d", c.name, now.UnixNano()),
		Rates: []carrier.RateOption{
			{
				RateID:      fmt.Sprintf("%s-rate-standard-%d", c.name, now.UnixNano()),
				Carrier:     c.name,
				ServiceCode: "STANDARD",
				ServiceName: fmt.Sprintf("%s Standard Pickup", c.name),
				Total:       carrier.Money{Amount: 5.95, Currency: "USD"},
				ReadyTime:   ready,
				CloseTime:   close,
			},
			{
				RateID:      fmt.Sprintf("%s-rate-express-%d", c.name, now.UnixNano()),
				Carrier:     c.name,
				ServiceCode: "EXPRESS",
				ServiceName: fmt.Sprintf("%s Express Pickup", c.name),
				Total:       carrier.Money{Amount: 12.50, Currency: "USD"},
				ReadyTime:   ready,
				CloseTime:   close,
			},
		},
	}, nil
}

// CreatePickup creates a mock pickup.
func (c *Client) CreatePickup(ctx context.Context, req *carrier.CreateRequest) (*carrier.CreateResponse, error) {
	if err := req.Address.Validate(); err != nil {
		return nil, err
	}
	if req.Rate.ServiceCode == "" {
		return nil, &carrier.ValidationError{Reason: carrier.ErrNoRateSelected.Error()}
	}

	var warnings []string
	if req.Address.Phone == "" {
		warnings = append(warnings, "address has no contact phone; a default was applied")
	}

	return &carrier.CreateResponse{
		Confirmation: carrier.PickupConfirmation{
			PRN:        fmt.Sprintf("%s-prn-%d", c.name, time.Now().UnixNano()),
			Carrier:    c.name,
			Rate:       req.Rate,
			PickupDate: req.PickupDate,
			Window:     req.Window,
			CreatedAt:  time.Now(),
		},
		Warnings: warnings,
	}, nil
}

// PickupStatus returns a mock pickup status snapshot.
func (c *Client) PickupStatus(ctx context.Context, req *carrier.StatusRequest) (*carrier.PickupStatus, error) {
	if req.PRN == "" {
		return nil, carrier.ErrMissingIdentifier
	}

	return &carrier.PickupStatus{
		Code:        "002",
		Message:     "Pickup scheduled",
		ServiceDate: time.Now().AddDate(0, 0, 1).Format("2006-01-02"),
		ReadyTime:   "08:00",
		CloseTime:   "17:00",
		RetrievedAt: time.Now(),
	}, nil
}

var _ carrier.Carrier = (*Client)(nil)
