package ups

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnAuthenticate func(ctx context.Context) (*AuthResponse, error)
	OnGetRates     func(ctx context.Context, token string, req *RatesRequest) (*RatesResponse, error)
	OnCreatePickup func(ctx context.Context, token string, req *PickupRequest) (*PickupResponse, error)
	OnGetStatus    func(ctx context.Context, token string, prn string) (*StatusResponse, error)

	// Call counters, readable from tests.
	AuthCalls   atomic.Int64
	RateCalls   atomic.Int64
	CreateCalls atomic.Int64
	StatusCalls atomic.Int64
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// Authenticate returns a mock OAuth token.
func (m *MockAPIClient) Authenticate(ctx context.Context) (*AuthResponse, error) {
	m.AuthCalls.Add(1)
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &APIError{Code: "MOCK_ERROR", Message: "Simulated auth error"}
	}

	if m.OnAuthenticate != nil {
		return m.OnAuthenticate(ctx)
	}

	return &AuthResponse{
		AccessToken: "mock-token-" + uuid.New().String()[:8],
		TokenType:   "Bearer",
		ExpiresIn:   14399,
	}, nil
}

// GetRates returns mock pickup rates.
func (m *MockAPIClient) GetRates(ctx context.Context, token string, req *RatesRequest) (*RatesResponse, error) {
	m.RateCalls.Add(1)
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &APIError{Code: "MOCK_ERROR", Message: "Simulated API error"}
	}

	if m.OnGetRates != nil {
		return m.OnGetRates(ctx, token, req)
	}

	return &RatesResponse{
		CurrencyCode: "USD",
		RateResult: []RateResult{
			{
				ServiceCode: "SD",
				ServiceName: "Same-Day Pickup",
				GrandTotal:  7.75,
				ChargeDetail: []ChargeDetail{
					{ChargeCode: "S", ChargeDescription: "Service charge", ChargeAmount: 6.80},
					{ChargeCode: "F", ChargeDescription: "Fuel surcharge", ChargeAmount: 0.95},
				},
			},
			{
				ServiceCode: "FD",
				ServiceName: "Future-Day Pickup",
				GrandTotal:  5.95,
				ChargeDetail: []ChargeDetail{
					{ChargeCode: "S", ChargeDescription: "Service charge", ChargeAmount: 5.20},
					{ChargeCode: "F", ChargeDescription: "Fuel surcharge", ChargeAmount: 0.75},
				},
			},
		},
	}, nil
}

// CreatePickup creates a mock pickup.
func (m *MockAPIClient) CreatePickup(ctx context.Context, token string, req *PickupRequest) (*PickupResponse, error) {
	m.CreateCalls.Add(1)
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &APIError{Code: "MOCK_ERROR", Message: "Simulated API error"}
	}

	if m.OnCreatePickup != nil {
		return m.OnCreatePickup(ctx, token, req)
	}

	return &PickupResponse{
		PRN:          fmt.Sprintf("2929602E%07d", time.Now().UnixNano()%10000000),
		RateStatus:   "01",
		CurrencyCode: "USD",
		GrandTotal:   5.95,
	}, nil
}

// GetStatus returns mock pickup status.
func (m *MockAPIClient) GetStatus(ctx context.Context, token string, prn string) (*StatusResponse, error) {
	m.StatusCalls.Add(1)
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &APIError{Code: "MOCK_ERROR", Message: "Simulated API error"}
	}

	if m.OnGetStatus != nil {
		return m.OnGetStatus(ctx, token, prn)
	}

	return &StatusResponse{
		PRN:         prn,
		Status:      "002",
		Message:     "Pickup scheduled, driver not yet dispatched",
		ServiceDate: time.Now().AddDate(0, 0, 1).Format("20060102"),
		ReadyTime:   "0800",
		CloseTime:   "1700",
	}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
