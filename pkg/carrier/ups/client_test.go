package ups_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/pickup/pkg/carrier"
	"github.com/tournevent/pickup/pkg/carrier/ups"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newTestClient(mockClient *ups.MockAPIClient) *ups.Client {
	logger := otelzap.New(zap.NewNop())
	return ups.NewWithAPIClient(
		ups.Config{AccountNumber: "test-account"},
		mockClient,
		nil,
		logger,
		nil,
	)
}

func validAddress() carrier.Address {
	return carrier.Address{
		Street:      "123 Main St",
		City:        "Timonium",
		Province:    "MD",
		PostalCode:  "21093",
		CountryCode: "US",
		ContactName: "Sender",
		Phone:       "410-555-1234",
	}
}

func TestClient_QuoteRates_Success(t *testing.T) {
	mockAPI := ups.NewMockAPIClient()
	client := newTestClient(mockAPI)

	req := &carrier.RateRequest{
		Reference:  "order-1001",
		Address:    validAddress(),
		PickupDate: "2026-09-02",
		Window:     carrier.WindowMorning,
	}

	ctx := context.Background()
	resp, err := client.QuoteRates(ctx, req)

	require.NoError(t, err)
	assert.NotEmpty(t, resp.QuoteID)
	assert.Len(t, resp.Rates, 2) // Mock returns 2 rates
	for _, rate := range resp.Rates {
		assert.Equal(t, "ups", rate.Carrier)
		assert.NotEmpty(t, rate.ServiceCode)
		assert.NotEmpty(t, rate.ServiceName)
		assert.Equal(t, "USD", rate.Total.Currency)
		assert.Greater(t, rate.Total.Amount, 0.0)
	}
	assert.Equal(t, "08:00", resp.Rates[0].ReadyTime)
	assert.Equal(t, "12:00", resp.Rates[0].CloseTime)
}

func TestClient_QuoteRates_EmptyRatesIsNotError(t *testing.T) {
	mockAPI := ups.NewMockAPIClient()
	mockAPI.OnGetRates = func(ctx context.Context, token string, req *ups.RatesRequest) (*ups.RatesResponse, error) {
		return &ups.RatesResponse{CurrencyCode: "USD"}, nil
	}
	client := newTestClient(mockAPI)

	req := &carrier.RateRequest{
		Address:    validAddress(),
		PickupDate: "2026-09-02",
		Window:     carrier.WindowAllDay,
	}

	ctx := context.Background()
	resp, err := client.QuoteRates(ctx, req)

	require.NoError(t, err)
	assert.Empty(t, resp.Rates)
}

func TestClient_QuoteRates_InvalidAddress(t *testing.T) {
	mockAPI := ups.NewMockAPIClient()
	client := newTestClient(mockAPI)

	req := &carrier.RateRequest{
		Address: carrier.Address{Street: "123 Main St"},
	}

	ctx := context.Background()
	_, err := client.QuoteRates(ctx, req)

	var validationErr *carrier.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Contains(t, validationErr.MissingFields, "city")
	assert.Contains(t, validationErr.MissingFields, "postalCode")

	assert.Equal(t, int64(0), mockAPI.AuthCalls.Load(), "no network traffic on validation failure")
	assert.Equal(t, int64(0), mockAPI.RateCalls.Load())
}

func TestClient_QuoteRates_APIError(t *testing.T) {
	mockAPI := ups.NewMockAPIClient()
	mockAPI.OnGetRates = func(ctx context.Context, token string, req *ups.RatesRequest) (*ups.RatesResponse, error) {
		return nil, &ups.APIError{Code: "120100", Message: "Missing or invalid shipment data"}
	}
	client := newTestClient(mockAPI)

	req := &carrier.RateRequest{
		Address:    validAddress(),
		PickupDate: "2026-09-02",
		Window:     carrier.WindowAllDay,
	}

	ctx := context.Background()
	_, err := client.QuoteRates(ctx, req)

	var carrierErr *carrier.CarrierError
	require.True(t, errors.As(err, &carrierErr))
	assert.Equal(t, "120100", carrierErr.Code)
	assert.Equal(t, "Missing or invalid shipment data", carrierErr.Message)
}

func TestClient_QuoteRates_PhoneRejection(t *testing.T) {
	mockAPI := ups.NewMockAPIClient()
	mockAPI.OnGetRates = func(ctx context.Context, token string, req *ups.RatesRequest) (*ups.RatesResponse, error) {
		return nil, &ups.APIError{Code: "9510126", Message: "PickupContactPhoneNumber is invalid"}
	}
	client := newTestClient(mockAPI)

	req := &carrier.RateRequest{
		Address:    validAddress(),
		PickupDate: "2026-09-02",
		Window:     carrier.WindowAllDay,
	}

	ctx := context.Background()
	_, err := client.QuoteRates(ctx, req)

	var inputErr *carrier.InputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, carrier.InputPhone, inputErr.Kind)
	assert.Equal(t, "PickupContactPhoneNumber is invalid", inputErr.Raw)
	assert.NotEmpty(t, inputErr.Hint)
}

func TestClient_QuoteRates_Timeout(t *testing.T) {
	mockAPI := ups.NewMockAPIClient()
	mockAPI.OnGetRates = func(ctx context.Context, token string, req *ups.RatesRequest) (*ups.RatesResponse, error) {
		return nil, &carrier.TimeoutError{Carrier: "ups", Op: "rate", Limit: 30 * time.Second}
	}
	client := newTestClient(mockAPI)

	req := &carrier.RateRequest{
		Address:    validAddress(),
		PickupDate: "2026-09-02",
		Window:     carrier.WindowAllDay,
	}

	ctx := context.Background()
	_, err := client.QuoteRates(ctx, req)

	require.Error(t, err)
	assert.True(t, carrier.IsRetryable(err), "quote timeouts are safe to retry")
}

func TestClient_CreatePickup_Success(t *testing.T) {
	mockAPI := ups.NewMockAPIClient()
	client := newTestClient(mockAPI)

	req := &carrier.CreateRequest{
		Reference:  "order-1001",
		Address:    validAddress(),
		PickupDate: "2026-09-02",
		Window:     carrier.WindowAfternoon,
		Rate: carrier.RateOption{
			RateID:      "ups-FD-20260901",
			Carrier:     "ups",
			ServiceCode: "FD",
			ServiceName: "Future-Day Pickup",
			Total:       carrier.Money{Amount: 5.95, Currency: "USD"},
		},
	}

	ctx := context.Background()
	resp, err := client.CreatePickup(ctx, req)

	require.NoError(t, err)
	assert.NotEmpty(t, resp.Confirmation.PRN)
	assert.Equal(t, "ups", resp.Confirmation.Carrier)
	assert.Equal(t, "FD", resp.Confirmation.Rate.ServiceCode)
	assert.Equal(t, "2026-09-02", resp.Confirmation.PickupDate)
	assert.Empty(t, resp.Warnings)
}

func TestClient_CreatePickup_NoRateSelected(t *testing.T) {
	mockAPI := ups.NewMockAPIClient()
	client := newTestClient(mockAPI)

	req := &carrier.CreateRequest{
		Address:    validAddress(),
		PickupDate: "2026-09-02",
		Window:     carrier.WindowAllDay,
	}

	ctx := context.Background()
	_, err := client.CreatePickup(ctx, req)

	var validationErr *carrier.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, carrier.ErrNoRateSelected.Error(), validationErr.Reason)
	assert.Equal(t, int64(0), mockAPI.CreateCalls.Load())
}

func TestClient_CreatePickup_DefaultPhoneWarning(t *testing.T) {
	mockAPI := ups.NewMockAPIClient()
	var sentPhone string
	mockAPI.OnCreatePickup = func(ctx context.Context, token string, req *ups.PickupRequest) (*ups.PickupResponse, error) {
		sentPhone = req.PickupAddress.Phone
		return &ups.PickupResponse{PRN: "2929602E1234567"}, nil
	}
	client := newTestClient(mockAPI)

	addr := validAddress()
	addr.Phone = ""
	req := &carrier.CreateRequest{
		Address:    addr,
		PickupDate: "2026-09-02",
		Window:     carrier.WindowAllDay,
		Rate:       carrier.RateOption{ServiceCode: "FD"},
	}

	ctx := context.Background()
	resp, err := client.CreatePickup(ctx, req)

	require.NoError(t, err)
	assert.NotEmpty(t, sentPhone, "a default phone must be substituted")
	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], "default")
}

func TestClient_CreatePickup_TimeoutNotRetryable(t *testing.T) {
	mockAPI := ups.NewMockAPIClient()
	mockAPI.OnCreatePickup = func(ctx context.Context, token string, req *ups.PickupRequest) (*ups.PickupResponse, error) {
		return nil, &carrier.TimeoutError{Carrier: "ups", Op: "pickup", Limit: 30 * time.Second, Retryable: true}
	}
	client := newTestClient(mockAPI)

	req := &carrier.CreateRequest{
		Address:    validAddress(),
		PickupDate: "2026-09-02",
		Window:     carrier.WindowAllDay,
		Rate:       carrier.RateOption{ServiceCode: "FD"},
	}

	ctx := context.Background()
	_, err := client.CreatePickup(ctx, req)

	require.Error(t, err)
	assert.False(t, carrier.IsRetryable(err), "pickup creation must never be retryable")
}

func TestClient_PickupStatus_Success(t *testing.T) {
	mockAPI := ups.NewMockAPIClient()
	mockAPI.OnGetStatus = func(ctx context.Context, token string, prn string) (*ups.StatusResponse, error) {
		return &ups.StatusResponse{
			PRN:         prn,
			Status:      "002",
			Message:     "Pickup scheduled, driver not yet dispatched",
			ServiceDate: "20260902",
			ReadyTime:   "0800",
			CloseTime:   "1700",
		}, nil
	}
	client := newTestClient(mockAPI)

	ctx := context.Background()
	status, err := client.PickupStatus(ctx, &carrier.StatusRequest{PRN: "2929602E1234567"})

	require.NoError(t, err)
	assert.Equal(t, "002", status.Code)
	assert.Equal(t, "2026-09-02", status.ServiceDate)
	assert.Equal(t, "08:00", status.ReadyTime)
	assert.Equal(t, "17:00", status.CloseTime)
	assert.False(t, status.RetrievedAt.IsZero())
}

func TestClient_PickupStatus_MissingPRN(t *testing.T) {
	mockAPI := ups.NewMockAPIClient()
	client := newTestClient(mockAPI)

	ctx := context.Background()
	_, err := client.PickupStatus(ctx, &carrier.StatusRequest{})

	assert.True(t, errors.Is(err, carrier.ErrMissingIdentifier))
	assert.Equal(t, int64(0), mockAPI.AuthCalls.Load(), "no network traffic without a PRN")
	assert.Equal(t, int64(0), mockAPI.StatusCalls.Load())
}

func TestClient_TokenRejection_SingleRetry(t *testing.T) {
	mockAPI := ups.NewMockAPIClient()
	rejected := false
	mockAPI.OnGetRates = func(ctx context.Context, token string, req *ups.RatesRequest) (*ups.RatesResponse, error) {
		if !rejected {
			rejected = true
			return nil, &carrier.AuthError{Carrier: "ups", Message: "invalid token", StatusCode: 401}
		}
		return &ups.RatesResponse{
			CurrencyCode: "USD",
			RateResult:   []ups.RateResult{{ServiceCode: "FD", ServiceName: "Future-Day Pickup", GrandTotal: 5.95}},
		}, nil
	}
	client := newTestClient(mockAPI)

	req := &carrier.RateRequest{
		Address:    validAddress(),
		PickupDate: "2026-09-02",
		Window:     carrier.WindowAllDay,
	}

	ctx := context.Background()
	resp, err := client.QuoteRates(ctx, req)

	require.NoError(t, err)
	assert.Len(t, resp.Rates, 1)
	assert.Equal(t, int64(2), mockAPI.AuthCalls.Load(), "rejection forces exactly one refresh")
	assert.Equal(t, int64(2), mockAPI.RateCalls.Load())
}

func TestClient_TokenRejection_NoRetryLoop(t *testing.T) {
	mockAPI := ups.NewMockAPIClient()
	mockAPI.OnGetRates = func(ctx context.Context, token string, req *ups.RatesRequest) (*ups.RatesResponse, error) {
		return nil, &carrier.AuthError{Carrier: "ups", Message: "invalid token", StatusCode: 401}
	}
	client := newTestClient(mockAPI)

	req := &carrier.RateRequest{
		Address:    validAddress(),
		PickupDate: "2026-09-02",
		Window:     carrier.WindowAllDay,
	}

	ctx := context.Background()
	_, err := client.QuoteRates(ctx, req)

	var authErr *carrier.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, int64(2), mockAPI.AuthCalls.Load())
	assert.Equal(t, int64(2), mockAPI.RateCalls.Load(), "a persistent rejection is retried at most once")
}

func TestClient_Name(t *testing.T) {
	client := newTestClient(ups.NewMockAPIClient())
	assert.Equal(t, "ups", client.Name())
}
