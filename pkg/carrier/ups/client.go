// Package ups provides integration with the UPS pickup API.
package ups

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tournevent/pickup/pkg/carrier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const carrierName = "ups"

// defaultContactPhone is substituted when the pickup address carries no
// phone. The carrier requires one; the caller receives a warning so the UI
// can prompt for a real number.
const defaultContactPhone = "0000000000"

// Config holds UPS configuration.
type Config struct {
	ClientID      string
	ClientSecret  string
	AccountNumber string
	BaseURL       string
	UseMock       bool // When true, uses mock API client
}

// Client is the UPS pickup client.
// It implements the carrier.Carrier interface and delegates
// API calls to the underlying APIClient (mock or HTTP).
type Client struct {
	config    Config
	apiClient APIClient
	tokens    *TokenCache
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new UPS client.
// If cfg.UseMock is true, it uses a mock API client for testing.
// Otherwise, it uses the real HTTP API client. tokenStore may be nil.
func New(cfg Config, tokenStore TokenStore, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:       cfg.BaseURL,
			ClientID:      cfg.ClientID,
			ClientSecret:  cfg.ClientSecret,
			AccountNumber: cfg.AccountNumber,
			Timeout:       30 * time.Second,
		})
	}

	return &Client{
		config:    cfg,
		apiClient: apiClient,
		tokens:    NewTokenCache(apiClient, tokenStore, logger),
		logger:    logger,
		tracer:    tracer,
	}
}

// NewWithAPIClient creates a new UPS client with a custom API client.
// This is useful for injecting mock clients in tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, tokenStore TokenStore, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		tokens:    NewTokenCache(apiClient, tokenStore, logger),
		logger:    logger,
		tracer:    tracer,
	}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// Tokens exposes the token cache, for wiring and tests.
func (c *Client) Tokens() *TokenCache {
	return c.tokens
}

// QuoteRates returns pickup rate options from UPS.
func (c *Client) QuoteRates(ctx context.Context, req *carrier.RateRequest) (*carrier.RateResponse, error) {
	if err := req.Address.Validate(); err != nil {
		return nil, err
	}

	c.logger.Info("Getting UPS pickup rates",
		zap.String("city", req.Address.City),
		zap.String("postal_code", req.Address.PostalCode),
		zap.String("pickup_date", req.PickupDate),
		zap.String("window", string(req.Window)),
	)

	ready, close := req.Window.Hours()
	apiReq := &RatesRequest{
		PickupAddress:  addressToAPI(req.Address, req.Address.Phone),
		PickupDateInfo: dateInfoToAPI(req.PickupDate, ready, close),
		ServiceOption:  "02",
	}

	var apiResp *RatesResponse
	err := c.withToken(ctx, func(token string) error {
		var callErr error
		apiResp, callErr = c.apiClient.GetRates(ctx, token, apiReq)
		return callErr
	})
	if err != nil {
		c.logger.Error("UPS rate request failed", zap.Error(err))
		return nil, c.translate("rate", err, true)
	}

	return ratesResponseToCarrier(apiResp, ready, close), nil
}

// CreatePickup schedules a pickup with UPS.
// Never auto-retried: a duplicate call risks a duplicate physical pickup.
func (c *Client) CreatePickup(ctx context.Context, req *carrier.CreateRequest) (*carrier.CreateResponse, error) {
	if err := req.Address.Validate(); err != nil {
		return nil, err
	}
	if req.Rate.ServiceCode == "" {
		return nil, &carrier.ValidationError{Reason: carrier.ErrNoRateSelected.Error()}
	}

	c.logger.Info("Creating UPS pickup",
		zap.String("reference", req.Reference),
		zap.String("service_code", req.Rate.ServiceCode),
		zap.String("pickup_date", req.PickupDate),
	)

	var warnings []string
	phone := req.Address.Phone
	if phone == "" {
		phone = defaultContactPhone
		warnings = append(warnings, "address has no contact phone; a default was applied, update it before pickup day")
	}

	ready, close := req.Window.Hours()
	apiReq := &PickupRequest{
		PickupAddress:  addressToAPI(req.Address, phone),
		PickupDateInfo: dateInfoToAPI(req.PickupDate, ready, close),
		ServiceCode:    req.Rate.ServiceCode,
		PaymentMethod:  "01",
		Reference:      req.Reference,
	}

	var apiResp *PickupResponse
	err := c.withToken(ctx, func(token string) error {
		var callErr error
		apiResp, callErr = c.apiClient.CreatePickup(ctx, token, apiReq)
		return callErr
	})
	if err != nil {
		c.logger.Error("UPS pickup creation failed", zap.Error(err))
		return nil, c.translate("pickup", err, false)
	}

	return &carrier.CreateResponse{
		Confirmation: carrier.PickupConfirmation{
			PRN:        apiResp.PRN,
			Carrier:    carrierName,
			Rate:       req.Rate,
			PickupDate: req.PickupDate,
			Window:     req.Window,
			CreatedAt:  time.Now(),
		},
		Warnings: warnings,
	}, nil
}

// PickupStatus looks up the pending status of a pickup by PRN.
func (c *Client) PickupStatus(ctx context.Context, req *carrier.StatusRequest) (*carrier.PickupStatus, error) {
	if req.PRN == "" {
		return nil, carrier.ErrMissingIdentifier
	}

	var apiResp *StatusResponse
	err := c.withToken(ctx, func(token string) error {
		var callErr error
		apiResp, callErr = c.apiClient.GetStatus(ctx, token, req.PRN)
		return callErr
	})
	if err != nil {
		c.logger.Error("UPS status lookup failed",
			zap.String("prn", req.PRN),
			zap.Error(err),
		)
		return nil, c.translate("status", err, true)
	}

	return &carrier.PickupStatus{
		Code:        apiResp.Status,
		Message:     apiResp.Message,
		ServiceDate: fromCompactDate(apiResp.ServiceDate),
		ReadyTime:   fromCompactTime(apiResp.ReadyTime),
		CloseTime:   fromCompactTime(apiResp.CloseTime),
		RetrievedAt: time.Now(),
	}, nil
}

// withToken runs call with a valid access token, forcing one token refresh
// and retrying once when the carrier rejects the credential mid-call.
// Never more than one retry.
func (c *Client) withToken(ctx context.Context, call func(token string) error) error {
	tok, err := c.tokens.Token(ctx, false)
	if err != nil {
		return err
	}

	err = call(tok.Token)
	var authErr *carrier.AuthError
	if errors.As(err, &authErr) {
		c.logger.Warn("UPS rejected access token, forcing refresh", zap.Error(err))
		tok, rerr := c.tokens.Token(ctx, true)
		if rerr != nil {
			return rerr
		}
		return call(tok.Token)
	}
	return err
}

// translate maps low-level API errors onto the carrier error taxonomy.
// retryable applies to timeouts only; creation is never retryable.
func (c *Client) translate(op string, err error, retryable bool) error {
	var timeoutErr *carrier.TimeoutError
	if errors.As(err, &timeoutErr) {
		timeoutErr.Retryable = retryable
		return timeoutErr
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return carrier.ClassifyCarrierError(carrierName, apiErr.Code, apiErr.Message, 0)
	}

	// Validation, auth and protocol errors pass through untranslated.
	return err
}

// ============================================================================
// Conversion helpers
// ============================================================================

func addressToAPI(addr carrier.Address, phone string) PickupAddress {
	country := addr.CountryCode
	if country == "" {
		country = "US"
	}
	return PickupAddress{
		AddressLine:   addr.Street,
		City:          addr.City,
		StateProvince: addr.Province,
		PostalCode:    addr.PostalCode,
		CountryCode:   country,
		ContactName:   addr.ContactName,
		Phone:         phone,
	}
}

func dateInfoToAPI(date, ready, close string) PickupDateInfo {
	return PickupDateInfo{
		PickupDate: toCompactDate(date),
		ReadyTime:  toCompactTime(ready),
		CloseTime:  toCompactTime(close),
	}
}

func ratesResponseToCarrier(resp *RatesResponse, ready, close string) *carrier.RateResponse {
	currency := resp.CurrencyCode
	if currency == "" {
		currency = "USD"
	}

	rates := make([]carrier.RateOption, len(resp.RateResult))
	for i, r := range resp.RateResult {
		charges := make([]carrier.Charge, len(r.ChargeDetail))
		for j, d := range r.ChargeDetail {
			charges[j] = carrier.Charge{
				Code:        d.ChargeCode,
				Description: d.ChargeDescription,
				Amount:      carrier.Money{Amount: d.ChargeAmount, Currency: currency},
			}
		}

		rates[i] = carrier.RateOption{
			RateID:      generateRateID(r.ServiceCode),
			Carrier:     carrierName,
			ServiceCode: r.ServiceCode,
			ServiceName: r.ServiceName,
			Total:       carrier.Money{Amount: r.GrandTotal, Currency: currency},
			ReadyTime:   ready,
			CloseTime:   close,
			Charges:     charges,
		}
	}

	return &carrier.RateResponse{
		QuoteID: "ups-quote-" + uuid.New().String()[:8],
		Rates:   rates,
	}
}

func generateRateID(serviceCode string) string {
	return "ups-" + serviceCode + "-" + time.Now().Format("20060102150405")
}

// toCompactDate converts YYYY-MM-DD to the YYYYMMDD form UPS expects.
func toCompactDate(date string) string {
	return strings.ReplaceAll(date, "-", "")
}

// fromCompactDate converts YYYYMMDD back to YYYY-MM-DD.
func fromCompactDate(date string) string {
	if len(date) != 8 {
		return date
	}
	return date[:4] + "-" + date[4:6] + "-" + date[6:]
}

// toCompactTime converts HH:MM to the HHMM form UPS expects.
func toCompactTime(t string) string {
	return strings.ReplaceAll(t, ":", "")
}

// fromCompactTime converts HHMM back to HH:MM.
func fromCompactTime(t string) string {
	if len(t) != 4 {
		return t
	}
	return t[:2] + ":" + t[2:]
}

var _ carrier.Carrier = (*Client)(nil)
