package ups

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tournevent/pickup/pkg/carrier"
)

// HTTPAPIClient is the production implementation of APIClient using HTTP/JSON.
type HTTPAPIClient struct {
	baseURL       string
	clientID      string
	clientSecret  string
	accountNumber string
	httpClient    *http.Client
	timeout       time.Duration
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL       string
	ClientID      string
	ClientSecret  string
	AccountNumber string
	Timeout       time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPAPIClient{
		baseURL:       cfg.BaseURL,
		clientID:      cfg.ClientID,
		clientSecret:  cfg.ClientSecret,
		accountNumber: cfg.AccountNumber,
		timeout:       timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Authenticate obtains an OAuth access token via the client-credentials grant.
// POST /security/v1/oauth/token with Basic auth.
func (c *HTTPAPIClient) Authenticate(ctx context.Context) (*AuthResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/security/v1/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.wrapTransportError("authenticate", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &carrier.AuthError{
			Carrier:    carrierName,
			Message:    strings.TrimSpace(string(body)),
			StatusCode: resp.StatusCode,
		}
	}

	var auth AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return nil, &carrier.ProtocolError{
			Carrier: carrierName,
			Op:      "authenticate",
			Detail:  "failed to decode token response",
			Cause:   err,
		}
	}
	if auth.AccessToken == "" || auth.ExpiresIn <= 0 {
		return nil, &carrier.ProtocolError{
			Carrier: carrierName,
			Op:      "authenticate",
			Detail:  "token response missing access_token or expires_in",
		}
	}

	return &auth, nil
}

// GetRates fetches pickup rate quotes from the UPS API.
func (c *HTTPAPIClient) GetRates(ctx context.Context, token string, req *RatesRequest) (*RatesResponse, error) {
	if req.AccountNumber == "" {
		req.AccountNumber = c.accountNumber
	}

	resp, err := c.doRequest(ctx, "rate", http.MethodPost, "/api/pickup/v1/rate", token, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var rates RatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&rates); err != nil {
		return nil, &carrier.ProtocolError{
			Carrier: carrierName,
			Op:      "rate",
			Detail:  "failed to decode rate response",
			Cause:   err,
		}
	}

	return &rates, nil
}

// CreatePickup schedules a pickup via the UPS API.
func (c *HTTPAPIClient) CreatePickup(ctx context.Context, token string, req *PickupRequest) (*PickupResponse, error) {
	if req.AccountNumber == "" {
		req.AccountNumber = c.accountNumber
	}

	resp, err := c.doRequest(ctx, "pickup", http.MethodPost, "/api/pickup/v1/pickup", token, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.parseError(resp)
	}

	var pickup PickupResponse
	if err := json.NewDecoder(resp.Body).Decode(&pickup); err != nil {
		return nil, &carrier.ProtocolError{
			Carrier: carrierName,
			Op:      "pickup",
			Detail:  "failed to decode pickup response",
			Cause:   err,
		}
	}
	if pickup.PRN == "" {
		return nil, &carrier.ProtocolError{
			Carrier: carrierName,
			Op:      "pickup",
			Detail:  "pickup response missing PRN",
		}
	}

	return &pickup, nil
}

// GetStatus retrieves the pending status of a pickup by PRN.
func (c *HTTPAPIClient) GetStatus(ctx context.Context, token string, prn string) (*StatusResponse, error) {
	path := fmt.Sprintf("/api/pickup/v1/pickup/%s/status", url.PathEscape(prn))
	resp, err := c.doRequest(ctx, "status", http.MethodGet, path, token, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var status StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, &carrier.ProtocolError{
			Carrier: carrierName,
			Op:      "status",
			Detail:  "failed to decode status response",
			Cause:   err,
		}
	}

	return &status, nil
}

// ============================================================================
// HTTP Helpers
// ============================================================================

func (c *HTTPAPIClient) doRequest(ctx context.Context, op, method, path, token string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.wrapTransportError(op, err)
	}
	return resp, nil
}

// wrapTransportError distinguishes timeouts from other transport failures so
// callers can apply per-operation retry policy.
func (c *HTTPAPIClient) wrapTransportError(op string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &carrier.TimeoutError{
			Carrier: carrierName,
			Op:      op,
			Limit:   c.timeout,
		}
	}
	return fmt.Errorf("%s %s: %w", carrierName, op, err)
}

func (c *HTTPAPIClient) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &carrier.AuthError{
			Carrier:    carrierName,
			Message:    strings.TrimSpace(string(body)),
			StatusCode: resp.StatusCode,
		}
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Response.Errors) > 0 {
		first := envelope.Response.Errors[0]
		return &APIError{Code: first.Code, Message: first.Message}
	}

	return &APIError{
		Code:    fmt.Sprintf("HTTP_%d", resp.StatusCode),
		Message: string(body),
	}
}

var _ APIClient = (*HTTPAPIClient)(nil)
