package ups

import (
	"context"
)

// APIClient defines the interface for UPS pickup API operations.
// This abstraction allows for mock implementations during testing
// and real implementations in production.
type APIClient interface {
	// Authenticate obtains an OAuth access token via client credentials.
	Authenticate(ctx context.Context) (*AuthResponse, error)

	// GetRates fetches pickup rate quotes.
	GetRates(ctx context.Context, token string, req *RatesRequest) (*RatesResponse, error)

	// CreatePickup schedules a pickup and returns the PRN.
	CreatePickup(ctx context.Context, token string, req *PickupRequest) (*PickupResponse, error)

	// GetStatus retrieves the pending status of a pickup by PRN.
	GetStatus(ctx context.Context, token string, prn string) (*StatusResponse, error)
}

// ============================================================================
// API Request/Response Types (match UPS pickup REST API structure)
// ============================================================================

// AuthResponse is the OAuth token endpoint response.
// UPS returns expires_in as a string-encoded number of seconds.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in,string"`
	IssuedAt    string `json:"issued_at,omitempty"`
}

// PickupAddress is the address block shared by rate and creation requests.
type PickupAddress struct {
	AddressLine          string `json:"AddressLine"`
	City                 string `json:"City"`
	StateProvince        string `json:"StateProvince,omitempty"`
	PostalCode           string `json:"PostalCode"`
	CountryCode          string `json:"CountryCode"`
	ContactName          string `json:"ContactName,omitempty"`
	Phone                string `json:"Phone,omitempty"`
	ResidentialIndicator string `json:"ResidentialIndicator,omitempty"` // "Y" or "N"
}

// PickupDateInfo carries the requested date and ready/close times.
type PickupDateInfo struct {
	PickupDate string `json:"PickupDate"` // YYYYMMDD
	ReadyTime  string `json:"ReadyTime"`  // HHMM
	CloseTime  string `json:"CloseTime"`  // HHMM
}

// RatesRequest represents a pickup rate request.
// POST /api/pickup/v1/rate
type RatesRequest struct {
	PickupAddress  PickupAddress  `json:"PickupAddress"`
	PickupDateInfo PickupDateInfo `json:"PickupDateInfo"`
	AccountNumber  string         `json:"ShipperAccount,omitempty"`
	ServiceOption  string         `json:"ServiceDateOption,omitempty"` // "01" same day, "02" future day
}

// RatesResponse represents the pickup rate response.
type RatesResponse struct {
	CurrencyCode string       `json:"CurrencyCode"`
	RateResult   []RateResult `json:"RateResult"`
}

// RateResult is a single priced pickup service option.
// UPS encodes monetary amounts as strings.
type RateResult struct {
	ServiceCode  string         `json:"RateType"`
	ServiceName  string         `json:"RateTypeDescription,omitempty"`
	GrandTotal   float64        `json:"GrandTotalOfAllCharge,string"`
	ChargeDetail []ChargeDetail `json:"ChargeDetail,omitempty"`
}

// ChargeDetail is one itemized charge within a rate.
type ChargeDetail struct {
	ChargeCode        string  `json:"ChargeCode"`
	ChargeDescription string  `json:"ChargeDescription,omitempty"`
	ChargeAmount      float64 `json:"ChargeAmount,string"`
}

// PickupRequest represents a pickup creation request.
// POST /api/pickup/v1/pickup
type PickupRequest struct {
	PickupAddress  PickupAddress  `json:"PickupAddress"`
	PickupDateInfo PickupDateInfo `json:"PickupDateInfo"`
	ServiceCode    string         `json:"RateType"`
	AccountNumber  string         `json:"ShipperAccount"`
	PaymentMethod  string         `json:"PaymentMethod"` // "01" pay by account
	Reference      string         `json:"SpecialInstruction,omitempty"`
	AlternateAddressIndicator string `json:"AlternateAddressIndicator,omitempty"`
}

// PickupResponse represents the pickup creation response.
type PickupResponse struct {
	PRN          string  `json:"PRN"`
	RateStatus   string  `json:"RateStatus,omitempty"`
	CurrencyCode string  `json:"CurrencyCode,omitempty"`
	GrandTotal   float64 `json:"GrandTotalOfAllCharge,string,omitempty"`
}

// StatusResponse represents the pending-status response for a pickup.
type StatusResponse struct {
	PRN         string `json:"PRN"`
	Status      string `json:"PickupStatus"`
	Message     string `json:"PickupStatusMessage,omitempty"`
	ServiceDate string `json:"ServiceDate,omitempty"` // YYYYMMDD
	ReadyTime   string `json:"ReadyTime,omitempty"`
	CloseTime   string `json:"CloseTime,omitempty"`
}

// APIError represents an error reported by the UPS API.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}

// errorEnvelope is the JSON wrapper UPS puts around error payloads.
type errorEnvelope struct {
	Response struct {
		Errors []APIError `json:"errors"`
	} `json:"response"`
}
