package carrier

import (
	"time"
)

// TimeWindow represents the caller-facing pickup window selection.
// Carriers map it to their own ready/close time codes.
type TimeWindow string

const (
	WindowMorning   TimeWindow = "morning"
	WindowAfternoon TimeWindow = "afternoon"
	WindowAllDay    TimeWindow = "all_day"
)

// Hours returns the ready and close times for the window in HH:MM form.
func (w TimeWindow) Hours() (ready, close string) {
	switch w {
	case WindowMorning:
		return "08:00", "12:00"
	case WindowAfternoon:
		return "12:00", "17:00"
	default:
		return "08:00", "17:00"
	}
}

// Address represents a pickup address.
// Street, City and PostalCode are mandatory before any carrier call;
// see Validate.
type Address struct {
	Street      string
	City        string
	Province    string // e.g., "ON", "NY"
	PostalCode  string
	CountryCode string // ISO 3166-1 alpha-2, e.g., "US", "CA"
	ContactName string
	Phone       string
}

// Money represents a monetary amount.
type Money struct {
	Amount   float64
	Currency string
}

// Charge is one itemized component of a rate option.
type Charge struct {
	Code        string
	Description string
	Amount      Money
}

// RateOption represents a priced pickup service option from a carrier.
// Ephemeral: produced fresh by each quote call.
type RateOption struct {
	RateID      string
	Carrier     string
	ServiceCode string
	ServiceName string
	Total       Money
	ReadyTime   string // HH:MM
	CloseTime   string // HH:MM
	Charges     []Charge
}

// PickupConfirmation is the durable result of a successful pickup creation.
// The PRN is immutable and is the sole key for status lookups.
type PickupConfirmation struct {
	PRN        string     `json:"prn"`
	Carrier    string     `json:"carrier"`
	Rate       RateOption `json:"rate"` // snapshot of the selected option
	PickupDate string     `json:"pickup_date"` // YYYY-MM-DD
	Window     TimeWindow `json:"window"`
	CreatedAt  time.Time  `json:"created_at"`
}

// PickupStatus is a point-in-time snapshot of a scheduled pickup.
// Never persisted, never merged with a prior snapshot.
type PickupStatus struct {
	Code        string
	Message     string
	ServiceDate string // YYYY-MM-DD, optional
	ReadyTime   string // optional
	CloseTime   string // optional
	RetrievedAt time.Time
}

// RateRequest is the request for quoting pickup rates.
type RateRequest struct {
	Reference  string // caller-supplied order identifier
	Address    Address
	PickupDate string // YYYY-MM-DD
	Window     TimeWindow
}

// RateResponse is the response from quoting pickup rates.
// Rates may be empty; an empty list is not an error.
type RateResponse struct {
	QuoteID string
	Rates   []RateOption
}

// CreateRequest is the request for scheduling a pickup.
type CreateRequest struct {
	Reference  string // embedded in the carrier payload for traceability
	Address    Address
	PickupDate string
	Window     TimeWindow
	Rate       RateOption // must come from a prior QuoteRates call
}

// CreateResponse is the response from scheduling a pickup.
// Warnings carry non-fatal degradations (e.g., a default contact phone
// was substituted) for the caller to surface.
type CreateResponse struct {
	Confirmation PickupConfirmation
	Warnings     []string
}

// StatusRequest is the request for a pickup status lookup.
type StatusRequest struct {
	PRN           string
	AccountNumber string
}
