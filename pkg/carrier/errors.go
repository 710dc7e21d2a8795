package carrier

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ValidationError indicates a request was rejected locally, before any
// network call was made.
type ValidationError struct {
	MissingFields []string
	Reason        string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.MissingFields) > 0 {
		return "validation failed: missing " + strings.Join(e.MissingFields, ", ")
	}
	return "validation failed: " + e.Reason
}

// AuthError indicates the carrier rejected our credentials.
// Fatal for the current operation; the next attempt forces a token refresh.
type AuthError struct {
	Carrier    string
	Message    string
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed: %s", e.Carrier, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AuthError) Unwrap() error {
	return e.Cause
}

// ProtocolError indicates the carrier response did not match the expected
// contract. Always surfaced verbatim to aid diagnosis.
type ProtocolError struct {
	Carrier string
	Op      string
	Detail  string
	Cause   error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: unexpected response: %s: %v", e.Carrier, e.Op, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s %s: unexpected response: %s", e.Carrier, e.Op, e.Detail)
}

// Unwrap returns the underlying cause.
func (e *ProtocolError) Unwrap() error {
	return e.Cause
}

// InputKind classifies a carrier-side semantic rejection into an
// actionable category.
type InputKind string

const (
	InputPhone   InputKind = "phone"
	InputCountry InputKind = "country"
	InputAddress InputKind = "address"
	InputService InputKind = "service"
)

// InputError indicates the carrier rejected the request semantically
// (bad phone, address, country or service). Hint is a remediation
// message suitable for the caller; Raw preserves the carrier message.
type InputError struct {
	Carrier string
	Kind    InputKind
	Hint    string
	Raw     string
}

// Error implements the error interface.
func (e *InputError) Error() string {
	return fmt.Sprintf("%s rejected %s: %s", e.Carrier, e.Kind, e.Raw)
}

// Is matches InputErrors by kind.
func (e *InputError) Is(target error) bool {
	t, ok := target.(*InputError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// TimeoutError indicates a carrier call exceeded its time bound.
// Retryable depends on the operation: quote and status lookups may be
// retried, pickup creation must not be (duplicate pickup risk).
type TimeoutError struct {
	Carrier   string
	Op        string
	Limit     time.Duration
	Retryable bool
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s %s: timed out after %s", e.Carrier, e.Op, e.Limit)
}

// CarrierError represents any other carrier-reported failure, with the
// raw message preserved.
type CarrierError struct {
	Carrier    string
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *CarrierError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Carrier, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Carrier, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *CarrierError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for CarrierError.
func (e *CarrierError) Is(target error) bool {
	t, ok := target.(*CarrierError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewCarrierError creates a new CarrierError.
func NewCarrierError(carrier, code, message string) *CarrierError {
	return &CarrierError{
		Carrier: carrier,
		Code:    code,
		Message: message,
	}
}

// WithCause adds a cause to the error.
func (e *CarrierError) WithCause(err error) *CarrierError {
	e.Cause = err
	return e
}

// WithStatusCode adds an HTTP status code to the error.
func (e *CarrierError) WithStatusCode(code int) *CarrierError {
	e.StatusCode = code
	return e
}

// WithRetryable marks the error as retryable.
func (e *CarrierError) WithRetryable(retryable bool) *CarrierError {
	e.Retryable = retryable
	return e
}

// Sentinel errors for common pickup scenarios.
var (
	// ErrMissingIdentifier indicates a status lookup was attempted without a PRN.
	ErrMissingIdentifier = errors.New("missing pickup reference number")

	// ErrNoRateSelected indicates pickup creation was attempted before a rate
	// was selected from a quote.
	ErrNoRateSelected = errors.New("no rate selected")

	// ErrPickupExists indicates a pickup is already scheduled for the order.
	ErrPickupExists = errors.New("pickup already scheduled for this order")

	// ErrCarrierNotFound indicates the requested carrier is not registered.
	ErrCarrierNotFound = errors.New("carrier not found")
)

// inputClassifiers maps known substrings of carrier free-text error messages
// to input kinds. Structured carrier codes take precedence (see inputCodes);
// this table is the documented fallback for carriers that only return prose.
var inputClassifiers = []struct {
	substr string
	kind   InputKind
	hint   string
}{
	{"phone", InputPhone, "provide a contact phone number in local format"},
	{"country", InputCountry, "pickup is not offered for this country code"},
	{"address", InputAddress, "check the street, city and postal code"},
	{"postal", InputAddress, "check the street, city and postal code"},
	{"service", InputService, "the selected service is not available for this pickup"},
}

// inputCodes maps structured carrier error codes to input kinds, preferred
// over substring matching when the carrier supplies a code.
var inputCodes = map[string]InputKind{
	"9510126": InputPhone,
	"9510142": InputCountry,
	"9510688": InputAddress,
	"9511000": InputService,
}

// ClassifyCarrierError maps a carrier-reported code/message pair to an
// InputError when it is recognized as a semantic input rejection, or to a
// generic CarrierError carrying the raw message otherwise.
func ClassifyCarrierError(carrier, code, message string, statusCode int) error {
	if kind, ok := inputCodes[code]; ok {
		return &InputError{Carrier: carrier, Kind: kind, Hint: hintFor(kind), Raw: message}
	}
	lower := strings.ToLower(message)
	for _, c := range inputClassifiers {
		if strings.Contains(lower, c.substr) {
			return &InputError{Carrier: carrier, Kind: c.kind, Hint: c.hint, Raw: message}
		}
	}
	return NewCarrierError(carrier, code, message).WithStatusCode(statusCode)
}

func hintFor(kind InputKind) string {
	for _, c := range inputClassifiers {
		if c.kind == kind {
			return c.hint
		}
	}
	return ""
}

// IsRetryable returns true if the error is safe to retry.
func IsRetryable(err error) bool {
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return timeoutErr.Retryable
	}
	var carrierErr *CarrierError
	if errors.As(err, &carrierErr) {
		return carrierErr.Retryable
	}
	return false
}
