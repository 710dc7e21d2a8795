package carrier_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/pickup/pkg/carrier"
)

func TestValidationError_Error_MissingFields(t *testing.T) {
	err := &carrier.ValidationError{MissingFields: []string{"street", "city"}}
	assert.Equal(t, "validation failed: missing street, city", err.Error())
}

func TestValidationError_Error_Reason(t *testing.T) {
	err := &carrier.ValidationError{Reason: "no rate selected"}
	assert.Equal(t, "validation failed: no rate selected", err.Error())
}

func TestCarrierError_Error(t *testing.T) {
	err := carrier.NewCarrierError("ups", "120100", "Missing or invalid shipment data")
	assert.Equal(t, "ups error (120100): Missing or invalid shipment data", err.Error())
}

func TestCarrierError_Error_WithCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := carrier.NewCarrierError("ups", "120100", "upstream failure").WithCause(cause)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestCarrierError_Unwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := carrier.NewCarrierError("ups", "120100", "wrapped").WithCause(cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestCarrierError_Is(t *testing.T) {
	err := carrier.NewCarrierError("ups", "120100", "one message")
	target := carrier.NewCarrierError("other", "120100", "another message")

	assert.True(t, errors.Is(err, target), "errors with the same code should match")
	assert.False(t, errors.Is(err, carrier.NewCarrierError("ups", "999999", "one message")))
}

func TestCarrierError_WithStatusCode(t *testing.T) {
	err := carrier.NewCarrierError("ups", "120100", "bad request").WithStatusCode(400)
	assert.Equal(t, 400, err.StatusCode)
}

func TestAuthError_Unwrap(t *testing.T) {
	cause := errors.New("invalid_client")
	err := &carrier.AuthError{Carrier: "ups", Message: "token rejected", Cause: cause}

	assert.Contains(t, err.Error(), "ups authentication failed")
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestProtocolError_Error(t *testing.T) {
	err := &carrier.ProtocolError{Carrier: "ups", Op: "rate", Detail: "empty body"}
	assert.Equal(t, "ups rate: unexpected response: empty body", err.Error())
}

func TestInputError_Is_MatchesByKind(t *testing.T) {
	err := &carrier.InputError{Carrier: "ups", Kind: carrier.InputPhone, Raw: "Invalid phone number"}

	assert.True(t, errors.Is(err, &carrier.InputError{Kind: carrier.InputPhone}))
	assert.False(t, errors.Is(err, &carrier.InputError{Kind: carrier.InputCountry}))
}

func TestClassifyCarrierError_StructuredCode(t *testing.T) {
	err := carrier.ClassifyCarrierError("ups", "9510126", "some opaque message", 400)

	var inputErr *carrier.InputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, carrier.InputPhone, inputErr.Kind)
	assert.Equal(t, "some opaque message", inputErr.Raw)
	assert.NotEmpty(t, inputErr.Hint)
}

func TestClassifyCarrierError_SubstringFallback(t *testing.T) {
	tests := []struct {
		message string
		kind    carrier.InputKind
	}{
		{"The Phone number is invalid", carrier.InputPhone},
		{"Country code not supported for pickup", carrier.InputCountry},
		{"Address could not be validated", carrier.InputAddress},
		{"Invalid postal code", carrier.InputAddress},
		{"Service unavailable at origin", carrier.InputService},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			err := carrier.ClassifyCarrierError("ups", "000000", tt.message, 400)

			var inputErr *carrier.InputError
			require.True(t, errors.As(err, &inputErr))
			assert.Equal(t, tt.kind, inputErr.Kind)
		})
	}
}

func TestClassifyCarrierError_Unrecognized(t *testing.T) {
	err := carrier.ClassifyCarrierError("ups", "120100", "Missing or invalid shipment data", 400)

	var carrierErr *carrier.CarrierError
	require.True(t, errors.As(err, &carrierErr))
	assert.Equal(t, "120100", carrierErr.Code)
	assert.Equal(t, "Missing or invalid shipment data", carrierErr.Message)
	assert.Equal(t, 400, carrierErr.StatusCode)
}

func TestIsRetryable_CarrierError(t *testing.T) {
	retryable := carrier.NewCarrierError("ups", "120100", "try again").WithRetryable(true)
	assert.True(t, carrier.IsRetryable(retryable))

	fatal := carrier.NewCarrierError("ups", "120100", "no")
	assert.False(t, carrier.IsRetryable(fatal))
}

func TestIsRetryable_TimeoutError(t *testing.T) {
	quote := &carrier.TimeoutError{Carrier: "ups", Op: "rate", Limit: 30 * time.Second, Retryable: true}
	assert.True(t, carrier.IsRetryable(quote))

	create := &carrier.TimeoutError{Carrier: "ups", Op: "pickup", Limit: 30 * time.Second}
	assert.False(t, carrier.IsRetryable(create), "pickup creation timeouts must not be retried")
}

func TestIsRetryable_WrappedError(t *testing.T) {
	err := fmt.Errorf("quoting: %w", carrier.NewCarrierError("ups", "120100", "busy").WithRetryable(true))
	assert.True(t, carrier.IsRetryable(err))
}

func TestIsRetryable_GenericError(t *testing.T) {
	assert.False(t, carrier.IsRetryable(errors.New("something happened")))
}

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{"missing identifier", carrier.ErrMissingIdentifier, "missing pickup reference number"},
		{"no rate selected", carrier.ErrNoRateSelected, "no rate selected"},
		{"pickup exists", carrier.ErrPickupExists, "pickup already scheduled for this order"},
		{"carrier not found", carrier.ErrCarrierNotFound, "carrier not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.msg, tt.err.Error())
		})
	}
}
