package carrier_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/pickup/pkg/carrier"
)

func TestParseAddress_FullLine(t *testing.T) {
	addr := carrier.ParseAddress("1 Main St, Paris, TX 75001", carrier.Address{})

	assert.Equal(t, "1 Main St", addr.Street)
	assert.Equal(t, "Paris", addr.City)
	assert.Equal(t, "TX", addr.Province)
	assert.Equal(t, "75001", addr.PostalCode)
}

func TestParseAddress_ThirdSegmentPostalOnly(t *testing.T) {
	addr := carrier.ParseAddress("1 Main St, Paris, 75001", carrier.Address{})

	// A single token in the third segment is treated as the province slot;
	// the postal code keeps its previous value.
	assert.Equal(t, "75001", addr.Province)
	assert.Empty(t, addr.PostalCode)
}

func TestParseAddress_EmptySegmentsFallBack(t *testing.T) {
	prev := carrier.Address{
		Street:     "1 Main St",
		City:       "Paris",
		Province:   "TX",
		PostalCode: "75001",
	}

	addr := carrier.ParseAddress(", Lyon,", prev)

	assert.Equal(t, "1 Main St", addr.Street, "empty street segment keeps previous value")
	assert.Equal(t, "Lyon", addr.City)
	assert.Equal(t, "TX", addr.Province)
	assert.Equal(t, "75001", addr.PostalCode)
}

func TestParseAddress_DoesNotMutateInput(t *testing.T) {
	prev := carrier.Address{Street: "1 Main St", City: "Paris", PostalCode: "75001"}

	_ = carrier.ParseAddress("2 Oak Ave, Lyon, RA 69001", prev)

	assert.Equal(t, "1 Main St", prev.Street)
	assert.Equal(t, "Paris", prev.City)
	assert.Equal(t, "75001", prev.PostalCode)
}

func TestParseAddress_MultiWordProvince(t *testing.T) {
	addr := carrier.ParseAddress("12 Rue de Rivoli, Montreal, New Brunswick E1A4P8", carrier.Address{})

	assert.Equal(t, "New Brunswick", addr.Province)
	assert.Equal(t, "E1A4P8", addr.PostalCode)
}

func TestAddress_Validate_Complete(t *testing.T) {
	addr := carrier.Address{Street: "1 Main St", City: "Paris", PostalCode: "75001"}
	assert.NoError(t, addr.Validate())
}

func TestAddress_Validate_MissingPostalCode(t *testing.T) {
	addr := carrier.Address{Street: "1 Main St", City: "Paris"}

	err := addr.Validate()
	require.Error(t, err)

	var validationErr *carrier.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, []string{"postalCode"}, validationErr.MissingFields)
}

func TestAddress_Validate_AllMissing(t *testing.T) {
	err := carrier.Address{}.Validate()
	require.Error(t, err)

	var validationErr *carrier.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, []string{"street", "city", "postalCode"}, validationErr.MissingFields)
}

func TestAddress_Validate_WhitespaceOnly(t *testing.T) {
	addr := carrier.Address{Street: "  ", City: "Paris", PostalCode: "75001"}

	err := addr.Validate()
	require.Error(t, err)

	var validationErr *carrier.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Contains(t, validationErr.MissingFields, "street")
}
