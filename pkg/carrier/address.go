package carrier

import (
	"strings"
)

// ParseAddress builds an Address from a single comma-delimited line.
// Segments are assigned left-to-right: street, city, "province postalCode"
// (the third segment is split on whitespace). Empty segments fall back to
// the corresponding field of prev, so a partial edit keeps known values.
// The input is never mutated; a fresh Address value is returned.
func ParseAddress(freeText string, prev Address) Address {
	out := prev

	parts := strings.Split(freeText, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	if len(parts) > 0 && parts[0] != "" {
		out.Street = parts[0]
	}
	if len(parts) > 1 && parts[1] != "" {
		out.City = parts[1]
	}
	if len(parts) > 2 && parts[2] != "" {
		fields := strings.Fields(parts[2])
		switch len(fields) {
		case 1:
			out.Province = fields[0]
		default:
			out.Province = strings.Join(fields[:len(fields)-1], " ")
			out.PostalCode = fields[len(fields)-1]
		}
	}

	return out
}

// Validate checks that the fields every rate and pickup request requires
// are present. It runs before any network call; a failure here is a local
// ValidationError, never a carrier error.
func (a Address) Validate() error {
	var missing []string
	if strings.TrimSpace(a.Street) == "" {
		missing = append(missing, "street")
	}
	if strings.TrimSpace(a.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		missing = append(missing, "postalCode")
	}
	if len(missing) > 0 {
		return &ValidationError{MissingFields: missing}
	}
	return nil
}
