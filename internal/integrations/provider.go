package integrations

import (
	"context"
	"errors"

	"field-crm/internal/integrations/geocode"
)

// ErrNotConfigured is returned by providers that lack credentials or an endpoint.
var ErrNotConfigured = errors.New("geocoding provider is not configured")

// ErrNoResults is returned when the provider answered but found nothing.
var ErrNoResults = errors.New("geocoding returned no results")

// GeocodingProvider resolves a free-text address. Implementations report every failure
// as an error; the caller decides how to degrade.
type GeocodingProvider interface {
	Name() string
	Geocode(ctx context.Context, address string) (*geocode.Result, error)
}
