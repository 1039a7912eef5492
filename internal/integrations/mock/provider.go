package mock

import (
	"context"
	"errors"
	"strings"
	"sync"

	"field-crm/internal/integrations"
	"field-crm/internal/integrations/geocode"
)

// Provider answers from an in-memory address table. Useful for local runs and tests.
type Provider struct {
	mu         sync.Mutex
	places     map[string]geocode.Result
	ShouldFail bool
	Calls      int
}

func NewMockProvider() *Provider {
	return &Provider{places: make(map[string]geocode.Result)}
}

func (m *Provider) Name() string {
	return "mock"
}

// Add registers coordinates for an address (matched case-insensitively).
func (m *Provider) Add(address string, lat, lng float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.places[normalize(address)] = geocode.Result{Lat: lat, Lng: lng, FormattedAddress: address}
}

func (m *Provider) Geocode(ctx context.Context, address string) (*geocode.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++

	if m.ShouldFail {
		return nil, errors.New("mock geocoder failure")
	}
	res, ok := m.places[normalize(address)]
	if !ok {
		return nil, integrations.ErrNoResults
	}
	return &res, nil
}

func normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
