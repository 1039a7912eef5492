package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"field-crm/internal/integrations"
	"field-crm/pkg/geo"
	"field-crm/pkg/metrics"
)

// GeocoderInterface resolves a free-form address. A nil result means the address could
// not be resolved; callers never see provider errors.
type GeocoderInterface interface {
	Geocode(ctx context.Context, address string) *geo.Coordinates
}

type geocodingService struct {
	registry integrations.RegistryInterface
	metrics  *metrics.Collector
	logger   *zap.Logger
}

func NewGeocodingService(registry integrations.RegistryInterface, collector *metrics.Collector, logger *zap.Logger) GeocoderInterface {
	return &geocodingService{
		registry: registry,
		metrics:  collector,
		logger:   logger,
	}
}

func (s *geocodingService) Geocode(ctx context.Context, address string) *geo.Coordinates {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil
	}

	provider, err := s.registry.GetActive()
	if err != nil {
		s.logger.Warn("geocoding skipped: no active provider", zap.Error(err))
		s.metrics.RecordGeocodeFailure()
		return nil
	}

	res, err := provider.Geocode(ctx, address)
	if err != nil || res == nil {
		s.logger.Warn("geocoding failed",
			zap.String("provider", provider.Name()),
			zap.String("address", address),
			zap.Error(err),
		)
		s.metrics.RecordGeocodeFailure()
		return nil
	}

	return &geo.Coordinates{Lat: res.Lat, Lng: res.Lng}
}
