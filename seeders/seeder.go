package seeders

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"field-crm/internal/authz"
	"field-crm/internal/dto"
	"field-crm/internal/services"
	"field-crm/internal/sync"
	"field-crm/pkg/service"
)

const demoTokenTTL = 30 * 24 * time.Hour

// SeedRoster pushes the demo technicians and salespeople through the same import path
// the HR sync endpoint uses, so running it twice only updates.
func SeedRoster(ctx context.Context, handler sync.HandlerInterface, logger *zap.Logger) error {
	logger.Info("seeding demo roster")

	techs, err := handler.ProcessTechnicians(ctx, techniciansData)
	if err != nil {
		return fmt.Errorf("seed technicians: %w", err)
	}
	sales, err := handler.ProcessSalespeople(ctx, salespeopleData)
	if err != nil {
		return fmt.Errorf("seed salespeople: %w", err)
	}

	logger.Info("demo roster seeded",
		zap.Int("techniciansCreated", techs.Created),
		zap.Int("techniciansUpdated", techs.Updated),
		zap.Int("salespeopleCreated", sales.Created),
		zap.Int("salespeopleUpdated", sales.Updated),
	)
	return nil
}

// SeedLocations gives every demo technician a fresh GPS fix.
func SeedLocations(ctx context.Context, techService services.TechnicianServiceInterface, logger *zap.Logger) error {
	for techID, coords := range locationsData {
		lat, lng := coords[0], coords[1]
		if _, err := techService.RecordLocation(ctx, techID, dto.RecordLocationDTO{Latitude: &lat, Longitude: &lng}); err != nil {
			return fmt.Errorf("seed location for %s: %w", techID, err)
		}
	}
	logger.Info("demo locations seeded", zap.Int("count", len(locationsData)))
	return nil
}

// DemoToken signs an admin token for trying the API by hand.
func DemoToken(jwtSvc service.JWTService) (string, error) {
	return jwtSvc.GenerateToken("admin-demo", authz.RoleAdmin, demoTokenTTL)
}
