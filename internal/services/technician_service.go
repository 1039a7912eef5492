package services

import (
	"context"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"field-crm/internal/dto"
	"field-crm/internal/entities"
	"field-crm/internal/repositories"
	apperrors "field-crm/pkg/errors"
)

type TechnicianServiceInterface interface {
	Get(ctx context.Context, id string) (*entities.Technician, error)
	ListAvailable(ctx context.Context) ([]entities.Technician, error)
	RecordLocation(ctx context.Context, technicianID string, data dto.RecordLocationDTO) (*entities.TechnicianLocation, error)
	LatestLocation(ctx context.Context, technicianID string) (*entities.TechnicianLocation, error)
	// ResetDailyCounters zeroes completedJobsToday for every technician.
	ResetDailyCounters(ctx context.Context) (int64, error)
}

type TechnicianService struct {
	txManager    repositories.TxManagerInterface
	techRepo     repositories.TechnicianRepositoryInterface
	locationRepo repositories.LocationRepositoryInterface
	now          func() time.Time
	logger       *zap.Logger
}

func NewTechnicianService(
	txManager repositories.TxManagerInterface,
	techRepo repositories.TechnicianRepositoryInterface,
	locationRepo repositories.LocationRepositoryInterface,
	logger *zap.Logger,
) TechnicianServiceInterface {
	return &TechnicianService{
		txManager:    txManager,
		techRepo:     techRepo,
		locationRepo: locationRepo,
		now:          time.Now,
		logger:       logger,
	}
}

func (s *TechnicianService) Get(ctx context.Context, id string) (*entities.Technician, error) {
	return s.techRepo.FindByID(ctx, nil, id)
}

func (s *TechnicianService) ListAvailable(ctx context.Context) ([]entities.Technician, error) {
	return s.techRepo.ListAvailable(ctx, nil)
}

func (s *TechnicianService) LatestLocation(ctx context.Context, technicianID string) (*entities.TechnicianLocation, error) {
	if _, err := s.techRepo.FindByID(ctx, nil, technicianID); err != nil {
		return nil, err
	}
	return s.locationRepo.FindLatest(ctx, nil, technicianID)
}

// RecordLocation appends a GPS sample and refreshes the technician's last known position.
func (s *TechnicianService) RecordLocation(ctx context.Context, technicianID string, data dto.RecordLocationDTO) (*entities.TechnicianLocation, error) {
	if data.Latitude == nil || data.Longitude == nil {
		return nil, apperrors.NewInvalidInputError("latitude and longitude are required")
	}

	loc := &entities.TechnicianLocation{
		ID:           uuid.NewString(),
		TechnicianID: technicianID,
		Latitude:     *data.Latitude,
		Longitude:    *data.Longitude,
		Accuracy:     null.Float64FromPtr(data.Accuracy),
		Speed:        null.Float64FromPtr(data.Speed),
		Heading:      null.Float64FromPtr(data.Heading),
		Altitude:     null.Float64FromPtr(data.Altitude),
		IsMoving:     data.IsMoving,
		JobID:        null.StringFromPtr(data.JobID),
		CreatedAt:    s.now().UTC(),
	}

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := s.techRepo.FindByID(ctx, tx, technicianID); err != nil {
			return err
		}
		if err := s.locationRepo.Create(ctx, tx, loc); err != nil {
			return err
		}
		return s.techRepo.UpdateLastLocation(ctx, tx, technicianID, loc.Latitude, loc.Longitude, loc.CreatedAt)
	})
	if err != nil {
		s.logger.Warn("failed to record technician location", zap.String("technicianID", technicianID), zap.Error(err))
		return nil, err
	}
	return loc, nil
}

func (s *TechnicianService) ResetDailyCounters(ctx context.Context) (int64, error) {
	n, err := s.techRepo.ResetDailyCounters(ctx)
	if err != nil {
		s.logger.Error("failed to reset daily job counters", zap.Error(err))
		return 0, err
	}
	s.logger.Info("daily job counters reset", zap.Int64("technicians", n))
	return n, nil
}
