package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"field-crm/internal/dto"
	"field-crm/internal/entities"
	"field-crm/internal/repositories"
	"field-crm/pkg/constants"
	apperrors "field-crm/pkg/errors"
	"field-crm/pkg/geo"
	"field-crm/pkg/metrics"
	"field-crm/pkg/utils"
)

const (
	dispatchErrGeocode      = "could not geocode address"
	dispatchErrNoCandidates = "no available technicians with location data"
	dispatchErrAllClaimed   = "every nearby technician was taken by another dispatch"
)

type DispatchServiceInterface interface {
	// DispatchToClosest picks the nearest available technician with a known location.
	// Business failures are reported in the result; the error is for infrastructure faults.
	DispatchToClosest(ctx context.Context, req dto.DispatchDTO) (*dto.DispatchResultDTO, error)
}

type DispatchService struct {
	jobRepo      repositories.JobRepositoryInterface
	techRepo     repositories.TechnicianRepositoryInterface
	locationRepo repositories.LocationRepositoryInterface
	contactRepo  repositories.ContactAttemptRepositoryInterface
	geocoder     GeocoderInterface
	notifier     NotificationServiceInterface
	maxAge       time.Duration
	now          func() time.Time
	metrics      *metrics.Collector
	logger       *zap.Logger
}

func NewDispatchService(
	jobRepo repositories.JobRepositoryInterface,
	techRepo repositories.TechnicianRepositoryInterface,
	locationRepo repositories.LocationRepositoryInterface,
	contactRepo repositories.ContactAttemptRepositoryInterface,
	geocoder GeocoderInterface,
	notifier NotificationServiceInterface,
	maxLocationAge time.Duration,
	collector *metrics.Collector,
	logger *zap.Logger,
) DispatchServiceInterface {
	return &DispatchService{
		jobRepo:      jobRepo,
		techRepo:     techRepo,
		locationRepo: locationRepo,
		contactRepo:  contactRepo,
		geocoder:     geocoder,
		notifier:     notifier,
		maxAge:       maxLocationAge,
		now:          time.Now,
		metrics:      collector,
		logger:       logger,
	}
}

type candidate struct {
	tech     entities.Technician
	location entities.TechnicianLocation
	distance float64
}

func (s *DispatchService) DispatchToClosest(ctx context.Context, req dto.DispatchDTO) (*dto.DispatchResultDTO, error) {
	jobID := utils.SafeDeref(req.JobID)
	if req.Reserve {
		if jobID == "" {
			return nil, apperrors.NewInvalidInputError("reserve requires jobId")
		}
		if err := s.checkReservable(ctx, jobID); err != nil {
			return nil, err
		}
	}

	coords := s.geocoder.Geocode(ctx, req.Address)
	if coords == nil {
		s.metrics.RecordDispatch("geocode_failed", 0)
		return &dto.DispatchResultDTO{Success: false, Error: dispatchErrGeocode}, nil
	}

	candidates, err := s.rank(ctx, *coords)
	if err != nil {
		s.logger.Error("dispatch: failed to load candidates", zap.Error(err))
		return nil, err
	}
	if len(candidates) == 0 {
		s.metrics.RecordDispatch("no_candidates", 0)
		return &dto.DispatchResultDTO{Success: false, Coordinates: coords, Error: dispatchErrNoCandidates}, nil
	}

	chosen := &candidates[0]
	reserved := false
	if req.Reserve {
		chosen = nil
		for i := range candidates {
			ok, err := s.techRepo.Claim(ctx, nil, candidates[i].tech.ID, jobID)
			if err != nil {
				return nil, err
			}
			if ok {
				chosen = &candidates[i]
				reserved = true
				break
			}
			s.logger.Info("dispatch: candidate claimed elsewhere, trying next",
				zap.String("technicianID", candidates[i].tech.ID),
				zap.String("jobID", jobID),
			)
		}
		if chosen == nil {
			s.metrics.RecordDispatch("all_claimed", 0)
			return &dto.DispatchResultDTO{Success: false, Coordinates: coords, Error: dispatchErrAllClaimed}, nil
		}
	}

	miles := geo.RoundTo(geo.MetersToMiles(chosen.distance), 1)
	result := &dto.DispatchResultDTO{
		Success:        true,
		Technician:     &chosen.tech,
		Location:       &chosen.location,
		DistanceMeters: geo.RoundTo(chosen.distance, 1),
		DistanceMiles:  miles,
		Coordinates:    coords,
		Reserved:       reserved,
	}

	if req.SendEmail == nil || *req.SendEmail {
		res := s.notifier.SendDispatchEmail(ctx, &chosen.tech, DispatchEmail{
			JobID:         jobID,
			Address:       req.Address,
			CustomerName:  utils.SafeDeref(req.CustomerName),
			ServiceType:   utils.SafeDeref(req.ServiceType),
			DistanceMiles: miles,
		})
		result.EmailSent = res.Success
		s.recordContact(ctx, &chosen.tech, jobID, constants.ContactChannelEmail, res.Success, res.MessageID, res.Error)
	} else {
		s.recordContact(ctx, &chosen.tech, jobID, constants.ContactChannelNone, false, "", "email not requested")
	}

	s.metrics.RecordDispatch("success", chosen.distance)
	s.logger.Info("dispatch: technician selected",
		zap.String("technicianID", chosen.tech.ID),
		zap.String("jobID", jobID),
		zap.Float64("distanceMeters", result.DistanceMeters),
		zap.Bool("reserved", reserved),
		zap.Bool("emailSent", result.EmailSent),
	)
	return result, nil
}

// checkReservable fails before anyone is reserved for an unknown job, a job past
// pending, or a job someone already holds.
func (s *DispatchService) checkReservable(ctx context.Context, jobID string) error {
	job, err := s.jobRepo.FindByID(ctx, nil, jobID)
	if err != nil {
		return err
	}
	if job.Status != constants.JobStatusPending {
		return fmt.Errorf("%w: job %s is %s", apperrors.ErrJobNotReservable, jobID, job.Status)
	}
	holders, err := s.techRepo.FindByCurrentJob(ctx, nil, jobID)
	if err != nil {
		return err
	}
	if len(holders) > 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrJobAlreadyHeld, holders[0].Name)
	}
	return nil
}

// rank orders available technicians by distance to target. Ties keep repository order.
func (s *DispatchService) rank(ctx context.Context, target geo.Coordinates) ([]candidate, error) {
	techs, err := s.techRepo.ListAvailable(ctx, nil)
	if err != nil {
		return nil, err
	}
	if len(techs) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(techs))
	for _, t := range techs {
		ids = append(ids, t.ID)
	}
	latest, err := s.locationRepo.FindLatestFor(ctx, nil, ids)
	if err != nil {
		return nil, err
	}

	now := s.now()
	candidates := make([]candidate, 0, len(techs))
	for _, t := range techs {
		loc, ok := latest[t.ID]
		if !ok {
			continue
		}
		if s.maxAge > 0 && now.Sub(loc.CreatedAt) > s.maxAge {
			continue
		}
		candidates = append(candidates, candidate{
			tech:     t,
			location: loc,
			distance: geo.Distance(loc.Coordinates(), target),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})
	return candidates, nil
}

func (s *DispatchService) recordContact(ctx context.Context, tech *entities.Technician, jobID, channel string, success bool, messageID, errMsg string) {
	attempt := &entities.ContactAttempt{
		ID:           uuid.NewString(),
		TechnicianID: tech.ID,
		JobID:        optionalString(jobID),
		Channel:      channel,
		Recipient:    tech.Email,
		Subject:      null.StringFrom("dispatch"),
		Success:      success,
		MessageID:    optionalString(messageID),
		Error:        optionalString(errMsg),
	}
	if err := s.contactRepo.Create(ctx, nil, attempt); err != nil {
		s.logger.Warn("dispatch: failed to record contact attempt",
			zap.String("technicianID", tech.ID),
			zap.Error(err),
		)
	}
}
