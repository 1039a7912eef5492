package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"field-crm/internal/dto"
	"field-crm/internal/entities"
	"field-crm/internal/events"
	"field-crm/internal/repositories"
	"field-crm/pkg/config"
	"field-crm/pkg/constants"
	apperrors "field-crm/pkg/errors"
	"field-crm/pkg/eventbus"
	"field-crm/pkg/geo"
	"field-crm/pkg/metrics"
	"field-crm/pkg/utils"
)

type JobLifecycleServiceInterface interface {
	Create(ctx context.Context, data dto.CreateJobDTO) (*entities.Job, error)
	Get(ctx context.Context, id string) (*entities.Job, error)
	List(ctx context.Context, filter dto.JobFilter) ([]entities.Job, uint64, error)

	Assign(ctx context.Context, jobID string, data dto.AssignJobDTO) (*entities.Job, error)
	Confirm(ctx context.Context, jobID string, data dto.TransitionDTO) (*entities.Job, error)
	EnRoute(ctx context.Context, jobID string, data dto.TransitionDTO) (*entities.Job, error)
	Arrive(ctx context.Context, jobID string, data dto.ArriveJobDTO) (*entities.Job, error)
	Start(ctx context.Context, jobID string, data dto.TransitionDTO) (*entities.Job, error)
	Complete(ctx context.Context, jobID string, data dto.CompleteJobDTO) (*entities.Job, error)
	Cancel(ctx context.Context, jobID string, data dto.CancelJobDTO) (*entities.Job, error)

	UpdateCosts(ctx context.Context, jobID string, data dto.UpdateCostsDTO) (*entities.Job, error)
	RecordQuoteSent(ctx context.Context, jobID string, data dto.QuoteSentDTO) (*entities.JobTimelineEvent, error)
}

// EventPublisher is the part of the event bus the services need.
type EventPublisher interface {
	Publish(ctx context.Context, event eventbus.Event)
}

type JobLifecycleService struct {
	txManager    repositories.TxManagerInterface
	jobRepo      repositories.JobRepositoryInterface
	techRepo     repositories.TechnicianRepositoryInterface
	timelineRepo repositories.TimelineRepositoryInterface
	geocoder     GeocoderInterface
	publisher    EventPublisher
	metrics      *metrics.Collector
	cfg          config.DispatchConfig
	now          func() time.Time
	logger       *zap.Logger
}

func NewJobLifecycleService(
	txManager repositories.TxManagerInterface,
	jobRepo repositories.JobRepositoryInterface,
	techRepo repositories.TechnicianRepositoryInterface,
	timelineRepo repositories.TimelineRepositoryInterface,
	geocoder GeocoderInterface,
	publisher EventPublisher,
	collector *metrics.Collector,
	cfg config.DispatchConfig,
	logger *zap.Logger,
) JobLifecycleServiceInterface {
	return &JobLifecycleService{
		txManager:    txManager,
		jobRepo:      jobRepo,
		techRepo:     techRepo,
		timelineRepo: timelineRepo,
		geocoder:     geocoder,
		publisher:    publisher,
		metrics:      collector,
		cfg:          cfg,
		now:          time.Now,
		logger:       logger,
	}
}

// outcome is what a transition step reports back for the timeline entry.
type outcome struct {
	description string
	metadata    entities.TimelineMetadata
	technician  *entities.Technician
}

type stepFunc func(ctx context.Context, tx pgx.Tx, job *entities.Job, at time.Time) (*outcome, error)

func (s *JobLifecycleService) Create(ctx context.Context, data dto.CreateJobDTO) (*entities.Job, error) {
	priority := data.Priority
	if priority == "" {
		priority = constants.PriorityNormal
	}

	job := &entities.Job{
		ID:            uuid.NewString(),
		CustomerName:  strings.TrimSpace(data.CustomerName),
		CustomerPhone: null.StringFromPtr(data.CustomerPhone),
		CustomerEmail: null.StringFromPtr(data.CustomerEmail),
		Address:       strings.TrimSpace(data.Address),
		City:          null.StringFromPtr(data.City),
		Zip:           null.StringFromPtr(data.Zip),
		ServiceType:   data.ServiceType,
		LeadID:        null.StringFromPtr(data.LeadID),
		SalespersonID: null.StringFromPtr(data.SalespersonID),
		Status:        constants.JobStatusPending,
		Priority:      priority,
	}
	if job.CustomerPhone.Valid {
		job.CustomerPhone.String = utils.NormalizeUSPhoneNumber(job.CustomerPhone.String)
	}

	if s.geocoder != nil {
		if coords := s.geocoder.Geocode(ctx, job.FullAddress()); coords != nil {
			job.Latitude = null.Float64From(coords.Lat)
			job.Longitude = null.Float64From(coords.Lng)
		}
	}

	actorID, _ := utils.ResolveActor(ctx, data.ActorID)
	var timeline *entities.JobTimelineEvent

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		if err := s.jobRepo.Create(ctx, tx, job); err != nil {
			return err
		}
		timeline = s.newTimelineEvent(job.ID, constants.EventCreated, "Job created for "+job.CustomerName, actorID, nil)
		return s.timelineRepo.Create(ctx, tx, timeline)
	})
	if err != nil {
		s.logger.Error("failed to create job", zap.Error(err))
		return nil, err
	}

	s.logger.Info("job created",
		zap.String("jobID", job.ID),
		zap.String("actorID", actorID),
		zap.Bool("geocoded", job.Latitude.Valid),
	)
	s.metrics.RecordTransition(TransitionCreate)
	s.publish(ctx, job, timeline, TransitionCreate, actorID, nil)
	return job, nil
}

func (s *JobLifecycleService) Get(ctx context.Context, id string) (*entities.Job, error) {
	return s.jobRepo.FindByID(ctx, nil, id)
}

func (s *JobLifecycleService) List(ctx context.Context, filter dto.JobFilter) ([]entities.Job, uint64, error) {
	return s.jobRepo.List(ctx, filter)
}

func (s *JobLifecycleService) Assign(ctx context.Context, jobID string, data dto.AssignJobDTO) (*entities.Job, error) {
	actorID, _ := utils.ResolveActor(ctx, data.ActorID)
	techID := strings.TrimSpace(data.TechnicianID)
	if techID == "" {
		return nil, apperrors.NewInvalidInputError("technicianId is required")
	}

	return s.apply(ctx, jobID, actorID, ruleAssign, func(ctx context.Context, tx pgx.Tx, job *entities.Job, at time.Time) (*outcome, error) {
		tech, err := s.techRepo.FindByID(ctx, tx, techID)
		if err != nil {
			return nil, err
		}
		if !tech.IsApprovedFor(job.ServiceType) {
			return nil, apperrors.NewInvalidInputError("technician %s is not approved for %q jobs", tech.Name, job.ServiceType)
		}
		if tech.HasReachedDailyCap() {
			return nil, apperrors.NewInvalidInputError("technician %s has reached the daily limit of %d jobs", tech.Name, tech.MaxDailyJobs)
		}

		// Anyone else still holding this job, a previous assignee or a dispatch
		// reservation, is let go.
		if _, err := s.techRepo.ReleaseHolders(ctx, tx, job.ID, tech.ID); err != nil {
			return nil, err
		}

		job.AssignedTechnicianID = null.StringFrom(tech.ID)
		job.DispatcherID = optionalString(actorID)
		job.AssignedAt = null.TimeFrom(at)

		return &outcome{
			description: "Assigned to " + tech.Name,
			metadata: entities.AssignedMetadata{
				TechnicianID: tech.ID,
				DispatcherID: optionalString(actorID),
			},
			technician: tech,
		}, nil
	})
}

func (s *JobLifecycleService) Confirm(ctx context.Context, jobID string, data dto.TransitionDTO) (*entities.Job, error) {
	actorID, _ := utils.ResolveActor(ctx, data.ActorID)
	return s.apply(ctx, jobID, actorID, ruleConfirm, func(ctx context.Context, tx pgx.Tx, job *entities.Job, at time.Time) (*outcome, error) {
		job.ConfirmedAt = null.TimeFrom(at)
		return &outcome{description: "Appointment confirmed with customer"}, nil
	})
}

func (s *JobLifecycleService) EnRoute(ctx context.Context, jobID string, data dto.TransitionDTO) (*entities.Job, error) {
	actorID, _ := utils.ResolveActor(ctx, data.ActorID)
	return s.apply(ctx, jobID, actorID, ruleEnRoute, func(ctx context.Context, tx pgx.Tx, job *entities.Job, at time.Time) (*outcome, error) {
		if !job.AssignedTechnicianID.Valid {
			return nil, apperrors.NewInvalidInputError("job has no assigned technician")
		}
		techID := job.AssignedTechnicianID.String

		claimed, err := s.techRepo.Claim(ctx, tx, techID, job.ID)
		if err != nil {
			return nil, err
		}
		if !claimed {
			return nil, apperrors.ErrTechnicianUnavailable
		}
		tech, err := s.techRepo.FindByID(ctx, tx, techID)
		if err != nil {
			return nil, err
		}

		job.EnRouteAt = null.TimeFrom(at)
		return &outcome{description: tech.Name + " is on the way", technician: tech}, nil
	})
}

func (s *JobLifecycleService) Arrive(ctx context.Context, jobID string, data dto.ArriveJobDTO) (*entities.Job, error) {
	actorID, _ := utils.ResolveActor(ctx, data.ActorID)
	return s.apply(ctx, jobID, actorID, ruleArrive, func(ctx context.Context, tx pgx.Tx, job *entities.Job, at time.Time) (*outcome, error) {
		job.ArrivedAt = null.TimeFrom(at)

		meta := entities.ArrivedMetadata{}
		description := "Technician arrived on site (location not verified)"

		if data.Latitude != nil && data.Longitude != nil {
			lat, lng := *data.Latitude, *data.Longitude
			job.ArrivalLat = null.Float64From(lat)
			job.ArrivalLng = null.Float64From(lng)
			meta.Lat = job.ArrivalLat
			meta.Lng = job.ArrivalLng

			if site := job.Coordinates(); site != nil {
				check := geo.WithinRadius(lat, lng, site.Lat, site.Lng, s.arrivalRadius())
				distance := check.Distance
				job.ArrivalVerified = null.BoolFrom(check.IsWithin)
				job.ArrivalDistance = null.Float64From(distance)
				meta.ArrivalVerified = job.ArrivalVerified
				meta.ArrivalDistance = job.ArrivalDistance

				if check.IsWithin {
					description = fmt.Sprintf("Technician arrived on site (verified, %.0f m from job address)", distance)
				} else {
					description = fmt.Sprintf("Technician arrived on site (outside geofence, %.0f m from job address)", distance)
				}
			}
		}

		return &outcome{description: description, metadata: meta}, nil
	})
}

func (s *JobLifecycleService) Start(ctx context.Context, jobID string, data dto.TransitionDTO) (*entities.Job, error) {
	actorID, _ := utils.ResolveActor(ctx, data.ActorID)
	return s.apply(ctx, jobID, actorID, ruleStart, func(ctx context.Context, tx pgx.Tx, job *entities.Job, at time.Time) (*outcome, error) {
		job.StartedAt = null.TimeFrom(at)
		return &outcome{description: "Work started"}, nil
	})
}

func (s *JobLifecycleService) Complete(ctx context.Context, jobID string, data dto.CompleteJobDTO) (*entities.Job, error) {
	actorID, _ := utils.ResolveActor(ctx, data.ActorID)
	return s.apply(ctx, jobID, actorID, ruleComplete, func(ctx context.Context, tx pgx.Tx, job *entities.Job, at time.Time) (*outcome, error) {
		if data.CostUpdateDTO.HasAny() {
			*job = Reconcile(*job, data.CostUpdateDTO, s.cfg.DefaultLaborRate)
		}
		job.CompletedAt = null.TimeFrom(at)

		var tech *entities.Technician
		if job.AssignedTechnicianID.Valid {
			techID := job.AssignedTechnicianID.String
			if err := s.techRepo.CompleteJob(ctx, tx, techID, job.ID); err != nil {
				return nil, err
			}
			t, err := s.techRepo.FindByID(ctx, tx, techID)
			if err != nil {
				return nil, err
			}
			tech = t
		}

		return &outcome{
			description: "Job completed" + financialSummary(job),
			metadata:    entities.CompletedMetadata{FinancialSnapshot: entities.SnapshotOf(job)},
			technician:  tech,
		}, nil
	})
}

func (s *JobLifecycleService) Cancel(ctx context.Context, jobID string, data dto.CancelJobDTO) (*entities.Job, error) {
	actorID, err := utils.ResolveActor(ctx, data.ActorID)
	if err != nil {
		return nil, apperrors.NewInvalidInputError("cancellation requires an actor")
	}
	reason := strings.TrimSpace(data.Reason)
	if reason == "" {
		return nil, apperrors.NewInvalidInputError("cancellation requires a reason")
	}

	return s.apply(ctx, jobID, actorID, ruleCancel, func(ctx context.Context, tx pgx.Tx, job *entities.Job, at time.Time) (*outcome, error) {
		job.CancelledAt = null.TimeFrom(at)
		job.CancelledBy = null.StringFrom(actorID)
		job.CancellationReason = null.StringFrom(reason)

		meta := entities.CancelledMetadata{Reason: reason}
		freed, err := s.techRepo.ReleaseHolders(ctx, tx, job.ID, "")
		if err != nil {
			return nil, err
		}
		for _, id := range freed {
			if !meta.FreedTechnicianID.Valid || id == job.AssignedTechnicianID.String {
				meta.FreedTechnicianID = null.StringFrom(id)
			}
		}

		return &outcome{description: "Job cancelled: " + reason, metadata: meta}, nil
	})
}

func (s *JobLifecycleService) UpdateCosts(ctx context.Context, jobID string, data dto.UpdateCostsDTO) (*entities.Job, error) {
	if !data.CostUpdateDTO.HasAny() {
		return nil, apperrors.NewInvalidInputError("no cost fields supplied")
	}
	actorID, _ := utils.ResolveActor(ctx, data.ActorID)

	return s.apply(ctx, jobID, actorID, ruleUpdateCosts, func(ctx context.Context, tx pgx.Tx, job *entities.Job, at time.Time) (*outcome, error) {
		*job = Reconcile(*job, data.CostUpdateDTO, s.cfg.DefaultLaborRate)
		return &outcome{
			description: "Costs updated" + financialSummary(job),
			metadata:    entities.CostsUpdatedMetadata{FinancialSnapshot: entities.SnapshotOf(job)},
		}, nil
	})
}

// RecordQuoteSent appends a quote_sent entry without touching the job row.
func (s *JobLifecycleService) RecordQuoteSent(ctx context.Context, jobID string, data dto.QuoteSentDTO) (*entities.JobTimelineEvent, error) {
	actorID, _ := utils.ResolveActor(ctx, data.ActorID)

	meta := entities.QuoteSentMetadata{Note: null.StringFromPtr(data.Note)}
	description := "Quote sent to customer"
	if data.Amount != nil {
		meta.Amount = money(*data.Amount)
		description = fmt.Sprintf("Quote of $%s sent to customer", meta.Amount.Decimal.StringFixed(moneyPlaces))
	}

	var event *entities.JobTimelineEvent
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		job, err := s.jobRepo.FindByID(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if !ruleQuoteSent.allows(job.Status) {
			return apperrors.NewInvalidTransitionError(job.Status, ruleQuoteSent.name)
		}
		event = s.newTimelineEvent(job.ID, ruleQuoteSent.event, description, actorID, meta)
		return s.timelineRepo.Create(ctx, tx, event)
	})
	if err != nil {
		s.recordFailure(jobID, actorID, ruleQuoteSent, err)
		return nil, err
	}

	s.metrics.RecordTransition(ruleQuoteSent.name)
	s.logger.Info("quote recorded", zap.String("jobID", jobID), zap.String("actorID", actorID))
	return event, nil
}

// apply runs one transition atomically: load, check the predecessor, run step, persist the
// job, append the timeline entry. Any error rolls the whole unit back.
func (s *JobLifecycleService) apply(ctx context.Context, jobID, actorID string, rule transitionRule, step stepFunc) (*entities.Job, error) {
	var (
		result   *entities.Job
		timeline *entities.JobTimelineEvent
		tech     *entities.Technician
	)

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		job, err := s.jobRepo.FindByID(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if !rule.allows(job.Status) {
			return apperrors.NewInvalidTransitionError(job.Status, rule.target(job.Status))
		}

		at := s.stamp(job)
		out, err := step(ctx, tx, job, at)
		if err != nil {
			return err
		}
		job.Status = rule.target(job.Status)

		if err := s.jobRepo.Update(ctx, tx, job); err != nil {
			return err
		}
		timeline = s.newTimelineEvent(job.ID, rule.event, out.description, actorID, out.metadata)
		if err := s.timelineRepo.Create(ctx, tx, timeline); err != nil {
			return err
		}

		result = job
		tech = out.technician
		return nil
	})
	if err != nil {
		s.recordFailure(jobID, actorID, rule, err)
		return nil, err
	}

	s.metrics.RecordTransition(rule.name)
	s.logger.Info("job transitioned",
		zap.String("jobID", jobID),
		zap.String("transition", rule.name),
		zap.String("status", result.Status),
		zap.String("actorID", actorID),
	)
	s.publish(ctx, result, timeline, rule.name, actorID, tech)
	return result, nil
}

func (s *JobLifecycleService) publish(ctx context.Context, job *entities.Job, timeline *entities.JobTimelineEvent, transition, actorID string, tech *entities.Technician) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, events.JobTransitionedEvent{
		Job:        *job,
		Timeline:   *timeline,
		Transition: transition,
		ActorID:    actorID,
		Technician: tech,
	})
}

func (s *JobLifecycleService) recordFailure(jobID, actorID string, rule transitionRule, err error) {
	reason := failureReason(err)
	s.metrics.RecordTransitionFailure(rule.name, reason)

	fields := []zap.Field{
		zap.String("jobID", jobID),
		zap.String("transition", rule.name),
		zap.String("actorID", actorID),
		zap.Error(err),
	}
	if reason == "internal" {
		s.logger.Error("job transition failed", fields...)
		return
	}
	s.logger.Warn("job transition rejected", fields...)
}

func (s *JobLifecycleService) newTimelineEvent(jobID, eventType, description, actorID string, meta entities.TimelineMetadata) *entities.JobTimelineEvent {
	return &entities.JobTimelineEvent{
		ID:          uuid.NewString(),
		JobID:       jobID,
		EventType:   eventType,
		Description: description,
		CreatedBy:   optionalString(actorID),
		Metadata:    meta,
	}
}

// stamp never goes backwards relative to the lifecycle timestamps already on the job.
func (s *JobLifecycleService) stamp(job *entities.Job) time.Time {
	at := s.now().UTC()
	for _, t := range []null.Time{
		job.AssignedAt, job.ConfirmedAt, job.EnRouteAt, job.ArrivedAt,
		job.StartedAt, job.CompletedAt, job.CancelledAt,
	} {
		if t.Valid && t.Time.After(at) {
			at = t.Time
		}
	}
	return at
}

func (s *JobLifecycleService) arrivalRadius() float64 {
	if s.cfg.ArrivalRadiusMeters > 0 {
		return s.cfg.ArrivalRadiusMeters
	}
	return geo.DefaultArrivalRadiusMeters
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, apperrors.ErrConcurrentUpdate), errors.Is(err, apperrors.ErrJobAlreadyHeld):
		return "conflict"
	case errors.Is(err, apperrors.ErrTechnicianUnavailable):
		return "technician_unavailable"
	case errors.Is(err, apperrors.ErrValidation):
		return "validation"
	case apperrors.IsNotFound(err):
		return "not_found"
	default:
		return "internal"
	}
}

func financialSummary(job *entities.Job) string {
	if !job.TotalCost.Valid {
		return ""
	}
	summary := fmt.Sprintf(" (cost $%s", job.TotalCost.Decimal.StringFixed(moneyPlaces))
	if job.TotalRevenue.Valid {
		summary += fmt.Sprintf(", revenue $%s, profit $%s",
			job.TotalRevenue.Decimal.StringFixed(moneyPlaces),
			job.Profit.Decimal.StringFixed(moneyPlaces))
	}
	return summary + ")"
}

func optionalString(s string) null.String {
	if s == "" {
		return null.String{}
	}
	return null.StringFrom(s)
}
