package services

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"field-crm/internal/dto"
	"field-crm/internal/entities"
	"field-crm/internal/events"
	"field-crm/pkg/config"
	"field-crm/pkg/constants"
	"field-crm/pkg/contextkeys"
	apperrors "field-crm/pkg/errors"
	"field-crm/pkg/geo"
	"field-crm/pkg/utils"
)

const siteAddress = "100 Congress Ave, Austin 78701"

var site = geo.Coordinates{Lat: 30.2672, Lng: -97.7431}

type JobLifecycleTestSuite struct {
	suite.Suite

	ctx       context.Context
	store     *store
	clock     *fixedClock
	tx        *fakeTxManager
	jobRepo   *fakeJobRepo
	techRepo  *fakeTechRepo
	timeline  *fakeTimelineRepo
	publisher *fakePublisher
	svc       *JobLifecycleService
}

func TestJobLifecycleTestSuite(t *testing.T) {
	suite.Run(t, new(JobLifecycleTestSuite))
}

func (s *JobLifecycleTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = newStore()
	s.clock = newClock()
	s.tx = &fakeTxManager{store: s.store}
	s.jobRepo = &fakeJobRepo{store: s.store}
	s.techRepo = &fakeTechRepo{store: s.store}
	s.timeline = &fakeTimelineRepo{store: s.store, now: s.clock.Now}
	s.publisher = &fakePublisher{}

	geocoder := &fakeGeocoder{places: map[string]geo.Coordinates{siteAddress: site}}
	svc := NewJobLifecycleService(s.tx, s.jobRepo, s.techRepo, s.timeline, geocoder, s.publisher, nil,
		config.DispatchConfig{}, zap.NewNop())
	s.svc = svc.(*JobLifecycleService)
	s.svc.now = s.clock.Now

	s.store.addTech(entities.Technician{
		ID:               "tech-1",
		Name:             "Dana",
		Email:            null.StringFrom("dana@example.com"),
		UserID:           null.StringFrom("user-dana"),
		MaxDailyJobs:     3,
		ApprovedJobTypes: []string{"hvac"},
		HourlyRate:       decimal.NewNullDecimal(decimal.RequireFromString("30")),
	})
	s.store.addTech(entities.Technician{ID: "tech-2", Name: "Marco"})
}

func (s *JobLifecycleTestSuite) createJob() *entities.Job {
	job, err := s.svc.Create(s.ctx, dto.CreateJobDTO{
		CustomerName:  "Acme Dental",
		CustomerPhone: utils.ToPtr("(555) 010-0199"),
		Address:       "100 Congress Ave",
		City:          utils.ToPtr("Austin"),
		Zip:           utils.ToPtr("78701"),
		ServiceType:   "hvac",
		SalespersonID: utils.ToPtr("sales-1"),
		ActorID:       "dispatcher-1",
	})
	s.Require().NoError(err)
	return job
}

// advance drives a fresh job up to and including the named status.
func (s *JobLifecycleTestSuite) advance(to string) *entities.Job {
	job := s.createJob()
	steps := []struct {
		status string
		run    func() (*entities.Job, error)
	}{
		{constants.JobStatusAssigned, func() (*entities.Job, error) {
			return s.svc.Assign(s.ctx, job.ID, dto.AssignJobDTO{TechnicianID: "tech-1", ActorID: "dispatcher-1"})
		}},
		{constants.JobStatusConfirmed, func() (*entities.Job, error) {
			return s.svc.Confirm(s.ctx, job.ID, dto.TransitionDTO{ActorID: "dispatcher-1"})
		}},
		{constants.JobStatusEnRoute, func() (*entities.Job, error) {
			return s.svc.EnRoute(s.ctx, job.ID, dto.TransitionDTO{ActorID: "user-dana"})
		}},
		{constants.JobStatusOnSite, func() (*entities.Job, error) {
			return s.svc.Arrive(s.ctx, job.ID, dto.ArriveJobDTO{ActorID: "user-dana"})
		}},
		{constants.JobStatusInProgress, func() (*entities.Job, error) {
			return s.svc.Start(s.ctx, job.ID, dto.TransitionDTO{ActorID: "user-dana"})
		}},
		{constants.JobStatusCompleted, func() (*entities.Job, error) {
			return s.svc.Complete(s.ctx, job.ID, dto.CompleteJobDTO{ActorID: "user-dana"})
		}},
	}
	if to == constants.JobStatusPending {
		return job
	}
	for _, step := range steps {
		var err error
		job, err = step.run()
		s.Require().NoError(err, "advancing to %s", step.status)
		if step.status == to {
			return job
		}
	}
	s.FailNow("unknown status " + to)
	return nil
}

func (s *JobLifecycleTestSuite) TestCreate_GeocodesAndRecordsTimeline() {
	job := s.createJob()

	s.Equal(constants.JobStatusPending, job.Status)
	s.Equal(constants.PriorityNormal, job.Priority)
	s.Equal("+15550100199", job.CustomerPhone.String)
	s.Require().NotNil(job.Coordinates())
	s.Equal(site, *job.Coordinates())

	timeline := s.store.events(job.ID)
	s.Require().Len(timeline, 1)
	s.Equal(constants.EventCreated, timeline[0].EventType)
	s.Equal("dispatcher-1", timeline[0].CreatedBy.String)

	published := s.publisher.published()
	s.Require().Len(published, 1)
	s.Equal(TransitionCreate, published[0].(events.JobTransitionedEvent).Transition)
}

func (s *JobLifecycleTestSuite) TestCreate_UngeocodableAddressStillCreates() {
	job, err := s.svc.Create(s.ctx, dto.CreateJobDTO{
		CustomerName: "Nowhere Inc",
		Address:      "1 Unknown Rd",
		ServiceType:  "hvac",
	})
	s.Require().NoError(err)
	s.Nil(job.Coordinates())
	s.Equal(constants.JobStatusPending, s.store.job(job.ID).Status)
}

func (s *JobLifecycleTestSuite) TestHappyPath_VerifiedArrivalAndFinancials() {
	job := s.advance(constants.JobStatusEnRoute)

	arrived, err := s.svc.Arrive(s.ctx, job.ID, dto.ArriveJobDTO{
		ActorID:   "user-dana",
		Latitude:  utils.ToPtr(site.Lat),
		Longitude: utils.ToPtr(site.Lng),
	})
	s.Require().NoError(err)
	s.Equal(null.BoolFrom(true), arrived.ArrivalVerified)
	s.Equal(null.Float64From(0), arrived.ArrivalDistance)

	_, err = s.svc.Start(s.ctx, job.ID, dto.TransitionDTO{ActorID: "user-dana"})
	s.Require().NoError(err)

	completed, err := s.svc.Complete(s.ctx, job.ID, dto.CompleteJobDTO{
		ActorID: "user-dana",
		CostUpdateDTO: dto.CostUpdateDTO{
			TotalRevenue:  decimal.NewNullDecimal(decimal.RequireFromString("500")),
			LaborCost:     decimal.NewNullDecimal(decimal.RequireFromString("100")),
			MaterialsCost: decimal.NewNullDecimal(decimal.RequireFromString("50")),
		},
	})
	s.Require().NoError(err)
	s.Equal(constants.JobStatusCompleted, completed.Status)
	s.Equal("150.00", completed.TotalCost.Decimal.StringFixed(2))
	s.Equal("350.00", completed.Profit.Decimal.StringFixed(2))

	chain := []null.Time{
		completed.AssignedAt, completed.ConfirmedAt, completed.EnRouteAt,
		completed.ArrivedAt, completed.StartedAt, completed.CompletedAt,
	}
	for i, ts := range chain {
		s.Require().True(ts.Valid, "timestamp %d", i)
		if i > 0 {
			s.False(ts.Time.Before(chain[i-1].Time), "timestamp %d is earlier than %d", i, i-1)
		}
	}

	var types []string
	for _, e := range s.store.events(job.ID) {
		types = append(types, e.EventType)
	}
	s.Equal([]string{
		constants.EventCreated, constants.EventAssigned, constants.EventConfirmed, constants.EventEnRoute,
		constants.EventArrived, constants.EventStarted, constants.EventCompleted,
	}, types)

	tech := s.store.tech("tech-1")
	s.Equal(constants.TechnicianStatusAvailable, tech.Status)
	s.False(tech.CurrentJobID.Valid)
	s.Equal(1, tech.CompletedJobsToday)

	s.Len(s.publisher.published(), 7)
}

func (s *JobLifecycleTestSuite) TestInvalidTransition_LeavesJobUntouched() {
	job := s.createJob()
	before := s.store.job(job.ID)

	_, err := s.svc.Start(s.ctx, job.ID, dto.TransitionDTO{ActorID: "user-dana"})
	s.ErrorIs(err, apperrors.ErrInvalidTransition)

	var transitionErr *apperrors.InvalidTransitionError
	s.Require().ErrorAs(err, &transitionErr)
	s.Equal(constants.JobStatusPending, transitionErr.From)
	s.Equal(constants.JobStatusInProgress, transitionErr.To)

	s.Equal(before, s.store.job(job.ID))
	s.Len(s.store.events(job.ID), 1)
}

func (s *JobLifecycleTestSuite) TestTerminalStatusesAcceptNothing() {
	completed := s.advance(constants.JobStatusCompleted)

	_, err := s.svc.Cancel(s.ctx, completed.ID, dto.CancelJobDTO{ActorID: "dispatcher-1", Reason: "too late"})
	s.ErrorIs(err, apperrors.ErrInvalidTransition)
	_, err = s.svc.Assign(s.ctx, completed.ID, dto.AssignJobDTO{TechnicianID: "tech-2"})
	s.ErrorIs(err, apperrors.ErrInvalidTransition)
	_, err = s.svc.RecordQuoteSent(s.ctx, completed.ID, dto.QuoteSentDTO{})
	s.ErrorIs(err, apperrors.ErrInvalidTransition)

	cancelled := s.createJob()
	_, err = s.svc.Cancel(s.ctx, cancelled.ID, dto.CancelJobDTO{ActorID: "dispatcher-1", Reason: "duplicate"})
	s.Require().NoError(err)
	_, err = s.svc.Confirm(s.ctx, cancelled.ID, dto.TransitionDTO{})
	s.ErrorIs(err, apperrors.ErrInvalidTransition)
}

func (s *JobLifecycleTestSuite) TestAssign_RejectsUnapprovedAndCappedTechnicians() {
	job, err := s.svc.Create(s.ctx, dto.CreateJobDTO{CustomerName: "Bob", Address: siteAddress, ServiceType: "plumbing"})
	s.Require().NoError(err)

	_, err = s.svc.Assign(s.ctx, job.ID, dto.AssignJobDTO{TechnicianID: "tech-1"})
	s.ErrorIs(err, apperrors.ErrValidation)
	s.Equal(constants.JobStatusPending, s.store.job(job.ID).Status)

	capped := s.createJob()
	s.store.mu.Lock()
	t := s.store.techs["tech-1"]
	t.CompletedJobsToday = 3
	s.store.techs["tech-1"] = t
	s.store.mu.Unlock()

	_, err = s.svc.Assign(s.ctx, capped.ID, dto.AssignJobDTO{TechnicianID: "tech-1"})
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.svc.Assign(s.ctx, capped.ID, dto.AssignJobDTO{TechnicianID: "ghost"})
	s.ErrorIs(err, apperrors.ErrNotFound)

	_, err = s.svc.Assign(s.ctx, capped.ID, dto.AssignJobDTO{TechnicianID: "  "})
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *JobLifecycleTestSuite) TestAssign_ReassignmentReleasesReservedTechnician() {
	job := s.createJob()
	_, err := s.svc.Assign(s.ctx, job.ID, dto.AssignJobDTO{TechnicianID: "tech-1"})
	s.Require().NoError(err)

	// Dispatch reserved tech-1 for this job.
	ok, err := s.techRepo.Claim(s.ctx, nil, "tech-1", job.ID)
	s.Require().NoError(err)
	s.Require().True(ok)

	updated, err := s.svc.Assign(s.ctx, job.ID, dto.AssignJobDTO{TechnicianID: "tech-2"})
	s.Require().NoError(err)
	s.Equal("tech-2", updated.AssignedTechnicianID.String)
	s.Equal(constants.JobStatusAssigned, updated.Status)

	s.Equal(constants.TechnicianStatusAvailable, s.store.tech("tech-1").Status)
}

func (s *JobLifecycleTestSuite) TestEnRoute_ClaimLostRollsBack() {
	job := s.advance(constants.JobStatusConfirmed)
	s.techRepo.claimedElsewhere = map[string]bool{"tech-1": true}

	_, err := s.svc.EnRoute(s.ctx, job.ID, dto.TransitionDTO{})
	s.ErrorIs(err, apperrors.ErrTechnicianUnavailable)

	stored := s.store.job(job.ID)
	s.Equal(constants.JobStatusConfirmed, stored.Status)
	s.False(stored.EnRouteAt.Valid)
	s.Equal(constants.TechnicianStatusAvailable, s.store.tech("tech-1").Status)
}

func (s *JobLifecycleTestSuite) TestEnRoute_ClaimsTechnician() {
	job := s.advance(constants.JobStatusEnRoute)

	tech := s.store.tech("tech-1")
	s.Equal(constants.TechnicianStatusBusy, tech.Status)
	s.Equal(job.ID, tech.CurrentJobID.String)

	last := s.publisher.published()
	event := last[len(last)-1].(events.JobTransitionedEvent)
	s.Require().NotNil(event.Technician)
	s.Equal("tech-1", event.Technician.ID)
}

func (s *JobLifecycleTestSuite) TestArrive_Geofence() {
	cases := []struct {
		name     string
		lat, lng *float64
		verified null.Bool
	}{
		{name: "inside radius", lat: utils.ToPtr(30.2676), lng: utils.ToPtr(-97.7431), verified: null.BoolFrom(true)},
		{name: "outside radius", lat: utils.ToPtr(30.2772), lng: utils.ToPtr(-97.7431), verified: null.BoolFrom(false)},
		{name: "no fix", verified: null.Bool{}},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.SetupTest()
			job := s.advance(constants.JobStatusEnRoute)

			arrived, err := s.svc.Arrive(s.ctx, job.ID, dto.ArriveJobDTO{Latitude: tc.lat, Longitude: tc.lng})
			s.Require().NoError(err)
			s.Equal(constants.JobStatusOnSite, arrived.Status)
			s.Equal(tc.verified, arrived.ArrivalVerified)

			timeline := s.store.events(job.ID)
			meta, ok := timeline[len(timeline)-1].Metadata.(entities.ArrivedMetadata)
			s.Require().True(ok)
			s.Equal(tc.verified, meta.ArrivalVerified)
			if tc.lat == nil {
				s.False(arrived.ArrivalDistance.Valid)
				return
			}
			s.True(arrived.ArrivalDistance.Valid)
			s.Equal(math.Round(arrived.ArrivalDistance.Float64), arrived.ArrivalDistance.Float64)
		})
	}
}

func (s *JobLifecycleTestSuite) TestComplete_ReconcilesCosts() {
	job := s.advance(constants.JobStatusInProgress)

	completed, err := s.svc.Complete(s.ctx, job.ID, dto.CompleteJobDTO{CostUpdateDTO: dto.CostUpdateDTO{
		LaborHours:    decimal.NewNullDecimal(decimal.RequireFromString("2")),
		LaborRate:     decimal.NewNullDecimal(decimal.RequireFromString("40")),
		MaterialsCost: decimal.NewNullDecimal(decimal.RequireFromString("35.50")),
		TotalRevenue:  decimal.NewNullDecimal(decimal.RequireFromString("300")),
	}})
	s.Require().NoError(err)

	s.Equal("80.00", completed.LaborCost.Decimal.StringFixed(2))
	s.Equal("115.50", completed.TotalCost.Decimal.StringFixed(2))
	s.Equal("184.50", completed.Profit.Decimal.StringFixed(2))

	timeline := s.store.events(job.ID)
	meta, ok := timeline[len(timeline)-1].Metadata.(entities.CompletedMetadata)
	s.Require().True(ok)
	s.True(meta.TotalRevenue.Decimal.Equal(decimal.RequireFromString("300")))
}

func (s *JobLifecycleTestSuite) TestCancel_RequiresActorAndReason() {
	job := s.createJob()

	_, err := s.svc.Cancel(s.ctx, job.ID, dto.CancelJobDTO{Reason: "customer called"})
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.svc.Cancel(s.ctx, job.ID, dto.CancelJobDTO{ActorID: "dispatcher-1", Reason: "   "})
	s.ErrorIs(err, apperrors.ErrValidation)

	s.Equal(constants.JobStatusPending, s.store.job(job.ID).Status)
}

func (s *JobLifecycleTestSuite) TestCancel_FreesClaimedTechnician() {
	job := s.advance(constants.JobStatusEnRoute)

	cancelled, err := s.svc.Cancel(s.ctx, job.ID, dto.CancelJobDTO{ActorID: "dispatcher-1", Reason: "customer not home"})
	s.Require().NoError(err)
	s.Equal(constants.JobStatusCancelled, cancelled.Status)
	s.Equal("dispatcher-1", cancelled.CancelledBy.String)
	s.Equal("customer not home", cancelled.CancellationReason.String)

	s.Equal(constants.TechnicianStatusAvailable, s.store.tech("tech-1").Status)

	timeline := s.store.events(job.ID)
	meta, ok := timeline[len(timeline)-1].Metadata.(entities.CancelledMetadata)
	s.Require().True(ok)
	s.Equal("tech-1", meta.FreedTechnicianID.String)
}

func (s *JobLifecycleTestSuite) TestCancel_MidFlightKeepsFinancials() {
	job := s.advance(constants.JobStatusAssigned)
	_, err := s.techRepo.Claim(s.ctx, nil, "tech-1", job.ID)
	s.Require().NoError(err)

	_, err = s.svc.UpdateCosts(s.ctx, job.ID, dto.UpdateCostsDTO{CostUpdateDTO: dto.CostUpdateDTO{
		LaborHours:    decimal.NewNullDecimal(decimal.RequireFromString("1.5")),
		MaterialsCost: decimal.NewNullDecimal(decimal.RequireFromString("42.10")),
		TotalRevenue:  decimal.NewNullDecimal(decimal.RequireFromString("250")),
	}})
	s.Require().NoError(err)
	before := s.store.job(job.ID)

	cancelled, err := s.svc.Cancel(s.ctx, job.ID, dto.CancelJobDTO{ActorID: "dispatcher-1", Reason: "customer rescheduled"})
	s.Require().NoError(err)
	s.Equal(constants.JobStatusCancelled, cancelled.Status)
	s.Equal("dispatcher-1", cancelled.CancelledBy.String)

	tech := s.store.tech("tech-1")
	s.Equal(constants.TechnicianStatusAvailable, tech.Status)
	s.False(tech.CurrentJobID.Valid)

	s.Equal(entities.SnapshotOf(&before), entities.SnapshotOf(cancelled))
	s.Equal(before.LaborHours, cancelled.LaborHours)
	s.Equal(before.LaborRate, cancelled.LaborRate)
	s.Equal(before.LaborCost, cancelled.LaborCost)
	s.Equal(before.MaterialsCost, cancelled.MaterialsCost)
	s.Equal(before.TravelExpense, cancelled.TravelExpense)
	s.Equal(before.EquipmentCost, cancelled.EquipmentCost)
	s.Equal(before.OtherExpenses, cancelled.OtherExpenses)
}

// reserve runs a reserving dispatch for jobID over the suite's store.
func (s *JobLifecycleTestSuite) reserve(jobID string) (*dto.DispatchResultDTO, error) {
	dispatcher := NewDispatchService(s.jobRepo, s.techRepo, &fakeLocationRepo{store: s.store},
		&fakeContactRepo{store: s.store}, &fakeGeocoder{places: map[string]geo.Coordinates{siteAddress: site}},
		&fakeNotifier{}, 0, nil, zap.NewNop())
	return dispatcher.DispatchToClosest(s.ctx, dto.DispatchDTO{
		Address:   siteAddress,
		JobID:     utils.ToPtr(jobID),
		Reserve:   true,
		SendEmail: utils.ToPtr(false),
	})
}

func (s *JobLifecycleTestSuite) locateTechnicians() {
	now := s.clock.Now()
	s.store.locations = append(s.store.locations,
		entities.TechnicianLocation{ID: "loc-1", TechnicianID: "tech-1", Latitude: site.Lat, Longitude: site.Lng, CreatedAt: now},
		entities.TechnicianLocation{ID: "loc-2", TechnicianID: "tech-2", Latitude: 30.30, Longitude: -97.74, CreatedAt: now},
	)
}

func (s *JobLifecycleTestSuite) TestCancel_FreesReservedTechnician() {
	s.locateTechnicians()
	job := s.createJob()

	res, err := s.reserve(job.ID)
	s.Require().NoError(err)
	s.Require().True(res.Reserved)
	s.Equal("tech-1", res.Technician.ID)
	s.Equal(constants.TechnicianStatusBusy, s.store.tech("tech-1").Status)

	_, err = s.svc.Cancel(s.ctx, job.ID, dto.CancelJobDTO{ActorID: "dispatcher-1", Reason: "customer rescheduled"})
	s.Require().NoError(err)

	tech := s.store.tech("tech-1")
	s.Equal(constants.TechnicianStatusAvailable, tech.Status)
	s.False(tech.CurrentJobID.Valid)

	timeline := s.store.events(job.ID)
	meta := timeline[len(timeline)-1].Metadata.(entities.CancelledMetadata)
	s.Equal("tech-1", meta.FreedTechnicianID.String)
}

func (s *JobLifecycleTestSuite) TestReserve_OnlyOnceAndReleasedOnAssign() {
	s.locateTechnicians()
	job := s.createJob()

	_, err := s.reserve(job.ID)
	s.Require().NoError(err)

	_, err = s.reserve(job.ID)
	s.ErrorIs(err, apperrors.ErrJobAlreadyHeld)
	s.Equal(constants.TechnicianStatusAvailable, s.store.tech("tech-2").Status)

	_, err = s.svc.Assign(s.ctx, job.ID, dto.AssignJobDTO{TechnicianID: "tech-2", ActorID: "dispatcher-1"})
	s.Require().NoError(err)

	tech := s.store.tech("tech-1")
	s.Equal(constants.TechnicianStatusAvailable, tech.Status)
	s.False(tech.CurrentJobID.Valid)
}

func (s *JobLifecycleTestSuite) TestReserve_RejectedPastPending() {
	s.locateTechnicians()

	assigned := s.advance(constants.JobStatusAssigned)
	_, err := s.reserve(assigned.ID)
	s.ErrorIs(err, apperrors.ErrJobNotReservable)

	cancelled := s.createJob()
	_, err = s.svc.Cancel(s.ctx, cancelled.ID, dto.CancelJobDTO{ActorID: "dispatcher-1", Reason: "duplicate"})
	s.Require().NoError(err)
	_, err = s.reserve(cancelled.ID)
	s.ErrorIs(err, apperrors.ErrJobNotReservable)

	s.Equal(constants.TechnicianStatusAvailable, s.store.tech("tech-1").Status)
	s.Equal(constants.TechnicianStatusAvailable, s.store.tech("tech-2").Status)
}

func (s *JobLifecycleTestSuite) TestCancel_TechnicianOnAnotherJobIsNotFreed() {
	job := s.advance(constants.JobStatusAssigned)
	_, err := s.techRepo.Claim(s.ctx, nil, "tech-1", "other-job")
	s.Require().NoError(err)

	_, err = s.svc.Cancel(s.ctx, job.ID, dto.CancelJobDTO{ActorID: "dispatcher-1", Reason: "rescheduled"})
	s.Require().NoError(err)

	tech := s.store.tech("tech-1")
	s.Equal(constants.TechnicianStatusBusy, tech.Status)
	s.Equal("other-job", tech.CurrentJobID.String)

	timeline := s.store.events(job.ID)
	meta := timeline[len(timeline)-1].Metadata.(entities.CancelledMetadata)
	s.False(meta.FreedTechnicianID.Valid)
}

func (s *JobLifecycleTestSuite) TestUpdateCosts_AllowedAfterCompletionNotAfterCancel() {
	completed := s.advance(constants.JobStatusCompleted)
	update := dto.UpdateCostsDTO{CostUpdateDTO: dto.CostUpdateDTO{
		TravelExpense: decimal.NewNullDecimal(decimal.RequireFromString("12.345")),
	}}

	job, err := s.svc.UpdateCosts(s.ctx, completed.ID, update)
	s.Require().NoError(err)
	s.Equal(constants.JobStatusCompleted, job.Status)
	s.Equal("12.35", job.TravelExpense.Decimal.StringFixed(2))

	cancelled := s.createJob()
	_, err = s.svc.Cancel(s.ctx, cancelled.ID, dto.CancelJobDTO{ActorID: "dispatcher-1", Reason: "duplicate"})
	s.Require().NoError(err)
	_, err = s.svc.UpdateCosts(s.ctx, cancelled.ID, update)
	s.ErrorIs(err, apperrors.ErrInvalidTransition)

	_, err = s.svc.UpdateCosts(s.ctx, completed.ID, dto.UpdateCostsDTO{})
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *JobLifecycleTestSuite) TestRecordQuoteSent_KeepsJobRow() {
	job := s.advance(constants.JobStatusAssigned)
	before := s.store.job(job.ID)

	event, err := s.svc.RecordQuoteSent(s.ctx, job.ID, dto.QuoteSentDTO{
		ActorID: "sales-1",
		Amount:  utils.ToPtr(decimal.RequireFromString("450")),
		Note:    utils.ToPtr("includes filter replacement"),
	})
	s.Require().NoError(err)
	s.Equal(constants.EventQuoteSent, event.EventType)
	s.Contains(event.Description, "$450.00")

	meta, ok := event.Metadata.(entities.QuoteSentMetadata)
	s.Require().True(ok)
	s.Equal("includes filter replacement", meta.Note.String)

	s.Equal(before, s.store.job(job.ID))
}

func (s *JobLifecycleTestSuite) TestConcurrentUpdate_IsConflictAndRollsBack() {
	job := s.advance(constants.JobStatusConfirmed)
	s.jobRepo.staleOnUpdate = true

	_, err := s.svc.EnRoute(s.ctx, job.ID, dto.TransitionDTO{})
	s.ErrorIs(err, apperrors.ErrConcurrentUpdate)

	// The claim made inside the failed unit is undone with it.
	s.Equal(constants.TechnicianStatusAvailable, s.store.tech("tech-1").Status)
	s.Equal(constants.JobStatusConfirmed, s.store.job(job.ID).Status)
}

func (s *JobLifecycleTestSuite) TestTimelineFailure_RollsBackJob() {
	job := s.createJob()
	s.timeline.err = errBoom

	_, err := s.svc.Assign(s.ctx, job.ID, dto.AssignJobDTO{TechnicianID: "tech-1"})
	s.ErrorIs(err, errBoom)
	s.Equal(constants.JobStatusPending, s.store.job(job.ID).Status)
	s.False(s.store.job(job.ID).AssignedAt.Valid)
}

func (s *JobLifecycleTestSuite) TestStamp_NeverGoesBackwards() {
	job := s.advance(constants.JobStatusAssigned)

	future := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	s.store.mu.Lock()
	j := s.store.jobs[job.ID]
	j.AssignedAt = null.TimeFrom(future)
	s.store.jobs[job.ID] = j
	s.store.mu.Unlock()

	confirmed, err := s.svc.Confirm(s.ctx, job.ID, dto.TransitionDTO{})
	s.Require().NoError(err)
	s.False(confirmed.ConfirmedAt.Time.Before(future))
}

func (s *JobLifecycleTestSuite) TestUnknownJob() {
	_, err := s.svc.Confirm(s.ctx, "missing", dto.TransitionDTO{})
	s.ErrorIs(err, apperrors.ErrNotFound)
	s.Equal("not_found", failureReason(err))
}

func (s *JobLifecycleTestSuite) TestActorFromContextWins() {
	job := s.createJob()
	ctx := context.WithValue(s.ctx, contextkeys.ActorIDKey, "token-actor")

	_, err := s.svc.Assign(ctx, job.ID, dto.AssignJobDTO{TechnicianID: "tech-2", ActorID: "payload-actor"})
	s.Require().NoError(err)

	timeline := s.store.events(job.ID)
	s.Equal("token-actor", timeline[len(timeline)-1].CreatedBy.String)
}
