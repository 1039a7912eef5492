package services

import (
	"context"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"field-crm/internal/dto"
	"field-crm/internal/entities"
	"field-crm/pkg/constants"
	"field-crm/pkg/email"
	apperrors "field-crm/pkg/errors"
	"field-crm/pkg/geo"
	"field-crm/pkg/utils"
)

type DispatchServiceTestSuite struct {
	suite.Suite

	ctx      context.Context
	now      time.Time
	store    *store
	techRepo *fakeTechRepo
	contacts *fakeContactRepo
	notifier *fakeNotifier
	svc      *DispatchService
}

func TestDispatchServiceTestSuite(t *testing.T) {
	suite.Run(t, new(DispatchServiceTestSuite))
}

func (s *DispatchServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)
	s.store = newStore()
	s.techRepo = &fakeTechRepo{store: s.store}
	s.contacts = &fakeContactRepo{store: s.store}
	s.notifier = &fakeNotifier{result: email.SendResult{Success: true, MessageID: "msg-1"}}

	geocoder := &fakeGeocoder{places: map[string]geo.Coordinates{siteAddress: site}}
	svc := NewDispatchService(&fakeJobRepo{store: s.store}, s.techRepo, &fakeLocationRepo{store: s.store},
		s.contacts, geocoder, s.notifier, time.Hour, nil, zap.NewNop())
	s.svc = svc.(*DispatchService)
	s.svc.now = func() time.Time { return s.now }

	s.store.addTech(entities.Technician{ID: "far", Name: "Far", Email: null.StringFrom("far@example.com")})
	s.store.addTech(entities.Technician{ID: "near", Name: "Near", Email: null.StringFrom("near@example.com")})
	s.store.addTech(entities.Technician{ID: "near-too", Name: "Near Too"})
	s.store.addTech(entities.Technician{ID: "nowhere", Name: "No Fix"})

	s.locate("far", 30.40, -97.74, 10*time.Minute)
	s.locate("near", 30.2680, -97.7431, 5*time.Minute)
	s.locate("near-too", 30.2680, -97.7431, 5*time.Minute)
}

func (s *DispatchServiceTestSuite) locate(techID string, lat, lng float64, age time.Duration) {
	s.store.locations = append(s.store.locations, entities.TechnicianLocation{
		ID:           techID + "-loc",
		TechnicianID: techID,
		Latitude:     lat,
		Longitude:    lng,
		CreatedAt:    s.now.Add(-age),
	})
}

func (s *DispatchServiceTestSuite) TestPicksClosestAndKeepsOrderOnTies() {
	res, err := s.svc.DispatchToClosest(s.ctx, dto.DispatchDTO{Address: siteAddress, JobID: utils.ToPtr("job-1")})
	s.Require().NoError(err)
	s.Require().True(res.Success)

	s.Equal("near", res.Technician.ID)
	s.InDelta(89.0, res.DistanceMeters, 1.0)
	s.Equal(0.1, res.DistanceMiles)
	s.Equal(site, *res.Coordinates)
	s.False(res.Reserved)
	s.Equal(constants.TechnicianStatusAvailable, s.store.tech("near").Status)
}

func (s *DispatchServiceTestSuite) TestIgnoresStaleLocations() {
	s.store.locations = nil
	s.locate("near", 30.2680, -97.7431, 2*time.Hour)
	s.locate("far", 30.40, -97.74, 30*time.Minute)

	res, err := s.svc.DispatchToClosest(s.ctx, dto.DispatchDTO{Address: siteAddress})
	s.Require().NoError(err)
	s.Require().True(res.Success)
	s.Equal("far", res.Technician.ID)
}

func (s *DispatchServiceTestSuite) TestSkipsUnavailableTechnicians() {
	near := s.store.tech("near")
	near.Status = constants.TechnicianStatusBusy
	s.store.techs["near"] = near

	res, err := s.svc.DispatchToClosest(s.ctx, dto.DispatchDTO{Address: siteAddress})
	s.Require().NoError(err)
	s.Equal("near-too", res.Technician.ID)
}

func (s *DispatchServiceTestSuite) TestBusinessFailures() {
	res, err := s.svc.DispatchToClosest(s.ctx, dto.DispatchDTO{Address: "nowhere at all"})
	s.Require().NoError(err)
	s.False(res.Success)
	s.Equal(dispatchErrGeocode, res.Error)
	s.Nil(res.Coordinates)

	s.store.locations = nil
	res, err = s.svc.DispatchToClosest(s.ctx, dto.DispatchDTO{Address: siteAddress})
	s.Require().NoError(err)
	s.False(res.Success)
	s.Equal(dispatchErrNoCandidates, res.Error)
	s.NotNil(res.Coordinates)
	s.Empty(s.notifier.dispatches)
}

func (s *DispatchServiceTestSuite) TestReserveClaimsNextFreeCandidate() {
	s.store.addJob(entities.Job{ID: "job-1", Status: constants.JobStatusPending})
	s.techRepo.claimedElsewhere = map[string]bool{"near": true}

	res, err := s.svc.DispatchToClosest(s.ctx, dto.DispatchDTO{
		Address: siteAddress,
		JobID:   utils.ToPtr("job-1"),
		Reserve: true,
	})
	s.Require().NoError(err)
	s.Require().True(res.Success)
	s.True(res.Reserved)
	s.Equal("near-too", res.Technician.ID)

	tech := s.store.tech("near-too")
	s.Equal(constants.TechnicianStatusBusy, tech.Status)
	s.Equal("job-1", tech.CurrentJobID.String)
}

func (s *DispatchServiceTestSuite) TestReserveAllClaimed() {
	s.store.addJob(entities.Job{ID: "job-1", Status: constants.JobStatusPending})
	s.techRepo.claimedElsewhere = map[string]bool{"near": true, "near-too": true, "far": true}

	res, err := s.svc.DispatchToClosest(s.ctx, dto.DispatchDTO{
		Address: siteAddress,
		JobID:   utils.ToPtr("job-1"),
		Reserve: true,
	})
	s.Require().NoError(err)
	s.False(res.Success)
	s.Equal(dispatchErrAllClaimed, res.Error)
	s.Empty(s.notifier.dispatches)
}

func (s *DispatchServiceTestSuite) TestReserveValidatesJob() {
	_, err := s.svc.DispatchToClosest(s.ctx, dto.DispatchDTO{Address: siteAddress, Reserve: true})
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.svc.DispatchToClosest(s.ctx, dto.DispatchDTO{Address: siteAddress, JobID: utils.ToPtr("ghost"), Reserve: true})
	s.ErrorIs(err, apperrors.ErrJobNotFound)

	s.store.addJob(entities.Job{ID: "done", Status: constants.JobStatusCompleted})
	_, err = s.svc.DispatchToClosest(s.ctx, dto.DispatchDTO{Address: siteAddress, JobID: utils.ToPtr("done"), Reserve: true})
	s.ErrorIs(err, apperrors.ErrJobNotReservable)
	s.Equal(constants.TechnicianStatusAvailable, s.store.tech("near").Status)
}

func (s *DispatchServiceTestSuite) TestReserveTwiceIsRejected() {
	s.store.addJob(entities.Job{ID: "job-1", Status: constants.JobStatusPending})
	req := dto.DispatchDTO{Address: siteAddress, JobID: utils.ToPtr("job-1"), Reserve: true}

	first, err := s.svc.DispatchToClosest(s.ctx, req)
	s.Require().NoError(err)
	s.Equal("near", first.Technician.ID)

	_, err = s.svc.DispatchToClosest(s.ctx, req)
	s.ErrorIs(err, apperrors.ErrJobAlreadyHeld)
	s.Equal(constants.TechnicianStatusAvailable, s.store.tech("near-too").Status)
}

func (s *DispatchServiceTestSuite) TestEmailsByDefaultAndRecordsContact() {
	res, err := s.svc.DispatchToClosest(s.ctx, dto.DispatchDTO{
		Address:      siteAddress,
		JobID:        utils.ToPtr("job-1"),
		CustomerName: utils.ToPtr("Acme Dental"),
		ServiceType:  utils.ToPtr("hvac"),
	})
	s.Require().NoError(err)
	s.True(res.EmailSent)

	s.Require().Len(s.notifier.dispatches, 1)
	sent := s.notifier.dispatches[0]
	s.Equal("near", sent.tech.ID)
	s.Equal("job-1", sent.email.JobID)
	s.Equal("Acme Dental", sent.email.CustomerName)
	s.Equal(0.1, sent.email.DistanceMiles)

	s.Require().Len(s.store.contacts, 1)
	contact := s.store.contacts[0]
	s.Equal(constants.ContactChannelEmail, contact.Channel)
	s.True(contact.Success)
	s.Equal("msg-1", contact.MessageID.String)
	s.Equal("near@example.com", contact.Recipient.String)
}

func (s *DispatchServiceTestSuite) TestEmailFailureIsReportedNotFatal() {
	s.notifier.result = email.SendResult{Error: "mailbox full"}
	s.contacts.err = errBoom

	res, err := s.svc.DispatchToClosest(s.ctx, dto.DispatchDTO{Address: siteAddress})
	s.Require().NoError(err)
	s.True(res.Success)
	s.False(res.EmailSent)
	s.Require().Len(s.store.contacts, 1)
	s.Equal("mailbox full", s.store.contacts[0].Error.String)
}

func (s *DispatchServiceTestSuite) TestSendEmailFalse() {
	res, err := s.svc.DispatchToClosest(s.ctx, dto.DispatchDTO{Address: siteAddress, SendEmail: utils.ToPtr(false)})
	s.Require().NoError(err)
	s.True(res.Success)
	s.False(res.EmailSent)
	s.Empty(s.notifier.dispatches)

	s.Require().Len(s.store.contacts, 1)
	contact := s.store.contacts[0]
	s.Equal(constants.ContactChannelNone, contact.Channel)
	s.Equal("near", contact.TechnicianID)
	s.False(contact.Success)
	s.False(contact.MessageID.Valid)
}
