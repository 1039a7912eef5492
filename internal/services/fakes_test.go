package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"

	"field-crm/internal/dto"
	"field-crm/internal/entities"
	"field-crm/pkg/constants"
	"field-crm/pkg/email"
	apperrors "field-crm/pkg/errors"
	"field-crm/pkg/eventbus"
	"field-crm/pkg/geo"
)

// store is an in-memory stand-in for the database. The fake transaction manager
// snapshots it before a unit of work and restores it when the unit fails.
type store struct {
	mu sync.Mutex

	jobs        map[string]entities.Job
	techs       map[string]entities.Technician
	techOrder   []string
	salespeople map[string]entities.Salesperson
	commissions map[string]entities.SalesCommission
	timeline    []entities.JobTimelineEvent
	locations   []entities.TechnicianLocation
	contacts    []entities.ContactAttempt
}

func newStore() *store {
	return &store{
		jobs:        make(map[string]entities.Job),
		techs:       make(map[string]entities.Technician),
		salespeople: make(map[string]entities.Salesperson),
		commissions: make(map[string]entities.SalesCommission),
	}
}

func (s *store) snapshot() *store {
	cp := newStore()
	for k, v := range s.jobs {
		cp.jobs[k] = v
	}
	for k, v := range s.techs {
		cp.techs[k] = v
	}
	cp.techOrder = append(cp.techOrder, s.techOrder...)
	for k, v := range s.salespeople {
		cp.salespeople[k] = v
	}
	for k, v := range s.commissions {
		cp.commissions[k] = v
	}
	cp.timeline = append(cp.timeline, s.timeline...)
	cp.locations = append(cp.locations, s.locations...)
	cp.contacts = append(cp.contacts, s.contacts...)
	return cp
}

func (s *store) restore(from *store) {
	s.jobs = from.jobs
	s.techs = from.techs
	s.techOrder = from.techOrder
	s.salespeople = from.salespeople
	s.commissions = from.commissions
	s.timeline = from.timeline
	s.locations = from.locations
	s.contacts = from.contacts
}

func (s *store) addJob(j entities.Job) {
	if j.Version == 0 {
		j.Version = 1
	}
	s.jobs[j.ID] = j
}

func (s *store) addTech(t entities.Technician) {
	if t.Status == "" {
		t.Status = constants.TechnicianStatusAvailable
	}
	s.techs[t.ID] = t
	s.techOrder = append(s.techOrder, t.ID)
}

func (s *store) job(id string) entities.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

func (s *store) tech(id string) entities.Technician {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.techs[id]
}

func (s *store) events(jobID string) []entities.JobTimelineEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entities.JobTimelineEvent
	for _, e := range s.timeline {
		if e.JobID == jobID {
			out = append(out, e)
		}
	}
	return out
}

type fakeTxManager struct {
	store *store
	calls int
}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	m.calls++
	m.store.mu.Lock()
	saved := m.store.snapshot()
	m.store.mu.Unlock()

	if err := fn(nil); err != nil {
		m.store.mu.Lock()
		m.store.restore(saved)
		m.store.mu.Unlock()
		return err
	}
	return nil
}

type fakeJobRepo struct {
	store *store
	// staleOnUpdate simulates a concurrent writer bumping the version.
	staleOnUpdate bool
}

func (r *fakeJobRepo) Create(ctx context.Context, tx pgx.Tx, job *entities.Job) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	job.Version = 1
	job.CreatedAt = time.Now().UTC()
	job.UpdatedAt = job.CreatedAt
	r.store.jobs[job.ID] = *job
	return nil
}

func (r *fakeJobRepo) FindByID(ctx context.Context, tx pgx.Tx, id string) (*entities.Job, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	j, ok := r.store.jobs[id]
	if !ok {
		return nil, apperrors.ErrJobNotFound
	}
	return &j, nil
}

func (r *fakeJobRepo) Update(ctx context.Context, tx pgx.Tx, job *entities.Job) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	current, ok := r.store.jobs[job.ID]
	if !ok {
		return apperrors.ErrJobNotFound
	}
	if r.staleOnUpdate || current.Version != job.Version {
		return apperrors.ErrConcurrentUpdate
	}
	job.Version++
	job.UpdatedAt = time.Now().UTC()
	r.store.jobs[job.ID] = *job
	return nil
}

func (r *fakeJobRepo) List(ctx context.Context, filter dto.JobFilter) ([]entities.Job, uint64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []entities.Job
	for _, j := range r.store.jobs {
		if filter.Status != "" && j.Status != filter.Status {
			continue
		}
		out = append(out, j)
	}
	return out, uint64(len(out)), nil
}

type fakeTechRepo struct {
	store *store
	// claimedElsewhere lists technicians a competing dispatch grabs first.
	claimedElsewhere map[string]bool
}

func (r *fakeTechRepo) Create(ctx context.Context, tx pgx.Tx, t *entities.Technician) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.addTech(*t)
	return nil
}

func (r *fakeTechRepo) FindByID(ctx context.Context, tx pgx.Tx, id string) (*entities.Technician, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.techs[id]
	if !ok {
		return nil, apperrors.ErrTechnicianNotFound
	}
	return &t, nil
}

func (r *fakeTechRepo) UpdateProfile(ctx context.Context, tx pgx.Tx, t *entities.Technician) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	current, ok := r.store.techs[t.ID]
	if !ok {
		return apperrors.ErrTechnicianNotFound
	}
	current.Name = t.Name
	current.Phone = t.Phone
	current.Email = t.Email
	current.MaxDailyJobs = t.MaxDailyJobs
	current.ApprovedJobTypes = t.ApprovedJobTypes
	r.store.techs[t.ID] = current
	return nil
}

func (r *fakeTechRepo) ListAvailable(ctx context.Context, tx pgx.Tx) ([]entities.Technician, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []entities.Technician
	for _, id := range r.store.techOrder {
		if t := r.store.techs[id]; t.Status == constants.TechnicianStatusAvailable {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTechRepo) Claim(ctx context.Context, tx pgx.Tx, id, jobID string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.claimedElsewhere[id] {
		return false, nil
	}
	t, ok := r.store.techs[id]
	if !ok {
		return false, nil
	}
	holdsJob := t.Status == constants.TechnicianStatusBusy && t.CurrentJobID.String == jobID
	if t.Status != constants.TechnicianStatusAvailable && !holdsJob {
		return false, nil
	}
	for otherID, other := range r.store.techs {
		if otherID != id && other.CurrentJobID.Valid && other.CurrentJobID.String == jobID {
			return false, apperrors.ErrJobAlreadyHeld
		}
	}
	t.Status = constants.TechnicianStatusBusy
	t.CurrentJobID = null.StringFrom(jobID)
	r.store.techs[id] = t
	return true, nil
}

func (r *fakeTechRepo) FindByCurrentJob(ctx context.Context, tx pgx.Tx, jobID string) ([]entities.Technician, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []entities.Technician
	for _, id := range r.store.techOrder {
		if t := r.store.techs[id]; t.CurrentJobID.Valid && t.CurrentJobID.String == jobID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTechRepo) ReleaseHolders(ctx context.Context, tx pgx.Tx, jobID, keepID string) ([]string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var freed []string
	for _, id := range r.store.techOrder {
		t := r.store.techs[id]
		if id == keepID || !t.CurrentJobID.Valid || t.CurrentJobID.String != jobID {
			continue
		}
		t.Status = constants.TechnicianStatusAvailable
		t.CurrentJobID = null.String{}
		r.store.techs[id] = t
		freed = append(freed, id)
	}
	return freed, nil
}

func (r *fakeTechRepo) CompleteJob(ctx context.Context, tx pgx.Tx, id, jobID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.techs[id]
	if !ok {
		return apperrors.ErrTechnicianNotFound
	}
	t.CompletedJobsToday++
	if !t.CurrentJobID.Valid || t.CurrentJobID.String == jobID {
		t.Status = constants.TechnicianStatusAvailable
		t.CurrentJobID = null.String{}
	}
	r.store.techs[id] = t
	return nil
}

func (r *fakeTechRepo) UpdateLastLocation(ctx context.Context, tx pgx.Tx, id string, lat, lng float64, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.techs[id]
	if !ok {
		return apperrors.ErrTechnicianNotFound
	}
	t.LastLocationLat = null.Float64From(lat)
	t.LastLocationLng = null.Float64From(lng)
	t.LastLocationUpdate = null.TimeFrom(at)
	r.store.techs[id] = t
	return nil
}

func (r *fakeTechRepo) ResetDailyCounters(ctx context.Context) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for id, t := range r.store.techs {
		if t.CompletedJobsToday > 0 {
			t.CompletedJobsToday = 0
			r.store.techs[id] = t
			n++
		}
	}
	return n, nil
}

type fakeTimelineRepo struct {
	store *store
	now   func() time.Time
	err   error
}

func (r *fakeTimelineRepo) Create(ctx context.Context, tx pgx.Tx, event *entities.JobTimelineEvent) error {
	if r.err != nil {
		return r.err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = r.now()
	}
	r.store.timeline = append(r.store.timeline, *event)
	return nil
}

func (r *fakeTimelineRepo) FindByJobID(ctx context.Context, tx pgx.Tx, jobID string) ([]entities.JobTimelineEvent, error) {
	return r.store.events(jobID), nil
}

type fakeLocationRepo struct {
	store *store
}

func (r *fakeLocationRepo) Create(ctx context.Context, tx pgx.Tx, loc *entities.TechnicianLocation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.locations = append(r.store.locations, *loc)
	return nil
}

func (r *fakeLocationRepo) FindLatest(ctx context.Context, tx pgx.Tx, technicianID string) (*entities.TechnicianLocation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var latest *entities.TechnicianLocation
	for i := range r.store.locations {
		l := r.store.locations[i]
		if l.TechnicianID == technicianID && (latest == nil || l.CreatedAt.After(latest.CreatedAt)) {
			latest = &l
		}
	}
	if latest == nil {
		return nil, apperrors.ErrLocationNotAvailable
	}
	return latest, nil
}

func (r *fakeLocationRepo) FindLatestFor(ctx context.Context, tx pgx.Tx, technicianIDs []string) (map[string]entities.TechnicianLocation, error) {
	out := make(map[string]entities.TechnicianLocation)
	for _, id := range technicianIDs {
		if loc, err := r.FindLatest(ctx, tx, id); err == nil {
			out[id] = *loc
		}
	}
	return out, nil
}

type fakeContactRepo struct {
	store *store
	err   error
}

func (r *fakeContactRepo) Create(ctx context.Context, tx pgx.Tx, a *entities.ContactAttempt) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.contacts = append(r.store.contacts, *a)
	return r.err
}

type fakeSalespersonRepo struct {
	store *store
}

func (r *fakeSalespersonRepo) Create(ctx context.Context, tx pgx.Tx, s *entities.Salesperson) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.salespeople[s.ID] = *s
	return nil
}

func (r *fakeSalespersonRepo) FindByID(ctx context.Context, tx pgx.Tx, id string) (*entities.Salesperson, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.salespeople[id]
	if !ok {
		return nil, apperrors.ErrSalespersonNotFound
	}
	return &s, nil
}

func (r *fakeSalespersonRepo) Update(ctx context.Context, tx pgx.Tx, s *entities.Salesperson) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.salespeople[s.ID]; !ok {
		return apperrors.ErrSalespersonNotFound
	}
	r.store.salespeople[s.ID] = *s
	return nil
}

type fakeCommissionRepo struct {
	store *store
	// raceWinner, when set, is inserted by "another caller" just before Create runs.
	raceWinner *entities.SalesCommission
}

func (r *fakeCommissionRepo) Create(ctx context.Context, tx pgx.Tx, c *entities.SalesCommission) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.raceWinner != nil {
		r.store.commissions[r.raceWinner.ID] = *r.raceWinner
		r.raceWinner = nil
	}
	for _, existing := range r.store.commissions {
		if existing.JobID == c.JobID && existing.SalespersonID == c.SalespersonID {
			return false, nil
		}
	}
	r.store.commissions[c.ID] = *c
	return true, nil
}

func (r *fakeCommissionRepo) FindByID(ctx context.Context, tx pgx.Tx, id string) (*entities.SalesCommission, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.commissions[id]
	if !ok {
		return nil, apperrors.ErrCommissionNotFound
	}
	return &c, nil
}

func (r *fakeCommissionRepo) FindByJobAndSalesperson(ctx context.Context, tx pgx.Tx, jobID, salespersonID string) (*entities.SalesCommission, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, c := range r.store.commissions {
		if c.JobID == jobID && c.SalespersonID == salespersonID {
			return &c, nil
		}
	}
	return nil, apperrors.ErrCommissionNotFound
}

func (r *fakeCommissionRepo) FindByJobID(ctx context.Context, jobID string) ([]entities.SalesCommission, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []entities.SalesCommission
	for _, c := range r.store.commissions {
		if c.JobID == jobID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCommissionRepo) List(ctx context.Context, filter dto.CommissionReportFilter) ([]entities.SalesCommission, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []entities.SalesCommission
	for _, c := range r.store.commissions {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.SalespersonID != "" && c.SalespersonID != filter.SalespersonID {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeCommissionRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id, status string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.commissions[id]
	if !ok {
		return apperrors.ErrCommissionNotFound
	}
	c.Status = status
	r.store.commissions[id] = c
	return nil
}

type fakeGeocoder struct {
	places map[string]geo.Coordinates
	calls  int
}

func (g *fakeGeocoder) Geocode(ctx context.Context, address string) *geo.Coordinates {
	g.calls++
	c, ok := g.places[address]
	if !ok {
		return nil
	}
	return &c
}

type sentDispatch struct {
	tech  entities.Technician
	email DispatchEmail
}

type fakeNotifier struct {
	mu         sync.Mutex
	result     email.SendResult
	dispatches []sentDispatch
	delivered  []entities.NotificationTask
	deliverErr error
}

func (n *fakeNotifier) Deliver(ctx context.Context, task *entities.NotificationTask) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delivered = append(n.delivered, *task)
	return n.deliverErr
}

func (n *fakeNotifier) SendDispatchEmail(ctx context.Context, tech *entities.Technician, d DispatchEmail) email.SendResult {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dispatches = append(n.dispatches, sentDispatch{tech: *tech, email: d})
	return n.result
}

func (n *fakeNotifier) JobLink(jobID string) string {
	return "https://crm.test/tech/jobs/" + jobID
}

type fakePublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *fakePublisher) Publish(ctx context.Context, event eventbus.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *fakePublisher) published() []eventbus.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]eventbus.Event(nil), p.events...)
}

var errBoom = errors.New("boom")

// fixedClock hands out increasing instants one minute apart.
type fixedClock struct {
	t time.Time
}

func newClock() *fixedClock {
	return &fixedClock{t: time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}
