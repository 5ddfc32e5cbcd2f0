// Package schedule caches the pair's schedules, derives the per-date views
// the calendar renders and mediates create/update/delete against the
// backend. Mutations never patch the cache; they publish a signal and
// listeners refetch.
package schedule

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sadopc/duet/internal/datetime"
	"github.com/sadopc/duet/internal/events"
	"github.com/sadopc/duet/internal/log"
	"github.com/sadopc/duet/internal/model"
)

const resource = "schedule"

// Backend is the subset of the REST client the store needs.
type Backend interface {
	ListSchedules(ctx context.Context) ([]model.Schedule, error)
	GetSchedule(ctx context.Context, id int64) (*model.Schedule, error)
	CreateSchedule(ctx context.Context, in model.ScheduleInput) (*model.Schedule, error)
	UpdateSchedule(ctx context.Context, id int64, in model.ScheduleInput) (*model.Schedule, error)
	DeleteSchedule(ctx context.Context, id int64) error
}

// Snapshotter persists the last successfully fetched list.
type Snapshotter interface {
	SaveSchedules(list []model.Schedule, fetchedAt time.Time) error
	LoadSchedules() ([]model.Schedule, time.Time, error)
}

// Status describes the list cache.
type Status struct {
	Loading   bool
	Err       error     // last fetch failure, cleared by a successful fetch
	Stale     bool      // cache came from a snapshot, not from the server
	FetchedAt time.Time // zero until something has been loaded
}

// DayMarks classifies what touches one calendar day.
type DayMarks struct {
	HasSingleDay bool
	MultiDay     []model.Schedule
}

// Empty reports whether nothing touches the day.
func (m DayMarks) Empty() bool { return !m.HasSingleDay && len(m.MultiDay) == 0 }

type Option func(*Store)

func WithSnapshotter(s Snapshotter) Option {
	return func(st *Store) { st.snap = s }
}

// WithClock overrides time.Now for FetchedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(st *Store) { st.now = now }
}

type Store struct {
	backend Backend
	bus     *events.Bus
	snap    Snapshotter
	now     func() time.Time

	mu        sync.RWMutex
	schedules []model.Schedule
	selected  time.Time
	status    Status
	gen       uint64 // generation of the most recently issued fetch
	inflight  int
}

// New creates a store. bus receives a signal after every successful mutation.
func New(backend Backend, bus *events.Bus, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		bus:     bus,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.selected = datetime.StartOfDay(s.now())
	return s
}

// ============================================================
// Fetching
// ============================================================

// Fetch replaces the cache with the server's list. On failure the previous
// cache stays in place and Status().Err is set. A response that arrives
// after a newer Fetch was issued is dropped and Fetch returns nil.
func (s *Store) Fetch(ctx context.Context) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.inflight++
	s.status.Loading = true
	s.mu.Unlock()

	log.Debug("fetch schedules", "gen", gen)
	list, err := s.backend.ListSchedules(ctx)

	s.mu.Lock()
	s.inflight--
	s.status.Loading = s.inflight > 0
	if latest := s.gen; gen != latest {
		s.mu.Unlock()
		log.Debug("discard superseded schedule fetch", "gen", gen, "latest", latest)
		return nil
	}
	if err != nil {
		opErr := &model.OpError{Op: "fetch", Resource: resource, Err: err}
		s.status.Err = opErr
		s.mu.Unlock()
		log.Error("fetch schedules failed", err, "gen", gen)
		return opErr
	}

	fetchedAt := s.now()
	s.schedules = append([]model.Schedule(nil), list...)
	s.status.Err = nil
	s.status.Stale = false
	s.status.FetchedAt = fetchedAt
	s.mu.Unlock()

	log.Debug("fetched schedules", "gen", gen, "count", len(list))
	if s.snap != nil {
		if err := s.snap.SaveSchedules(list, fetchedAt); err != nil {
			log.Error("save schedule snapshot", err)
		}
	}
	return nil
}

// Restore loads the last snapshot as a stale cache. It does nothing once a
// fetch has succeeded or when no snapshotter is attached.
func (s *Store) Restore() error {
	if s.snap == nil {
		return nil
	}
	list, fetchedAt, err := s.snap.LoadSchedules()
	if err != nil {
		return &model.OpError{Op: "restore", Resource: resource, Err: err}
	}
	if fetchedAt.IsZero() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.status.FetchedAt.IsZero() {
		return nil
	}
	s.schedules = list
	s.status.Stale = true
	s.status.FetchedAt = fetchedAt
	log.Info("restored schedule snapshot", "count", len(list), "fetched_at", fetchedAt)
	return nil
}

// Watch refetches on every bus signal until ctx is done, reporting each
// refetch result on the returned channel. The channel is closed when ctx
// ends.
func (s *Store) Watch(ctx context.Context) <-chan error {
	sub := s.bus.Subscribe()
	out := make(chan error, 1)

	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-sub.C:
				if !ok {
					return
				}
				log.Debug("schedule signal", "signal", sig)
				err := s.Fetch(ctx)
				select {
				case out <- err:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// ============================================================
// Mutations
// ============================================================

// Add validates, normalizes and creates a schedule. The cache is not
// touched; ScheduleAdded is published on success.
func (s *Store) Add(ctx context.Context, in model.ScheduleInput) (*model.Schedule, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, &model.OpError{Op: "add", Resource: resource, Err: err}
	}

	created, err := s.backend.CreateSchedule(ctx, in)
	if err != nil {
		log.Error("add schedule failed", err, "title", in.Title)
		return nil, &model.OpError{Op: "add", Resource: resource, Err: err}
	}
	log.Info("schedule added", "id", created.ID)
	s.bus.Publish(events.ScheduleAdded)
	return created, nil
}

// Update replaces schedule id. The returned schedule is nil when the server
// acknowledged without a record.
func (s *Store) Update(ctx context.Context, id int64, in model.ScheduleInput) (*model.Schedule, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, &model.OpError{Op: "update", Resource: resource, ID: id, Err: err}
	}

	updated, err := s.backend.UpdateSchedule(ctx, id, in)
	if err != nil {
		log.Error("update schedule failed", err, "id", id)
		return nil, &model.OpError{Op: "update", Resource: resource, ID: id, Err: err}
	}
	log.Info("schedule updated", "id", id)
	s.bus.Publish(events.ScheduleUpdated)
	return updated, nil
}

// Delete removes schedule id. Callers confirm with the user first.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := s.backend.DeleteSchedule(ctx, id); err != nil {
		log.Error("delete schedule failed", err, "id", id)
		return &model.OpError{Op: "delete", Resource: resource, ID: id, Err: err}
	}
	log.Info("schedule deleted", "id", id)
	s.bus.Publish(events.ScheduleDeleted)
	return nil
}

// Detail fetches one schedule straight from the server.
func (s *Store) Detail(ctx context.Context, id int64) (*model.Schedule, error) {
	sc, err := s.backend.GetSchedule(ctx, id)
	if err != nil {
		log.Error("schedule detail failed", err, "id", id)
		return nil, &model.OpError{Op: "detail", Resource: resource, ID: id, Err: err}
	}
	return sc, nil
}

// ============================================================
// Cache reads and derived views
// ============================================================

// Schedules returns a copy of the cached list.
func (s *Store) Schedules() []model.Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Schedule(nil), s.schedules...)
}

func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// SetSelectedDate moves the calendar selection to t's day.
func (s *Store) SetSelectedDate(t time.Time) {
	s.mu.Lock()
	s.selected = datetime.StartOfDay(t)
	s.mu.Unlock()
}

func (s *Store) SelectedDate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// SchedulesOn lists cached schedules touching date's day.
func (s *Store) SchedulesOn(date time.Time) []model.Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ListOn(s.schedules, date)
}

// Selected is SchedulesOn(SelectedDate()).
func (s *Store) Selected() []model.Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ListOn(s.schedules, s.selected)
}

// Marks classifies the cached schedules touching date's day.
func (s *Store) Marks(date time.Time) DayMarks {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Classify(s.schedules, date)
}

// InRange reports whether date's calendar day lies within
// [day(start), day(end)]. Without an end only the start day matches.
func InRange(date time.Time, sc model.Schedule) bool {
	if sc.EndTime == nil {
		return datetime.SameDay(sc.StartTime, date)
	}
	return datetime.DaysBetween(sc.StartTime, date) >= 0 &&
		datetime.DaysBetween(date, *sc.EndTime) >= 0
}

// ListOn returns the schedules touching date, ordered by start then id.
func ListOn(list []model.Schedule, date time.Time) []model.Schedule {
	var out []model.Schedule
	for _, sc := range list {
		if InRange(date, sc) {
			out = append(out, sc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Classify separates point events from spanning events on date.
func Classify(list []model.Schedule, date time.Time) DayMarks {
	var marks DayMarks
	seen := make(map[int64]bool)
	for _, sc := range ListOn(list, date) {
		if !sc.IsMultiDay() {
			marks.HasSingleDay = true
			continue
		}
		if seen[sc.ID] {
			continue
		}
		seen[sc.ID] = true
		marks.MultiDay = append(marks.MultiDay, sc)
	}
	return marks
}
