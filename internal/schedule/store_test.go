package schedule

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/duet/internal/api"
	"github.com/sadopc/duet/internal/devserver"
	"github.com/sadopc/duet/internal/events"
	"github.com/sadopc/duet/internal/model"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) ListSchedules(ctx context.Context) ([]model.Schedule, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]model.Schedule)
	return list, args.Error(1)
}

func (m *mockBackend) GetSchedule(ctx context.Context, id int64) (*model.Schedule, error) {
	args := m.Called(ctx, id)
	sc, _ := args.Get(0).(*model.Schedule)
	return sc, args.Error(1)
}

func (m *mockBackend) CreateSchedule(ctx context.Context, in model.ScheduleInput) (*model.Schedule, error) {
	args := m.Called(ctx, in)
	sc, _ := args.Get(0).(*model.Schedule)
	return sc, args.Error(1)
}

func (m *mockBackend) UpdateSchedule(ctx context.Context, id int64, in model.ScheduleInput) (*model.Schedule, error) {
	args := m.Called(ctx, id, in)
	sc, _ := args.Get(0).(*model.Schedule)
	return sc, args.Error(1)
}

func (m *mockBackend) DeleteSchedule(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type memSnapshot struct {
	list []model.Schedule
	at   time.Time
}

func (m *memSnapshot) SaveSchedules(list []model.Schedule, at time.Time) error {
	m.list = append([]model.Schedule(nil), list...)
	m.at = at
	return nil
}

func (m *memSnapshot) LoadSchedules() ([]model.Schedule, time.Time, error) {
	return m.list, m.at, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.Local)
}

func span(id int64, start, end time.Time) model.Schedule {
	return model.Schedule{ID: id, Title: "span", StartTime: start, EndTime: &end}
}

func point(id int64, start time.Time) model.Schedule {
	return model.Schedule{ID: id, Title: "point", StartTime: start}
}

func ids(list []model.Schedule) []int64 {
	out := make([]int64, 0, len(list))
	for _, s := range list {
		out = append(out, s.ID)
	}
	return out
}

// ============================================================
// Derived views
// ============================================================

func TestInRange(t *testing.T) {
	sc := span(1, at(2024, 6, 1, 10, 0), at(2024, 6, 3, 12, 0))

	tests := []struct {
		date time.Time
		want bool
	}{
		{day(2024, 5, 31), false},
		{day(2024, 6, 1), true},
		{at(2024, 6, 1, 23, 59), true},
		{day(2024, 6, 2), true},
		{at(2024, 6, 3, 23, 0), true},
		{day(2024, 6, 4), false},
	}
	for _, tt := range tests {
		t.Run(tt.date.Format("2006-01-02T15:04"), func(t *testing.T) {
			assert.Equal(t, tt.want, InRange(tt.date, sc))
		})
	}
}

func TestInRange_NoEnd(t *testing.T) {
	sc := point(1, at(2024, 6, 1, 10, 0))
	assert.True(t, InRange(day(2024, 6, 1), sc))
	assert.True(t, InRange(at(2024, 6, 1, 8, 0), sc), "time of day is ignored")
	assert.False(t, InRange(day(2024, 6, 2), sc))
	assert.False(t, InRange(day(2024, 5, 31), sc))
}

func TestListOn_OrdersByStart(t *testing.T) {
	list := []model.Schedule{
		point(3, at(2024, 6, 2, 15, 0)),
		span(1, at(2024, 6, 1, 10, 0), at(2024, 6, 3, 12, 0)),
		point(2, at(2024, 6, 2, 9, 0)),
		point(4, at(2024, 6, 5, 9, 0)),
	}
	assert.Equal(t, []int64{1, 2, 3}, ids(ListOn(list, day(2024, 6, 2))))
	assert.Empty(t, ListOn(list, day(2024, 6, 4)))
}

func TestClassify(t *testing.T) {
	trip := span(1, at(2024, 6, 1, 10, 0), at(2024, 6, 3, 12, 0))
	sameDay := span(2, at(2024, 6, 2, 9, 0), at(2024, 6, 2, 11, 0))
	list := []model.Schedule{trip, sameDay, trip}

	marks := Classify(list, day(2024, 6, 2))
	assert.True(t, marks.HasSingleDay)
	assert.Equal(t, []int64{1}, ids(marks.MultiDay), "multi-day schedules are distinct")

	marks = Classify(list, day(2024, 6, 3))
	assert.False(t, marks.HasSingleDay)
	assert.Len(t, marks.MultiDay, 1)

	assert.True(t, Classify(list, day(2024, 6, 9)).Empty())
}

func TestSelectedDate(t *testing.T) {
	m := new(mockBackend)
	m.On("ListSchedules", mock.Anything).Return([]model.Schedule{
		point(1, at(2024, 6, 1, 10, 0)),
		point(2, at(2024, 6, 2, 10, 0)),
	}, nil)

	s := New(m, events.NewBus(), WithClock(func() time.Time { return at(2024, 6, 1, 13, 45) }))
	assert.Equal(t, day(2024, 6, 1), s.SelectedDate())

	require.NoError(t, s.Fetch(context.Background()))
	assert.Equal(t, []int64{1}, ids(s.Selected()))

	s.SetSelectedDate(at(2024, 6, 2, 18, 0))
	assert.Equal(t, day(2024, 6, 2), s.SelectedDate())
	assert.Equal(t, []int64{2}, ids(s.Selected()))
	assert.True(t, s.Marks(day(2024, 6, 2)).HasSingleDay)
}

// ============================================================
// Fetch
// ============================================================

func TestFetch_ReplacesCache(t *testing.T) {
	m := new(mockBackend)
	m.On("ListSchedules", mock.Anything).Return([]model.Schedule{point(1, at(2024, 6, 1, 9, 0))}, nil).Once()
	m.On("ListSchedules", mock.Anything).Return([]model.Schedule{point(2, at(2024, 6, 1, 9, 0))}, nil).Once()

	now := at(2024, 6, 1, 12, 0)
	s := New(m, events.NewBus(), WithClock(func() time.Time { return now }))

	require.NoError(t, s.Fetch(context.Background()))
	assert.Equal(t, []int64{1}, ids(s.Schedules()))

	require.NoError(t, s.Fetch(context.Background()))
	assert.Equal(t, []int64{2}, ids(s.Schedules()))

	st := s.Status()
	assert.False(t, st.Loading)
	assert.NoError(t, st.Err)
	assert.Equal(t, now, st.FetchedAt)
	m.AssertExpectations(t)
}

func TestFetch_FailureKeepsCache(t *testing.T) {
	m := new(mockBackend)
	m.On("ListSchedules", mock.Anything).Return([]model.Schedule{point(1, at(2024, 6, 1, 9, 0))}, nil).Once()
	m.On("ListSchedules", mock.Anything).Return(nil, errors.New("connection refused")).Once()

	s := New(m, events.NewBus())
	require.NoError(t, s.Fetch(context.Background()))

	err := s.Fetch(context.Background())
	require.Error(t, err)
	var opErr *model.OpError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "fetch", opErr.Op)

	assert.Equal(t, []int64{1}, ids(s.Schedules()))
	assert.Equal(t, err, s.Status().Err)
}

func TestFetch_Idempotent(t *testing.T) {
	srv := devserver.New("")
	srv.SeedSchedule(point(0, at(2024, 6, 1, 9, 0)))
	srv.SeedSchedule(point(0, at(2024, 6, 2, 9, 0)))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	s := New(api.NewClient(ts.URL, ""), events.NewBus())
	require.NoError(t, s.Fetch(context.Background()))
	first := ids(s.Schedules())
	require.NoError(t, s.Fetch(context.Background()))
	assert.ElementsMatch(t, first, ids(s.Schedules()))
	assert.Len(t, first, 2)
}

// gatedBackend holds every ListSchedules call until its gate is closed.
type gatedBackend struct {
	mockBackend

	mu      sync.Mutex
	calls   int
	started chan int
	gates   []chan struct{}
	results [][]model.Schedule
}

func newGatedBackend(results ...[]model.Schedule) *gatedBackend {
	g := &gatedBackend{started: make(chan int, len(results)), results: results}
	for range results {
		g.gates = append(g.gates, make(chan struct{}))
	}
	return g
}

func (g *gatedBackend) ListSchedules(ctx context.Context) ([]model.Schedule, error) {
	g.mu.Lock()
	i := g.calls
	g.calls++
	g.mu.Unlock()

	g.started <- i
	<-g.gates[i]
	return g.results[i], nil
}

func TestFetch_DiscardsSupersededResponse(t *testing.T) {
	older := []model.Schedule{point(1, at(2024, 6, 1, 9, 0))}
	newer := []model.Schedule{point(2, at(2024, 6, 1, 9, 0))}
	g := newGatedBackend(older, newer)
	s := New(g, events.NewBus())
	ctx := context.Background()

	first := make(chan error, 1)
	go func() { first <- s.Fetch(ctx) }()
	require.Equal(t, 0, <-g.started)

	second := make(chan error, 1)
	go func() { second <- s.Fetch(ctx) }()
	require.Equal(t, 1, <-g.started)
	assert.True(t, s.Status().Loading)

	// The newer fetch lands first; the older one must not overwrite it.
	close(g.gates[1])
	require.NoError(t, <-second)
	assert.True(t, s.Status().Loading, "older fetch still in flight")

	close(g.gates[0])
	require.NoError(t, <-first)

	assert.Equal(t, []int64{2}, ids(s.Schedules()))
	assert.False(t, s.Status().Loading)
}

func TestFetch_InOrderResponses(t *testing.T) {
	older := []model.Schedule{point(1, at(2024, 6, 1, 9, 0))}
	newer := []model.Schedule{point(2, at(2024, 6, 1, 9, 0))}
	g := newGatedBackend(older, newer)
	s := New(g, events.NewBus())
	ctx := context.Background()

	first := make(chan error, 1)
	go func() { first <- s.Fetch(ctx) }()
	<-g.started
	second := make(chan error, 1)
	go func() { second <- s.Fetch(ctx) }()
	<-g.started

	close(g.gates[0])
	require.NoError(t, <-first)
	assert.Empty(t, s.Schedules(), "superseded response is dropped")

	close(g.gates[1])
	require.NoError(t, <-second)
	assert.Equal(t, []int64{2}, ids(s.Schedules()))
}

// ============================================================
// Snapshots
// ============================================================

func TestSnapshot_SaveAndRestore(t *testing.T) {
	snap := &memSnapshot{}
	m := new(mockBackend)
	m.On("ListSchedules", mock.Anything).Return([]model.Schedule{point(7, at(2024, 6, 1, 9, 0))}, nil)

	fetchedAt := at(2024, 6, 1, 12, 0)
	s := New(m, events.NewBus(), WithSnapshotter(snap), WithClock(func() time.Time { return fetchedAt }))
	require.NoError(t, s.Fetch(context.Background()))
	assert.Equal(t, fetchedAt, snap.at)

	offline := New(new(mockBackend), events.NewBus(), WithSnapshotter(snap))
	require.NoError(t, offline.Restore())
	assert.Equal(t, []int64{7}, ids(offline.Schedules()))
	st := offline.Status()
	assert.True(t, st.Stale)
	assert.Equal(t, fetchedAt, st.FetchedAt)
}

func TestSnapshot_RestoreAfterFetchIsNoop(t *testing.T) {
	snap := &memSnapshot{list: []model.Schedule{point(9, at(2024, 5, 1, 9, 0))}, at: at(2024, 5, 1, 12, 0)}
	m := new(mockBackend)
	m.On("ListSchedules", mock.Anything).Return([]model.Schedule{point(1, at(2024, 6, 1, 9, 0))}, nil)

	s := New(m, events.NewBus(), WithSnapshotter(snap))
	require.NoError(t, s.Fetch(context.Background()))
	require.NoError(t, s.Restore())
	assert.Equal(t, []int64{1}, ids(s.Schedules()))
	assert.False(t, s.Status().Stale)
}

func TestSnapshot_FetchClearsStale(t *testing.T) {
	snap := &memSnapshot{list: []model.Schedule{point(9, at(2024, 5, 1, 9, 0))}, at: at(2024, 5, 1, 12, 0)}
	m := new(mockBackend)
	m.On("ListSchedules", mock.Anything).Return([]model.Schedule{}, nil)

	s := New(m, events.NewBus(), WithSnapshotter(snap))
	require.NoError(t, s.Restore())
	assert.True(t, s.Status().Stale)

	require.NoError(t, s.Fetch(context.Background()))
	assert.False(t, s.Status().Stale)
	assert.Empty(t, s.Schedules())
}

// ============================================================
// Mutations
// ============================================================

func TestAdd_ValidationBeforeNetwork(t *testing.T) {
	m := new(mockBackend)
	s := New(m, events.NewBus())

	_, err := s.Add(context.Background(), model.ScheduleInput{Title: "   ", StartTime: at(2024, 6, 1, 9, 0)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrValidation))

	_, err = s.Add(context.Background(), model.ScheduleInput{Title: "x"})
	assert.True(t, errors.Is(err, model.ErrValidation))

	m.AssertNotCalled(t, "CreateSchedule", mock.Anything, mock.Anything)
}

func TestAdd_NormalizesAllDay(t *testing.T) {
	m := new(mockBackend)
	bus := events.NewBus()
	sub := bus.Subscribe()
	defer sub.Close()

	wantEnd := time.Date(2024, 7, 4, 23, 59, 59, int(999*time.Millisecond), time.Local)
	m.On("CreateSchedule", mock.Anything, mock.MatchedBy(func(in model.ScheduleInput) bool {
		return in.Title == "Holiday" &&
			in.StartTime.Equal(day(2024, 7, 4)) &&
			in.EndTime != nil && in.EndTime.Equal(wantEnd)
	})).Return(&model.Schedule{ID: 5, Title: "Holiday"}, nil)

	s := New(m, bus)
	created, err := s.Add(context.Background(), model.ScheduleInput{
		Title:     " Holiday ",
		StartTime: at(2024, 7, 4, 15, 30),
		IsAllDay:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), created.ID)
	assert.Equal(t, events.ScheduleAdded, <-sub.C)
	assert.Empty(t, s.Schedules(), "add does not touch the cache")
	m.AssertExpectations(t)
}

func TestAdd_FailurePublishesNothing(t *testing.T) {
	m := new(mockBackend)
	bus := events.NewBus()
	sub := bus.Subscribe()
	defer sub.Close()
	m.On("CreateSchedule", mock.Anything, mock.Anything).Return(nil, errors.New("HTTP 500"))

	s := New(m, bus)
	_, err := s.Add(context.Background(), model.ScheduleInput{Title: "x", StartTime: at(2024, 6, 1, 9, 0)})
	require.Error(t, err)

	select {
	case sig := <-sub.C:
		t.Fatalf("unexpected signal %s", sig)
	default:
	}
}

func TestUpdateAndDelete_Publish(t *testing.T) {
	m := new(mockBackend)
	bus := events.NewBus()
	sub := bus.Subscribe()
	defer sub.Close()

	m.On("UpdateSchedule", mock.Anything, int64(3), mock.Anything).Return(&model.Schedule{ID: 3, Title: "y"}, nil)
	m.On("DeleteSchedule", mock.Anything, int64(3)).Return(nil)
	m.On("DeleteSchedule", mock.Anything, int64(4)).Return(errors.New("HTTP 404"))

	s := New(m, bus)
	updated, err := s.Update(context.Background(), 3, model.ScheduleInput{Title: "y", StartTime: at(2024, 6, 1, 9, 0)})
	require.NoError(t, err)
	assert.Equal(t, "y", updated.Title)
	assert.Equal(t, events.ScheduleUpdated, <-sub.C)

	require.NoError(t, s.Delete(context.Background(), 3))
	assert.Equal(t, events.ScheduleDeleted, <-sub.C)

	err = s.Delete(context.Background(), 4)
	var opErr *model.OpError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, int64(4), opErr.ID)
}

func TestUpdate_RejectsEndBeforeStart(t *testing.T) {
	m := new(mockBackend)
	s := New(m, events.NewBus())
	end := at(2024, 6, 1, 8, 0)
	_, err := s.Update(context.Background(), 1, model.ScheduleInput{Title: "x", StartTime: at(2024, 6, 1, 9, 0), EndTime: &end})
	assert.True(t, errors.Is(err, model.ErrValidation))
	m.AssertNotCalled(t, "UpdateSchedule", mock.Anything, mock.Anything, mock.Anything)
}

func TestDetail(t *testing.T) {
	m := new(mockBackend)
	m.On("GetSchedule", mock.Anything, int64(8)).Return(&model.Schedule{ID: 8, Title: "Dinner"}, nil)
	m.On("GetSchedule", mock.Anything, int64(9)).Return(nil, errors.New("HTTP 404"))

	s := New(m, events.NewBus())
	sc, err := s.Detail(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, "Dinner", sc.Title)

	_, err = s.Detail(context.Background(), 9)
	assert.Error(t, err)
	assert.Empty(t, s.Schedules(), "detail is independent of the list cache")
}

// ============================================================
// Refresh protocol
// ============================================================

func TestWatch_RefetchesAfterMutation(t *testing.T) {
	srv := devserver.New("")
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	s := New(api.NewClient(ts.URL, ""), events.NewBus())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	results := s.Watch(ctx)

	created, err := s.Add(ctx, model.ScheduleInput{Title: "Picnic", StartTime: at(2024, 6, 1, 12, 0)})
	require.NoError(t, err)

	select {
	case err := <-results:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("no refetch after add")
	}
	assert.Equal(t, []int64{created.ID}, ids(s.Schedules()))

	require.NoError(t, s.Delete(ctx, created.ID))
	require.NoError(t, <-results)
	assert.Empty(t, s.Schedules())
}

func TestWatch_StopsOnCancel(t *testing.T) {
	bus := events.NewBus()
	s := New(new(mockBackend), bus)
	ctx, cancel := context.WithCancel(context.Background())
	results := s.Watch(ctx)
	assert.Equal(t, 1, bus.Len())

	cancel()
	_, open := <-results
	assert.False(t, open)
	assert.Eventually(t, func() bool { return bus.Len() == 0 }, time.Second, 10*time.Millisecond)
}
