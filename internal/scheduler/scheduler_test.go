// internal/scheduler/scheduler_test.go

package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"backend/internal/config"
	"backend/internal/db"
	"backend/internal/events"
	"backend/internal/types"
)

// fakeRoomRepo and fakeDetailRepo are in-memory stand-ins for the gorm
// repositories, matching the teacher's scheduler_test.go one-function-per-
// scenario style but with a controllable clock instead of time.Sleep.
type fakeRoomRepo struct {
	rooms map[string]db.RoomRecord
}

func newFakeRoomRepo(cfg *config.Config, mode types.Mode) *fakeRoomRepo {
	repo := &fakeRoomRepo{rooms: make(map[string]db.RoomRecord)}
	defaults := cfg.Modes[mode]
	for _, id := range cfg.SortedRoomIDs() {
		initial := defaults.InitialTemps[id]
		repo.rooms[id] = db.RoomRecord{
			RoomID:      id,
			Mode:        string(mode),
			Fan:         "medium",
			CurrentTemp: initial,
			TargetTemp:  defaults.DefaultTarget,
			InitialTemp: initial,
		}
	}
	return repo
}

func (f *fakeRoomRepo) Get(roomID string) (*db.RoomRecord, error) {
	r, ok := f.rooms[roomID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (f *fakeRoomRepo) Upsert(rec *db.RoomRecord) error {
	f.rooms[rec.RoomID] = *rec
	return nil
}

func (f *fakeRoomRepo) All() ([]db.RoomRecord, error) {
	out := make([]db.RoomRecord, 0, len(f.rooms))
	for _, r := range f.rooms {
		out = append(out, r)
	}
	return out, nil
}

type fakeDetailRepo struct {
	nextID  uint
	records map[uint]*db.DetailRecord
}

func newFakeDetailRepo() *fakeDetailRepo {
	return &fakeDetailRepo{records: make(map[uint]*db.DetailRecord)}
}

func (f *fakeDetailRepo) Open(roomID, sessionID, fan string, feeRate float64, start time.Time) (*db.DetailRecord, error) {
	f.nextID++
	rec := &db.DetailRecord{ID: f.nextID, RoomID: roomID, SessionID: sessionID, Fan: fan, FeeRate: feeRate, StartTime: start}
	f.records[rec.ID] = rec
	return rec, nil
}

func (f *fakeDetailRepo) Accumulate(id uint, deltaFee, deltaSecs float64) error {
	if r, ok := f.records[id]; ok {
		r.AccruedFee += deltaFee
		r.AccruedSecs += deltaSecs
	}
	return nil
}

func (f *fakeDetailRepo) Close(id uint, end time.Time) error {
	if r, ok := f.records[id]; ok {
		r.EndTime = &end
		r.Closed = true
	}
	return nil
}

func (f *fakeDetailRepo) OpenForRoom(roomID string) (*db.DetailRecord, error) {
	for _, r := range f.records {
		if r.RoomID == roomID && !r.Closed {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeDetailRepo) HistoryForRoom(roomID string) ([]db.DetailRecord, error) {
	var out []db.DetailRecord
	for _, r := range f.records {
		if r.RoomID == roomID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeDetailRepo) WriteInvoice(roomID, sessionID string, totalFee float64, closedAt time.Time) error {
	return nil
}

// testClock lets tests advance simulated wall-clock time explicitly instead
// of sleeping.
type testClock struct{ now time.Time }

func newTestClock() *testClock { return &testClock{now: time.Unix(0, 0)} }
func (c *testClock) Now() time.Time { return c.now }
func (c *testClock) Advance(d time.Duration) time.Time {
	c.now = c.now.Add(d)
	return c.now
}

func newTestScheduler(t *testing.T) (*Scheduler, *testClock) {
	t.Helper()
	cfg := config.Default()
	clock := newTestClock()
	roomRepo := newFakeRoomRepo(cfg, types.ModeCool)
	detailRepo := newFakeDetailRepo()
	bus := events.NewEventBus()

	s := New(cfg, roomRepo, detailRepo, bus)
	s.nowFunc = clock.Now
	require.NoError(t, s.LoadRooms(types.ModeCool))
	return s, clock
}

func TestDirectAssignmentUnderCapacity(t *testing.T) {
	s, _ := newTestScheduler(t)
	require.NoError(t, s.RequestPower("101", types.FanHigh, 25))
	require.NoError(t, s.RequestPower("102", types.FanLow, 25))
	require.NoError(t, s.RequestPower("103", types.FanMedium, 25))

	for _, id := range []string{"101", "102", "103"} {
		st, err := s.Status(id)
		require.NoError(t, err)
		require.Equal(t, types.StateRunning, st.State)
	}
}

func TestPriorityPreemption(t *testing.T) {
	s, _ := newTestScheduler(t)
	require.NoError(t, s.RequestPower("101", types.FanLow, 25))
	require.NoError(t, s.RequestPower("102", types.FanLow, 25))
	require.NoError(t, s.RequestPower("103", types.FanLow, 25))

	// capacity full at low priority; a high-priority request must preempt
	// one of them into the wait queue.
	require.NoError(t, s.RequestPower("104", types.FanHigh, 25))

	st104, err := s.Status("104")
	require.NoError(t, err)
	require.Equal(t, types.StateRunning, st104.State)

	waitingCount := 0
	for _, id := range []string{"101", "102", "103"} {
		st, err := s.Status(id)
		require.NoError(t, err)
		if st.State == types.StateWaiting {
			waitingCount++
		}
	}
	require.Equal(t, 1, waitingCount)
}

func TestSamePriorityDoesNotPreempt(t *testing.T) {
	s, _ := newTestScheduler(t)
	require.NoError(t, s.RequestPower("101", types.FanMedium, 25))
	require.NoError(t, s.RequestPower("102", types.FanMedium, 25))
	require.NoError(t, s.RequestPower("103", types.FanMedium, 25))
	require.NoError(t, s.RequestPower("104", types.FanMedium, 25))

	st, err := s.Status("104")
	require.NoError(t, err)
	require.Equal(t, types.StateWaiting, st.State)
}

func TestStopPowerReleasesSlotToWaitQueue(t *testing.T) {
	s, _ := newTestScheduler(t)
	require.NoError(t, s.RequestPower("101", types.FanMedium, 25))
	require.NoError(t, s.RequestPower("102", types.FanMedium, 25))
	require.NoError(t, s.RequestPower("103", types.FanMedium, 25))
	require.NoError(t, s.RequestPower("104", types.FanMedium, 25))

	st104, _ := s.Status("104")
	require.Equal(t, types.StateWaiting, st104.State)

	require.NoError(t, s.StopPower("101"))

	st104, _ = s.Status("104")
	require.Equal(t, types.StateRunning, st104.State)
}

func TestTimeSliceRotation(t *testing.T) {
	s, clock := newTestScheduler(t)
	require.NoError(t, s.RequestPower("101", types.FanMedium, 18)) // far from target, stays serving
	require.NoError(t, s.RequestPower("102", types.FanMedium, 18))
	require.NoError(t, s.RequestPower("103", types.FanMedium, 18))
	require.NoError(t, s.RequestPower("104", types.FanMedium, 18))

	st104, _ := s.Status("104")
	require.Equal(t, types.StateWaiting, st104.State)

	// advance past one TIME_SLICE of simulated seconds: real seconds needed
	// = TimeSlice / TimeScale.
	s.lastTick = clock.now
	advance := time.Duration(s.cfg.TimeSlice/s.cfg.TimeScale*float64(time.Second)) + time.Second
	now := clock.Advance(advance)
	s.tickOnce(now)

	st104, _ = s.Status("104")
	require.Equal(t, types.StateRunning, st104.State)
}

func TestHysteresisParksRoomAndHoldsWithinBand(t *testing.T) {
	s, clock := newTestScheduler(t)
	require.NoError(t, s.RequestPower("103", types.FanHigh, 29.9)) // 0.1 away, reached almost instantly

	s.lastTick = clock.now
	now := clock.Advance(time.Second)
	s.tickOnce(now)

	st, _ := s.Status("103")
	require.Equal(t, types.StateIdle, st.State)
	require.InDelta(t, 29.9, st.CurrentTemp, 0.01)

	// drift passively back toward InitialTemp (30) past the hysteresis band
	// requires currentTemp - target >= 1.0, i.e. currentTemp >= 30.9 -- but
	// InitialTemp is 30 here so recovery alone won't retrigger; instead
	// verify recovery moves toward InitialTemp without re-dispatch.
	now = clock.Advance(2 * time.Second)
	s.tickOnce(now)
	st, _ = s.Status("103")
	require.Equal(t, types.StateIdle, st.State)
}

func TestInvalidFanSpeedRejected(t *testing.T) {
	s, _ := newTestScheduler(t)
	err := s.RequestPower("101", types.FanSpeed("turbo"), 25)
	require.Error(t, err)
}

func TestUnknownRoomRejected(t *testing.T) {
	s, _ := newTestScheduler(t)
	err := s.RequestPower("999", types.FanLow, 25)
	require.Error(t, err)
}

func TestSetModeResetsAllRooms(t *testing.T) {
	s, _ := newTestScheduler(t)
	require.NoError(t, s.RequestPower("101", types.FanHigh, 25))
	require.NoError(t, s.SetMode(types.ModeHeat))

	st, err := s.Status("101")
	require.NoError(t, err)
	require.Equal(t, types.StateOff, st.State)
	require.InDelta(t, 10.0, st.CurrentTemp, 0.001)
	require.InDelta(t, 23.0, st.TargetTemp, 0.001)
}
