// internal/scheduler/scheduler.go

package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"backend/internal/config"
	"backend/internal/db"
	"backend/internal/events"
	"backend/internal/logger"
	"backend/internal/types"
)

// Scheduler is the explicit, owned component described by the component
// design: one instance per process, constructed and wired by internal/app,
// never a package-level singleton. It holds every room's live state, the
// service/wait queues, and drives the fixed-step simulation tick.
type Scheduler struct {
	mu sync.Mutex

	cfg        *config.Config
	mode       types.Mode
	rooms      map[string]*Room
	queue      *QueueManager
	hysteresis map[string]bool
	paused     bool
	lastTick   time.Time

	roomRepo   db.RoomRepository
	detailRepo db.DetailRepository
	eventBus   *events.EventBus

	nowFunc func() time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func New(cfg *config.Config, roomRepo db.RoomRepository, detailRepo db.DetailRepository, bus *events.EventBus) *Scheduler {
	return &Scheduler{
		cfg:        cfg,
		mode:       types.ModeCool,
		rooms:      make(map[string]*Room),
		queue:      NewQueueManager(),
		hysteresis: make(map[string]bool),
		roomRepo:   roomRepo,
		detailRepo: detailRepo,
		eventBus:   bus,
		nowFunc:    time.Now,
		stopCh:     make(chan struct{}),
	}
}

// LoadRooms hydrates in-memory Room state from storage for the given mode.
// Callers are expected to have already seeded the room table (internal/app
// does this via db.SeedRooms before constructing the scheduler).
func (s *Scheduler) LoadRooms(mode types.Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mode = mode
	return s.loadRoomsLocked()
}

func (s *Scheduler) loadRoomsLocked() error {
	recs, err := s.roomRepo.All()
	if err != nil {
		return err
	}
	s.rooms = make(map[string]*Room, len(recs))
	for _, r := range recs {
		s.rooms[r.RoomID] = &Room{
			ID:          r.RoomID,
			SessionID:   r.SessionID,
			Power:       r.Power,
			Fan:         types.FanSpeed(r.Fan),
			CurrentTemp: r.CurrentTemp,
			TargetTemp:  r.TargetTemp,
			InitialTemp: r.InitialTemp,
			CurrentFee:  r.CurrentFee,
			TotalFee:    r.TotalFee,
		}
	}
	s.lastTick = s.nowFunc()
	return nil
}

// Run starts the background simulation-tick goroutine.
func (s *Scheduler) Run() {
	interval, err := time.ParseDuration(s.cfg.TickInterval)
	if err != nil || interval <= 0 {
		interval = 200 * time.Millisecond
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.tickOnce(s.nowFunc())
			case <-s.stopCh:
				return
			}
		}
	}()
	logger.Info("scheduler started, tick interval=%v", interval)
}

func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	logger.Info("scheduler stopped")
}

// --- priority / physics helpers ---

func (s *Scheduler) priorityOf(fan types.FanSpeed) int {
	return s.cfg.FanProfileFor(fan).Priority
}

// needsService reports whether a powered-on room currently requires active
// cooling/heating. A room sitting in hysteresis only needs service again
// once it has drifted back past the hysteresis delta.
func (s *Scheduler) needsService(r *Room, inHysteresis bool) bool {
	diff := r.CurrentTemp - r.TargetTemp
	if inHysteresis {
		if s.mode == types.ModeCool {
			return diff >= s.cfg.Hysteresis
		}
		return diff <= -s.cfg.Hysteresis
	}
	if s.mode == types.ModeCool {
		return diff > s.cfg.Epsilon
	}
	return diff < -s.cfg.Epsilon
}

// --- command path ---

// RequestPower is the unified open/adjust entry point: assigns a fresh
// session on OFF->ON transitions, closes any open detail record, writes the
// new parameters, and either parks the room in hysteresis or dispatches it.
func (s *Scheduler) RequestPower(roomID string, fan types.FanSpeed, target float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return fmt.Errorf("%w: room %s", types.ErrNotFound, roomID)
	}
	if !s.cfg.ValidFan(fan) {
		return fmt.Errorf("%w: fan speed %q", types.ErrInvalidArgument, fan)
	}
	if !s.cfg.ValidTarget(s.mode, target) {
		return fmt.Errorf("%w: target %.2f out of range", types.ErrInvalidArgument, target)
	}

	now := s.nowFunc()
	wasOff := !room.Power
	if wasOff {
		room.SessionID = uuid.New().String()
	}
	s.closeOpenRecord(room, now)

	room.Fan = fan
	room.TargetTemp = target
	room.Power = true
	s.clearHysteresis(roomID)
	s.persistRoom(room)

	if s.queue.IsInService(roomID) {
		if !s.needsService(room, false) {
			s.queue.RemoveFromService(roomID)
			s.setHysteresis(roomID)
			s.scheduleNext(now)
			return nil
		}
		s.queue.ServiceEntry(roomID).priority = s.priorityOf(fan)
		s.openRecord(room, now)
		return nil
	}
	if s.queue.IsWaiting(roomID) {
		s.queue.RemoveFromWait(roomID)
	}

	if !s.needsService(room, false) {
		s.setHysteresis(roomID)
		return nil
	}
	s.dispatch(roomID, now)
	return nil
}

// StopPower powers a room off, removing it from whichever queue it
// occupies and releasing its capacity slot to the wait queue.
func (s *Scheduler) StopPower(roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return fmt.Errorf("%w: room %s", types.ErrNotFound, roomID)
	}

	now := s.nowFunc()
	wasServing := s.queue.IsInService(roomID)
	s.closeOpenRecord(room, now)

	if wasServing {
		s.queue.RemoveFromService(roomID)
	}
	if s.queue.IsWaiting(roomID) {
		s.queue.RemoveFromWait(roomID)
	}
	s.clearHysteresis(roomID)

	if room.SessionID != "" {
		if err := s.detailRepo.WriteInvoice(roomID, room.SessionID, room.TotalFee, now); err != nil {
			logger.Error("write invoice for room %s failed: %v", roomID, err)
		}
	}

	room.Power = false
	room.SessionID = ""
	room.CurrentFee = 0
	s.persistRoom(room)

	if wasServing {
		s.scheduleNext(now)
	}
	return nil
}

// SetMode resets the whole building into a new thermodynamic mode: clears
// both queues, reinitializes every room to that mode's defaults.
func (s *Scheduler) SetMode(mode types.Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cfg.ValidMode(mode) {
		return fmt.Errorf("%w: mode %q", types.ErrInvalidArgument, mode)
	}

	defaults := s.cfg.Modes[mode]
	s.mode = mode
	s.queue = NewQueueManager()
	now := s.nowFunc()

	for id, room := range s.rooms {
		s.closeOpenRecord(room, now)
		initial := defaults.InitialTemps[id]
		room.Power = false
		room.SessionID = ""
		room.Fan = types.FanMedium
		room.CurrentTemp = initial
		room.InitialTemp = initial
		room.TargetTemp = defaults.DefaultTarget
		room.CurrentFee = 0
		room.TotalFee = 0
		s.persistRoom(room)
	}
	s.hysteresis = make(map[string]bool)
	return nil
}

func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
	s.lastTick = s.nowFunc()
}

// --- status ---

func (s *Scheduler) Status(roomID string) (types.RoomStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return types.RoomStatus{}, fmt.Errorf("%w: room %s", types.ErrNotFound, roomID)
	}
	return s.statusLocked(room), nil
}

func (s *Scheduler) AllStatus() []types.RoomStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.RoomStatus, 0, len(s.rooms))
	for _, id := range s.cfg.SortedRoomIDs() {
		room, ok := s.rooms[id]
		if !ok {
			continue
		}
		out = append(out, s.statusLocked(room))
	}
	return out
}

func (s *Scheduler) statusLocked(room *Room) types.RoomStatus {
	var state types.SchedState
	switch {
	case !room.Power:
		state = types.StateOff
	case s.queue.IsInService(room.ID) && s.paused:
		state = types.StateReady
	case s.queue.IsInService(room.ID):
		state = types.StateRunning
	case s.queue.IsWaiting(room.ID):
		state = types.StateWaiting
	default:
		state = types.StateIdle
	}
	var serviceSince, waitSince *time.Time
	if e := s.queue.ServiceEntry(room.ID); e != nil {
		t := e.serviceFrom
		serviceSince = &t
	}
	if w := s.queue.WaitEntry(room.ID); w != nil {
		t := w.waitFrom
		waitSince = &t
	}

	return types.RoomStatus{
		RoomID:       room.ID,
		SessionID:    room.SessionID,
		Power:        room.Power,
		Mode:         s.mode,
		Fan:          room.Fan,
		CurrentTemp:  room.CurrentTemp,
		TargetTemp:   room.TargetTemp,
		CurrentFee:   room.CurrentFee,
		TotalFee:     room.TotalFee,
		State:        state,
		ServiceSince: serviceSince,
		WaitSince:    waitSince,
	}
}

// --- dispatch / scheduling internals (must be called with s.mu held) ---

func (s *Scheduler) dispatch(roomID string, now time.Time) {
	room := s.rooms[roomID]
	if s.queue.ServiceCount() < s.cfg.MaxServices {
		s.addToService(roomID, now)
		return
	}

	reqPriority := s.priorityOf(room.Fan)
	minPriority, cohort := lowestPriorityCohort(s.queue)
	if reqPriority > minPriority {
		victim := selectVictim(s.queue, cohort, now)
		s.evictToWait(victim, now)
		s.addToService(roomID, now)
		return
	}
	s.queue.AddToWait(roomID, reqPriority, now)
}

// scheduleNext promotes waiters into any open service slots, skipping any
// candidate that no longer needs service (its target/fan may have changed
// while it waited) and parking it in hysteresis instead of spending a slot
// on it.
func (s *Scheduler) scheduleNext(now time.Time) {
	for s.queue.ServiceCount() < s.cfg.MaxServices {
		item, ok := s.queue.PopWait()
		if !ok {
			return
		}
		room, ok := s.rooms[item.roomID]
		if !ok {
			continue
		}
		if !s.needsService(room, false) {
			s.setHysteresis(item.roomID)
			continue
		}
		s.addToService(item.roomID, now)
	}
}

func (s *Scheduler) addToService(roomID string, now time.Time) {
	room := s.rooms[roomID]
	s.queue.AddToService(roomID, s.priorityOf(room.Fan), now)
	s.openRecord(room, now)
	s.eventBus.Publish(events.Event{
		Type:      events.EventServiceStarted,
		RoomID:    roomID,
		Timestamp: now,
		Data:      events.ServiceEventData{RoomID: roomID, SessionID: room.SessionID, Fan: string(room.Fan)},
	})
}

func (s *Scheduler) evictToWait(roomID string, now time.Time) {
	room := s.rooms[roomID]
	s.closeOpenRecord(room, now)
	s.queue.RemoveFromService(roomID)
	s.queue.AddToWait(roomID, s.priorityOf(room.Fan), now)
	s.eventBus.Publish(events.Event{
		Type:      events.EventServicePreempted,
		RoomID:    roomID,
		Timestamp: now,
		Data:      events.ServiceEventData{RoomID: roomID, SessionID: room.SessionID, Reason: "preempted"},
	})
}

func (s *Scheduler) openRecord(room *Room, now time.Time) {
	profile := s.cfg.FanProfileFor(room.Fan)
	rec, err := s.detailRepo.Open(room.ID, room.SessionID, string(room.Fan), profile.FeeRatePerMin, now)
	if err != nil {
		logger.Error("open detail record for room %s failed: %v", room.ID, err)
		return
	}
	room.openDetailID = rec.ID
}

func (s *Scheduler) closeOpenRecord(room *Room, now time.Time) {
	if room.openDetailID == 0 {
		return
	}
	if err := s.detailRepo.Close(room.openDetailID, now); err != nil {
		logger.Error("close detail record %d for room %s failed: %v", room.openDetailID, room.ID, err)
	}
	room.openDetailID = 0
}

func (s *Scheduler) persistRoom(room *Room) {
	rec := &db.RoomRecord{
		RoomID:      room.ID,
		Mode:        string(s.mode),
		Power:       room.Power,
		SessionID:   room.SessionID,
		Fan:         string(room.Fan),
		CurrentTemp: room.CurrentTemp,
		TargetTemp:  room.TargetTemp,
		InitialTemp: room.InitialTemp,
		CurrentFee:  room.CurrentFee,
		TotalFee:    room.TotalFee,
		UpdatedAt:   s.nowFunc(),
	}
	if err := s.roomRepo.Upsert(rec); err != nil {
		logger.Error("persist room %s failed: %v", room.ID, err)
	}
}

func (s *Scheduler) setHysteresis(roomID string) {
	if s.hysteresis == nil {
		s.hysteresis = make(map[string]bool)
	}
	s.hysteresis[roomID] = true
	s.eventBus.Publish(events.Event{Type: events.EventEnteredHysteresis, RoomID: roomID, Timestamp: s.nowFunc()})
}

func (s *Scheduler) clearHysteresis(roomID string) {
	if s.hysteresis == nil {
		return
	}
	delete(s.hysteresis, roomID)
}

func (s *Scheduler) inHysteresis(roomID string) bool {
	return s.hysteresis != nil && s.hysteresis[roomID]
}
