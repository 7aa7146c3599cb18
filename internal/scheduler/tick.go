// internal/scheduler/tick.go

package scheduler

import (
	"time"

	"backend/internal/events"
	"backend/internal/logger"
	"backend/internal/types"
)

// minTickReal and maxTickReal clamp the real elapsed time used to derive a
// simulated step, so a delayed goroutine wakeup (GC pause, busy scheduler)
// never produces a single enormous simulated jump.
const (
	minTickReal = time.Millisecond
	maxTickReal = 5 * time.Second
)

// tickOnce advances the simulation by the real time elapsed since the last
// tick, scaled by TimeScale. It is called by the Run goroutine with the wall
// clock, and directly by tests with a synthetic now to get deterministic
// steps.
func (s *Scheduler) tickOnce(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	real := now.Sub(s.lastTick)
	s.lastTick = now
	if s.paused {
		return
	}
	if real < minTickReal {
		real = minTickReal
	}
	if real > maxTickReal {
		real = maxTickReal
	}
	simSeconds := real.Seconds() * s.cfg.TimeScale

	s.timeSliceCheckLocked(now)
	s.dynamicPreemptionCheckLocked(now)

	for _, id := range s.cfg.SortedRoomIDs() {
		room, ok := s.rooms[id]
		if !ok {
			continue
		}
		s.advanceRoomLocked(room, simSeconds, now)
	}
}

// timeSliceCheckLocked implements same-priority rotation: a waiting room
// that has been waiting at least TimeSlice simulated seconds swaps with the
// longest-serving room of the same priority. At most one swap per tick.
func (s *Scheduler) timeSliceCheckLocked(now time.Time) {
	for _, w := range s.queue.WaitItems() {
		simWait := now.Sub(w.waitFrom).Seconds() * s.cfg.TimeScale
		if simWait < s.cfg.TimeSlice {
			continue
		}
		var victim string
		var longest time.Duration = -1
		for _, sid := range s.queue.ServiceRoomIDs() {
			e := s.queue.ServiceEntry(sid)
			if e.priority != w.priority {
				continue
			}
			d := now.Sub(e.serviceFrom)
			if d > longest {
				longest = d
				victim = sid
			}
		}
		if victim == "" {
			continue
		}
		s.queue.RemoveFromWait(w.roomID)
		s.evictToWait(victim, now)
		s.addToService(w.roomID, now)
		return
	}
}

// dynamicPreemptionCheckLocked promotes the highest-priority waiter over
// the lowest-priority server whenever a speed change has made that waiter
// strictly higher priority than the lowest-priority current server.
func (s *Scheduler) dynamicPreemptionCheckLocked(now time.Time) {
	top, ok := s.queue.PeekWait()
	if !ok {
		return
	}
	minPriority, cohort := lowestPriorityCohort(s.queue)
	if len(cohort) == 0 || top.priority <= minPriority {
		return
	}
	victim := selectVictim(s.queue, cohort, now)
	s.queue.RemoveFromWait(top.roomID)
	s.evictToWait(victim, now)
	s.addToService(top.roomID, now)
}

// advanceRoomLocked applies one simulated step of physics to a single room:
// active cooling/heating toward target while served, passive recovery
// toward the initial temperature while idle/waiting, and hysteresis
// re-trigger once the drift crosses the threshold.
func (s *Scheduler) advanceRoomLocked(room *Room, simSeconds float64, now time.Time) {
	if !room.Power {
		return
	}

	if s.queue.IsInService(room.ID) {
		s.advanceServedRoom(room, simSeconds, now)
		return
	}

	s.advanceUnservedRoom(room, simSeconds, now)
}

func (s *Scheduler) advanceServedRoom(room *Room, simSeconds float64, now time.Time) {
	profile := s.cfg.FanProfileFor(room.Fan)
	ratePerSec := profile.RatePerMin / 60.0
	sign := -1.0
	if s.mode == types.ModeHeat {
		sign = 1.0
	}

	distance := room.TargetTemp - room.CurrentTemp
	// distance and sign share direction when the room still needs service;
	// compare magnitudes to detect whether this step would overshoot.
	fullStep := ratePerSec * simSeconds
	billSeconds := simSeconds
	if fullStep >= absFloat(distance) {
		// Overshoot: only bill the sub-duration needed to reach target exactly.
		if ratePerSec > 0 {
			billSeconds = absFloat(distance) / ratePerSec
		}
		room.CurrentTemp = room.TargetTemp
	} else {
		room.CurrentTemp += sign * fullStep
	}

	cost := profile.FeeRatePerMin / 60.0 * billSeconds
	room.CurrentFee += cost
	room.TotalFee += cost
	if room.openDetailID != 0 {
		if err := s.detailRepo.Accumulate(room.openDetailID, cost, billSeconds); err != nil {
			logger.Error("accumulate detail for room %s failed: %v", room.ID, err)
		}
	}
	s.persistRoom(room)

	if !s.needsService(room, false) {
		s.closeOpenRecord(room, now)
		s.queue.RemoveFromService(room.ID)
		s.setHysteresis(room.ID)
		s.scheduleNext(now)
		s.eventBus.Publish(events.Event{
			Type:      events.EventServiceCompleted,
			RoomID:    room.ID,
			Timestamp: now,
			Data:      events.ServiceEventData{RoomID: room.ID, SessionID: room.SessionID, Fan: string(room.Fan), Reason: "completed"},
		})
	}
}

func (s *Scheduler) advanceUnservedRoom(room *Room, simSeconds float64, now time.Time) {
	ratePerSec := s.cfg.RecoverRate / 60.0
	step := ratePerSec * simSeconds

	if room.CurrentTemp < room.InitialTemp {
		room.CurrentTemp += step
		if room.CurrentTemp > room.InitialTemp {
			room.CurrentTemp = room.InitialTemp
		}
	} else if room.CurrentTemp > room.InitialTemp {
		room.CurrentTemp -= step
		if room.CurrentTemp < room.InitialTemp {
			room.CurrentTemp = room.InitialTemp
		}
	}
	s.persistRoom(room)

	if s.inHysteresis(room.ID) && s.needsService(room, true) {
		s.clearHysteresis(room.ID)
		if !s.queue.IsWaiting(room.ID) {
			s.dispatch(room.ID, now)
		}
	}
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
