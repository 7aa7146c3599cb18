// internal/scheduler/types.go

package scheduler

import (
	"time"

	"backend/internal/types"
)

// Room is a pure in-memory data record: no callbacks back into the
// scheduler or the repository layer. The scheduler mutates it directly and
// flushes a snapshot to storage after every mutation.
type Room struct {
	ID          string
	SessionID   string
	Power       bool
	Fan         types.FanSpeed
	CurrentTemp float64
	TargetTemp  float64
	InitialTemp float64
	CurrentFee  float64
	TotalFee    float64

	// openDetailID is the storage id of the currently-open DetailRecord for
	// this room's service membership, 0 when none is open.
	openDetailID uint
}

// serviceEntry tracks a room's place in the service queue.
type serviceEntry struct {
	roomID      string
	priority    int
	serviceFrom time.Time
}

// waitItem is one room's place in the wait priority queue: ordered by
// priority descending, then by wait start ascending (earliest first).
type waitItem struct {
	roomID    string
	priority  int
	waitFrom  time.Time
	index     int
}
