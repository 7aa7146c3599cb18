// internal/db/model.go

package db

import "time"

// RoomRecord is the persisted mirror of a scheduler.Room snapshot, flushed
// on every mutation so a restart can rehydrate in-memory state.
type RoomRecord struct {
	RoomID      string `gorm:"primaryKey"`
	Mode        string
	Power       bool
	SessionID   string
	Fan         string
	CurrentTemp float64
	TargetTemp  float64
	InitialTemp float64
	CurrentFee  float64
	TotalFee    float64
	UpdatedAt   time.Time
}

// DetailRecord is an append-only service interval for a session, closed
// when the room leaves service (preempted, completed, or powered off) or
// when a new power request re-parameterises a serving room, which closes
// the current row and opens a fresh one.
type DetailRecord struct {
	ID            uint `gorm:"primaryKey;autoIncrement"`
	RoomID        string
	SessionID     string
	Fan           string
	FeeRate       float64
	StartTime     time.Time
	EndTime       *time.Time
	AccruedFee    float64
	AccruedSecs   float64
	Closed        bool
}

// Invoice is the minimal persisted settlement row written when a room's
// session ends (power off). It satisfies the "invoices are persisted"
// contract without implementing export itself.
type Invoice struct {
	ID        uint `gorm:"primaryKey;autoIncrement"`
	RoomID    string
	SessionID string
	TotalFee  float64
	ClosedAt  time.Time
}
