// internal/db/room_repository.go

package db

import (
	"fmt"

	"gorm.io/gorm"

	"backend/internal/logger"
)

// RoomRepository persists RoomRecord snapshots. It is the single interface
// the scheduler's flush path depends on, matching the teacher's
// IRoomRepository/GormRoomRepository split rather than the older
// concrete-only revision.
type RoomRepository interface {
	Get(roomID string) (*RoomRecord, error)
	Upsert(rec *RoomRecord) error
	All() ([]RoomRecord, error)
}

type gormRoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &gormRoomRepository{db: db}
}

func (r *gormRoomRepository) Get(roomID string) (*RoomRecord, error) {
	var rec RoomRecord
	if err := r.db.First(&rec, "room_id = ?", roomID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		logger.Error("get room %s failed: %v", roomID, err)
		return nil, fmt.Errorf("get room %s: %w", roomID, err)
	}
	return &rec, nil
}

func (r *gormRoomRepository) Upsert(rec *RoomRecord) error {
	if err := r.db.Save(rec).Error; err != nil {
		logger.Error("upsert room %s failed: %v", rec.RoomID, err)
		return fmt.Errorf("upsert room %s: %w", rec.RoomID, err)
	}
	return nil
}

func (r *gormRoomRepository) All() ([]RoomRecord, error) {
	var recs []RoomRecord
	if err := r.db.Order("room_id asc").Find(&recs).Error; err != nil {
		logger.Error("list rooms failed: %v", err)
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return recs, nil
}
