// internal/db/detail_repository.go

package db

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"backend/internal/logger"
)

// DetailRepository persists the append-only DetailRecord interval rows, and
// the Invoice rows written when a session's power is turned off.
type DetailRepository interface {
	Open(roomID, sessionID, fan string, feeRate float64, start time.Time) (*DetailRecord, error)
	Accumulate(id uint, deltaFee, deltaSecs float64) error
	Close(id uint, end time.Time) error
	OpenForRoom(roomID string) (*DetailRecord, error)
	HistoryForRoom(roomID string) ([]DetailRecord, error)
	WriteInvoice(roomID, sessionID string, totalFee float64, closedAt time.Time) error
}

type gormDetailRepository struct {
	db *gorm.DB
}

func NewDetailRepository(db *gorm.DB) DetailRepository {
	return &gormDetailRepository{db: db}
}

func (r *gormDetailRepository) Open(roomID, sessionID, fan string, feeRate float64, start time.Time) (*DetailRecord, error) {
	rec := &DetailRecord{
		RoomID:    roomID,
		SessionID: sessionID,
		Fan:       fan,
		FeeRate:   feeRate,
		StartTime: start,
	}
	if err := r.db.Create(rec).Error; err != nil {
		logger.Error("open detail for room %s failed: %v", roomID, err)
		return nil, fmt.Errorf("open detail for room %s: %w", roomID, err)
	}
	return rec, nil
}

func (r *gormDetailRepository) Accumulate(id uint, deltaFee, deltaSecs float64) error {
	err := r.db.Model(&DetailRecord{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"accrued_fee":  gorm.Expr("accrued_fee + ?", deltaFee),
			"accrued_secs": gorm.Expr("accrued_secs + ?", deltaSecs),
		}).Error
	if err != nil {
		logger.Error("accumulate detail %d failed: %v", id, err)
		return fmt.Errorf("accumulate detail %d: %w", id, err)
	}
	return nil
}

func (r *gormDetailRepository) Close(id uint, end time.Time) error {
	err := r.db.Model(&DetailRecord{}).Where("id = ?", id).
		Updates(map[string]interface{}{"end_time": end, "closed": true}).Error
	if err != nil {
		logger.Error("close detail %d failed: %v", id, err)
		return fmt.Errorf("close detail %d: %w", id, err)
	}
	return nil
}

func (r *gormDetailRepository) OpenForRoom(roomID string) (*DetailRecord, error) {
	var rec DetailRecord
	err := r.db.Where("room_id = ? AND closed = ?", roomID, false).
		Order("start_time desc").First(&rec).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get open detail for room %s: %w", roomID, err)
	}
	return &rec, nil
}

func (r *gormDetailRepository) HistoryForRoom(roomID string) ([]DetailRecord, error) {
	var recs []DetailRecord
	if err := r.db.Where("room_id = ?", roomID).Order("start_time asc").Find(&recs).Error; err != nil {
		logger.Error("history for room %s failed: %v", roomID, err)
		return nil, fmt.Errorf("history for room %s: %w", roomID, err)
	}
	return recs, nil
}

func (r *gormDetailRepository) WriteInvoice(roomID, sessionID string, totalFee float64, closedAt time.Time) error {
	inv := &Invoice{RoomID: roomID, SessionID: sessionID, TotalFee: totalFee, ClosedAt: closedAt}
	if err := r.db.Create(inv).Error; err != nil {
		logger.Error("write invoice for room %s failed: %v", roomID, err)
		return fmt.Errorf("write invoice for room %s: %w", roomID, err)
	}
	return nil
}
