// internal/db/init.go

package db

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"backend/internal/config"
	"backend/internal/types"
)

var DB *gorm.DB

// InitDB opens the sqlite file, tunes the connection pool and migrates the
// schema, the way the teacher's Init_DB does for its own model set.
func InitDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&RoomRecord{}, &DetailRecord{}, &Invoice{}); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	DB = db
	return db, nil
}

// SeedRooms writes one RoomRecord per configured room id, using the given
// mode's defaults, if the room does not already exist. Safe to call on every
// startup.
func SeedRooms(db *gorm.DB, cfg *config.Config, mode types.Mode) error {
	defaults := cfg.Modes[mode]
	for _, id := range cfg.SortedRoomIDs() {
		var existing RoomRecord
		err := db.First(&existing, "room_id = ?", id).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return fmt.Errorf("seed lookup room %s: %w", id, err)
		}
		initial := defaults.InitialTemps[id]
		rec := RoomRecord{
			RoomID:      id,
			Mode:        string(mode),
			Power:       false,
			Fan:         "medium",
			CurrentTemp: initial,
			TargetTemp:  defaults.DefaultTarget,
			InitialTemp: initial,
		}
		if err := db.Create(&rec).Error; err != nil {
			return fmt.Errorf("seed room %s: %w", id, err)
		}
	}
	return nil
}
