// Package storage is the Persistence Port: an abstract interface backed
// by GORM/SQLite, grounded on the teacher's internal/db package
// (repository structs wrapping *gorm.DB, AutoMigrate on startup). Every
// write here is best-effort: a failure is logged here and returned
// (RecordSession returns nothing and only logs), and internal/core logs
// it and carries on, so losing a persistence write never stalls or
// crashes the tick loop or the façade.
package storage

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"backend/internal/logger"
	"backend/internal/room"
)

// Port is what internal/core and internal/driver depend on. Nothing in
// this module tree imports *gorm.DB directly outside of this package.
type Port interface {
	RecordCheckIn(rec CheckInRecord) error
	RecordCheckOut(roomID string, checkoutTime time.Time, finalACFee float64) error
	SaveRoomState(rec RoomStateRecord) error
	RecordSession(rec room.SessionRecord)
	OpenCheckIns() ([]CheckInRecord, error)
	LatestRoomState(roomID string) (RoomStateRecord, error)
	Close() error
}

// Store is the GORM/SQLite-backed implementation, following the
// teacher's RoomRepository shape: a thin struct wrapping *gorm.DB, one
// method per persistence operation.
type Store struct {
	db *gorm.DB
}

// Open connects to (and creates, if absent) the SQLite database at path
// and migrates the three tables this module owns.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&CheckInRecord{}, &RoomStateRecord{}, &ACSessionRecord{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

// RecordCheckIn appends a new check-in row.
func (s *Store) RecordCheckIn(rec CheckInRecord) error {
	if err := s.db.Create(&rec).Error; err != nil {
		logger.Error("record check-in for room %s: %v", rec.RoomID, err)
		return err
	}
	return nil
}

// RecordCheckOut closes the most recent open check-in row for roomID.
func (s *Store) RecordCheckOut(roomID string, checkoutTime time.Time, finalACFee float64) error {
	err := s.db.Model(&CheckInRecord{}).
		Where("room_id = ? AND closed = ?", roomID, false).
		Order("checkin_time desc").
		Limit(1).
		Updates(map[string]interface{}{
			"checkout_time": checkoutTime,
			"final_ac_fee":  finalACFee,
			"closed":        true,
		}).Error
	if err != nil {
		logger.Error("record check-out for room %s: %v", roomID, err)
	}
	return err
}

// SaveRoomState upserts the single live snapshot row for rec.RoomID,
// overwriting whatever was there before.
func (s *Store) SaveRoomState(rec RoomStateRecord) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}},
		UpdateAll: true,
	}).Create(&rec).Error
	if err != nil {
		logger.Error("save room state for room %s: %v", rec.RoomID, err)
		return err
	}
	return nil
}

// RecordSession appends a closed AC session row. It implements
// driver.SessionRecorder structurally, without internal/storage
// importing internal/driver.
func (s *Store) RecordSession(rec room.SessionRecord) {
	row := ACSessionRecord{
		RoomID:          rec.RoomID,
		RequestTime:     rec.RequestTime,
		StartTime:       rec.StartTime,
		EndTime:         rec.EndTime,
		DurationSeconds: rec.Duration,
		FanSpeed:        string(rec.FanSpeed),
		Fee:             rec.Fee,
		TotalFeeAtClose: rec.TotalFeeAtClose,
	}
	if err := s.db.Create(&row).Error; err != nil {
		logger.Error("record ac session for room %s: %v", rec.RoomID, err)
	}
}

// OpenCheckIns returns every check-in row that has not been closed yet,
// used to rehydrate tenancy state on startup.
func (s *Store) OpenCheckIns() ([]CheckInRecord, error) {
	var recs []CheckInRecord
	err := s.db.Where("closed = ?", false).Find(&recs).Error
	if err != nil {
		logger.Error("load open check-ins: %v", err)
	}
	return recs, err
}

// LatestRoomState returns the live snapshot row for roomID, used to
// rehydrate thermal/billing state on startup.
func (s *Store) LatestRoomState(roomID string) (RoomStateRecord, error) {
	var rec RoomStateRecord
	err := s.db.Where("room_id = ?", roomID).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RoomStateRecord{}, nil
		}
		logger.Error("load latest room state for room %s: %v", roomID, err)
	}
	return rec, err
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
