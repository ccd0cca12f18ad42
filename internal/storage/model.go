package storage

import "time"

// CheckInRecord is the check_ins table: one row per stay, opened by
// CheckIn and closed by CheckOut. Grounded on the teacher's db.RoomInfo
// tenancy fields (ClientID, ClientName, CheckinTime, CheckoutTime).
type CheckInRecord struct {
	ID           uint `gorm:"primaryKey;autoIncrement"`
	RoomID       string `gorm:"index;type:varchar(64)"`
	TenantID     string `gorm:"type:varchar(255)"`
	TenantName   string `gorm:"type:varchar(255)"`
	TenantPhone  string `gorm:"type:varchar(32)"`
	StayDays     int
	NightlyPrice float64
	Deposit      float64
	CheckinTime  time.Time
	CheckoutTime time.Time
	FinalACFee   float64
	Closed       bool
}

// RoomStateRecord is the room_states table: the single live snapshot of
// a room's thermal/HVAC/billing state, keyed by room id and upserted for
// every room after each tick, simulation advance and control command
// (check-in and check-out do not write it), grounded on the teacher's db.RoomInfo AC-state
// columns (CurrentSpeed, CurrentTemp, ACState, Mode, TargetTemp).
type RoomStateRecord struct {
	RoomID        string `gorm:"primaryKey;type:varchar(64)"`
	SnapshotTime  time.Time
	PowerOn       bool
	IsActive      bool
	FanSpeed      string
	CurrentTemp   float64
	TargetTemp    float64
	TotalFee      float64
	Duration      int
	DispatchCount int
}

// ACSessionRecord is the ac_sessions table: one closed, billed session
// bracketed between a power/speed transition and the next one. Grounded
// on the teacher's db.Detail (详单/service-detail) rows.
type ACSessionRecord struct {
	ID              uint `gorm:"primaryKey;autoIncrement"`
	RoomID          string `gorm:"index;type:varchar(64)"`
	RequestTime     time.Time
	StartTime       time.Time
	EndTime         time.Time
	DurationSeconds int
	FanSpeed        string
	Fee             float64
	TotalFeeAtClose float64
}
