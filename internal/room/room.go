// Package room implements the per-room thermal and billing state machine.
// A Room is pure data plus a deterministic Tick: no I/O, no locking, no
// back-pointer to the scheduler or the driver that owns it. It is
// grounded on the fields carried by the teacher's db.RoomInfo
// (internal/db/model.go) and ac.ACState (internal/ac/ac.go), merged into
// a single aggregate and stripped of GORM tags — persistence mapping
// lives in internal/storage, not here.
package room

import (
	"time"

	"backend/internal/types"
)

// SpeedStat is the accumulated seconds and fee a room has spent being
// served at one fan speed.
type SpeedStat struct {
	Seconds int
	Fee     float64
}

// SessionRecord brackets one contiguous AC session — an ac_sessions row
// minus the persistence-only fields (id, snapshot) that internal/storage
// adds when it writes the row.
type SessionRecord struct {
	RoomID          string
	RequestTime     time.Time
	StartTime       time.Time
	EndTime         time.Time
	Duration        int
	FanSpeed        types.Speed
	Fee             float64
	TotalFeeAtClose float64
}

// Room is the atomic per-room entity: static identity, thermal state,
// HVAC control state, billing accumulators and tenancy.
type Room struct {
	ID           string
	Floor        int
	RoomType     string
	NightlyPrice float64
	Deposit      float64

	InitialTemp float64
	CurrentTemp float64
	TargetTemp  float64

	PowerOn  bool
	IsActive bool
	FanSpeed types.Speed

	TotalFee      float64
	Duration      int
	SpeedStats    map[types.Speed]SpeedStat
	DispatchCount int

	TenantID    string
	TenantName  string
	TenantPhone string
	StayDays    int
	IsFree      bool

	sessionOpen      bool
	sessionStart     time.Time
	sessionRequest   time.Time
	sessionFeeAtOpen float64
}

// New constructs a vacant room at its ambient temperature.
func New(id string, floor int, roomType string, nightlyPrice, deposit, initialTemp float64) *Room {
	return &Room{
		ID:           id,
		Floor:        floor,
		RoomType:     roomType,
		NightlyPrice: nightlyPrice,
		Deposit:      deposit,
		InitialTemp:  initialTemp,
		CurrentTemp:  initialTemp,
		TargetTemp:   initialTemp,
		FanSpeed:     types.SpeedMedium,
		SpeedStats:   make(map[types.Speed]SpeedStat),
		IsFree:       true,
	}
}

// Tick integrates one simulated second. It never issues scheduler calls
// or I/O — the tick driver reads CurrentTemp/TargetTemp afterward to
// decide whether to release or re-request the room.
func (r *Room) Tick() {
	switch {
	case !r.PowerOn:
		r.drift()
	case r.IsActive:
		r.serve()
	default:
		r.drift()
	}
}

func (r *Room) drift() {
	diff := r.InitialTemp - r.CurrentTemp
	if diff > 0 {
		r.CurrentTemp += min(types.ReturnRate, diff)
	} else if diff < 0 {
		r.CurrentTemp += max(-types.ReturnRate, diff)
	}
}

func (r *Room) serve() {
	rate := types.TempRate[r.FanSpeed]
	diff := r.TargetTemp - r.CurrentTemp
	if diff > 0 {
		r.CurrentTemp += min(rate, diff)
	} else if diff < 0 {
		r.CurrentTemp += max(-rate, diff)
	}

	fee := types.FeeRate[r.FanSpeed]
	r.TotalFee += fee
	r.Duration++
	stat := r.SpeedStats[r.FanSpeed]
	stat.Seconds++
	stat.Fee += fee
	r.SpeedStats[r.FanSpeed] = stat
}

// AtTarget reports whether the room has reached its target temperature.
// The boundary is strictly "<", never "<=".
func (r *Room) AtTarget() bool {
	return absf(r.CurrentTemp-r.TargetTemp) < types.TargetEpsilon
}

// DriftedPastThreshold reports whether an idle room has drifted more than
// AutoReactivateDelta degrees away from its target, the trigger for
// auto-reactivation.
func (r *Room) DriftedPastThreshold() bool {
	return absf(r.CurrentTemp-r.TargetTemp) > types.AutoReactivateDelta
}

// SetActive is called only by the tick driver. Nothing else in this
// module tree calls it.
func (r *Room) SetActive(active bool) {
	r.IsActive = active
}

// SetPower flips the power bit. The caller (the façade) is responsible
// for bracketing AC sessions and issuing scheduler requests/releases
// around the edge; SetPower itself only mutates the power bit, clearing
// IsActive when switching off.
func (r *Room) SetPower(on bool) {
	r.PowerOn = on
	if !on {
		r.IsActive = false
	}
}

// SetTarget sets the desired temperature.
func (r *Room) SetTarget(target float64) {
	r.TargetTemp = target
}

// SetFanSpeed sets the fan speed used by future Tick calls while serving.
func (r *Room) SetFanSpeed(speed types.Speed) {
	r.FanSpeed = speed
}

// OpenSession brackets the start of a new AC session at the room's
// current fan speed.
func (r *Room) OpenSession(now time.Time) {
	r.sessionOpen = true
	r.sessionStart = now
	r.sessionRequest = now
	r.sessionFeeAtOpen = r.TotalFee
}

// CloseSession closes the currently open session, if any, and returns the
// session record for the persistence port to append to the AC session
// log. ok is false if no session was open.
func (r *Room) CloseSession(now time.Time) (rec SessionRecord, ok bool) {
	if !r.sessionOpen {
		return SessionRecord{}, false
	}
	r.sessionOpen = false
	fee := r.TotalFee - r.sessionFeeAtOpen
	duration := int(now.Sub(r.sessionStart).Seconds())
	rec = SessionRecord{
		RoomID:          r.ID,
		RequestTime:     r.sessionRequest,
		StartTime:       r.sessionStart,
		EndTime:         now,
		Duration:        duration,
		FanSpeed:        r.FanSpeed,
		Fee:             fee,
		TotalFeeAtClose: r.TotalFee,
	}
	return rec, true
}

// SessionOpen reports whether a billing session is currently open.
func (r *Room) SessionOpen() bool {
	return r.sessionOpen
}

// IncrementStayDays bumps the billed day count by one, applied by the
// façade on a manual power-off edge.
func (r *Room) IncrementStayDays() {
	r.StayDays++
}

// NightlyTotal returns the accrued room-rate portion of the bill:
// stay_days * nightly_price.
func (r *Room) NightlyTotal() float64 {
	return float64(r.StayDays) * r.NightlyPrice
}

// CheckIn occupies a vacant room with a tenant.
func (r *Room) CheckIn(tenantID, tenantName, tenantPhone string, stayDays int) {
	r.IsFree = false
	r.TenantID = tenantID
	r.TenantName = tenantName
	r.TenantPhone = tenantPhone
	r.StayDays = stayDays
}

// CheckOut force-closes AC service and vacates the room.
func (r *Room) CheckOut() {
	r.PowerOn = false
	r.IsActive = false
	r.IsFree = true
	r.TenantID = ""
	r.TenantName = ""
	r.TenantPhone = ""
	r.StayDays = 0
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
