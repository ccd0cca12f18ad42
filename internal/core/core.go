// Package core implements the Control Façade: the single entrypoint
// every caller (the HTTP surface, a CLI, a test) goes through to mutate
// the plant. Core owns the room set, the scheduler, the tick driver and
// the persistence port behind one coarse lock, so command handlers and
// the tick loop never run concurrently — grounded on the teacher's
// internal/service singleton services (sync.Once-guarded StartCentralAC/
// StopCentralAC) collapsed into a single owning aggregate instead of
// package-level globals.
package core

import (
	"errors"
	"sort"
	"sync"
	"time"

	"backend/internal/driver"
	"backend/internal/logger"
	"backend/internal/room"
	"backend/internal/scheduler"
	"backend/internal/storage"
	"backend/internal/types"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomVacant      = errors.New("room is not occupied")
	ErrRoomOccupied    = errors.New("room is already occupied")
	ErrPlantOff        = errors.New("central AC plant is powered off")
	ErrInvalidSpeed    = errors.New("invalid fan speed")
	ErrNotInSimulation = errors.New("plant is in real-time mode, stop it before advancing the simulation")
)

// RoomSpec describes one room at startup, mirroring the teacher's
// InitRooms seed data (internal/db/init.go).
type RoomSpec struct {
	ID           string
	Floor        int
	RoomType     string
	NightlyPrice float64
	Deposit      float64
	InitialTemp  float64
}

// ControlCommand carries an optional power/target/speed change for one
// room. A nil field means "leave this dimension unchanged". Fields are
// applied power-edge first, then target, then speed, so bracketed
// sessions always reflect settled state for the remainder of the call.
type ControlCommand struct {
	RoomID     string
	PowerOn    *bool
	TargetTemp *float64
	FanSpeed   *types.Speed
}

// Core is the Control Façade aggregate. mu is the one coarse lock the
// whole plant runs under: every exported method takes it, so the tick
// loop and every command handler are mutually exclusive regardless of
// which goroutine (the HTTP server's per-request goroutines, the tick
// goroutine in cmd/hotelacd) calls in.
type Core struct {
	mu sync.Mutex

	rooms      map[string]*room.Room
	order      []string
	sched      *scheduler.Scheduler
	drv        *driver.Driver
	store      storage.Port
	plantOn    bool
	realtimeOn bool
}

// New constructs a Core with a fresh scheduler and room set, wired to
// store for persistence, and restores any tenancy/room state the store
// already holds from a previous run.
func New(specs []RoomSpec, serviceCapacity, waitBudget int, store storage.Port) *Core {
	rooms := make(map[string]*room.Room, len(specs))
	order := make([]string, 0, len(specs))
	for _, spec := range specs {
		rooms[spec.ID] = room.New(spec.ID, spec.Floor, spec.RoomType, spec.NightlyPrice, spec.Deposit, spec.InitialTemp)
		order = append(order, spec.ID)
	}
	sort.Strings(order)

	sched := scheduler.New(serviceCapacity, waitBudget)
	drv := driver.New(sched, rooms, order, store)

	c := &Core{
		rooms:      rooms,
		order:      order,
		sched:      sched,
		drv:        drv,
		store:      store,
		plantOn:    true,
		realtimeOn: true,
	}
	c.restore()
	return c
}

// restore rehydrates tenancy and live room state from the persistence
// port on startup: open check-ins restore occupancy, and each room's
// latest snapshot restores its thermal/HVAC/billing state. A room found
// powered on re-enters the scheduler at its restored fan speed.
func (c *Core) restore() {
	openCheckIns, err := c.store.OpenCheckIns()
	if err != nil {
		logger.Warn("restore open check-ins: %v", err)
	}
	for _, ci := range openCheckIns {
		r, ok := c.rooms[ci.RoomID]
		if !ok {
			continue
		}
		r.CheckIn(ci.TenantID, ci.TenantName, ci.TenantPhone, ci.StayDays)
	}

	for _, id := range c.order {
		r := c.rooms[id]
		state, err := c.store.LatestRoomState(id)
		if err != nil {
			logger.Warn("restore room state for room %s: %v", id, err)
			continue
		}
		if state.RoomID == "" {
			continue
		}

		r.SetTarget(state.TargetTemp)
		r.SetFanSpeed(types.Speed(state.FanSpeed))
		r.CurrentTemp = state.CurrentTemp
		r.TotalFee = state.TotalFee
		r.Duration = state.Duration
		r.DispatchCount = state.DispatchCount
		r.SetPower(state.PowerOn)

		if r.PowerOn {
			c.drv.Request(id, r.FanSpeed)
		}
	}
}

// Start resumes real-time ticking, the plant's default mode.
func (c *Core) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.realtimeOn = true
}

// Stop suspends real-time ticking and enters simulation mode, the only
// mode in which Advance is accepted.
func (c *Core) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.realtimeOn = false
}

// Tick advances the plant by one logical second and persists a state
// snapshot of every room. Intended to be called by exactly one
// caller (main's real-time ticker) — Core itself does not run a
// background goroutine, so the caller controls exactly when the tick
// loop and command handlers interleave. A no-op while the plant is in
// simulation mode (Stop has been called).
func (c *Core) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.realtimeOn {
		return
	}
	c.drv.Tick()
	c.snapshotAll()
}

// Advance steps the simulation forward by k logical seconds, for
// deterministic tests and explicit simulation-mode control. Rejected
// with ErrNotInSimulation while the plant is in real-time mode.
func (c *Core) Advance(k int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.realtimeOn {
		return ErrNotInSimulation
	}
	c.drv.Advance(k)
	c.snapshotAll()
	return nil
}

func (c *Core) snapshotAll() {
	now := time.Unix(c.drv.Now(), 0).UTC()
	for _, id := range c.order {
		r := c.rooms[id]
		if err := c.store.SaveRoomState(storage.RoomStateRecord{
			RoomID:        r.ID,
			SnapshotTime:  now,
			PowerOn:       r.PowerOn,
			IsActive:      r.IsActive,
			FanSpeed:      string(r.FanSpeed),
			CurrentTemp:   r.CurrentTemp,
			TargetTemp:    r.TargetTemp,
			TotalFee:      r.TotalFee,
			Duration:      r.Duration,
			DispatchCount: r.DispatchCount,
		}); err != nil {
			logger.Warn("snapshot room %s: %v", r.ID, err)
		}
	}
}

// CheckIn occupies a vacant room with a new tenant.
func (c *Core) CheckIn(roomID, tenantID, tenantName, tenantPhone string, stayDays int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	if !r.IsFree {
		return ErrRoomOccupied
	}
	r.CheckIn(tenantID, tenantName, tenantPhone, stayDays)

	if err := c.store.RecordCheckIn(storage.CheckInRecord{
		RoomID:       roomID,
		TenantID:     tenantID,
		TenantName:   tenantName,
		TenantPhone:  tenantPhone,
		StayDays:     stayDays,
		NightlyPrice: r.NightlyPrice,
		Deposit:      r.Deposit,
		CheckinTime:  time.Unix(c.drv.Now(), 0).UTC(),
	}); err != nil {
		logger.Warn("persist check-in for room %s: %v", roomID, err)
	}
	return nil
}

// CheckOut force-closes any open AC session, computes the final bill,
// vacates the room, and returns the bill total.
func (c *Core) CheckOut(roomID string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.rooms[roomID]
	if !ok {
		return 0, ErrRoomNotFound
	}
	if r.IsFree {
		return 0, ErrRoomVacant
	}

	if r.IsActive || r.PowerOn {
		c.drv.Release(roomID)
	}

	bill := r.NightlyTotal() + r.TotalFee - r.Deposit

	if err := c.store.RecordCheckOut(roomID, time.Unix(c.drv.Now(), 0).UTC(), r.TotalFee); err != nil {
		logger.Warn("persist check-out for room %s: %v", roomID, err)
	}

	r.CheckOut()
	return bill, nil
}

// RoomBill returns the current running bill for an occupied room without
// checking it out: stay_days*nightly_price + accrued_ac_fee - deposit.
func (c *Core) RoomBill(roomID string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.rooms[roomID]
	if !ok {
		return 0, ErrRoomNotFound
	}
	return r.NightlyTotal() + r.TotalFee - r.Deposit, nil
}

// Control applies a power/target/speed change to one occupied room.
func (c *Core) Control(cmd ControlCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.plantOn {
		return ErrPlantOff
	}
	r, ok := c.rooms[cmd.RoomID]
	if !ok {
		return ErrRoomNotFound
	}
	if r.IsFree {
		return ErrRoomVacant
	}
	if cmd.FanSpeed != nil && !types.ValidSpeed(*cmd.FanSpeed) {
		return ErrInvalidSpeed
	}

	if cmd.PowerOn != nil && *cmd.PowerOn != r.PowerOn {
		if *cmd.PowerOn {
			r.SetPower(true)
		} else {
			r.IncrementStayDays()
			c.drv.Release(cmd.RoomID)
			r.SetPower(false)
		}
	}

	if cmd.TargetTemp != nil {
		r.SetTarget(*cmd.TargetTemp)
	}

	speedChanged := cmd.FanSpeed != nil && *cmd.FanSpeed != r.FanSpeed
	if speedChanged {
		if r.PowerOn {
			// In-place update: scheduler.Request keeps the entry's
			// original StartTime/WaitBudget instead of a release-then-
			// request round trip losing its place in the queue.
			c.drv.UpdateSpeed(cmd.RoomID, *cmd.FanSpeed)
		} else {
			r.SetFanSpeed(*cmd.FanSpeed)
		}
	}

	if r.PowerOn && !r.IsActive && !speedChanged {
		c.drv.Request(cmd.RoomID, r.FanSpeed)
	}

	c.snapshotAll()
	return nil
}

// PowerOnPlant brings the central unit online, allowing per-room control
// commands to take effect again.
func (c *Core) PowerOnPlant() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plantOn = true
}

// PowerOffPlant takes the central unit offline: every room with an open
// AC session is force-closed exactly as check-out does, and further
// control commands are rejected until PowerOnPlant.
func (c *Core) PowerOffPlant() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plantOn = false
	for _, id := range c.order {
		r := c.rooms[id]
		if r.IsActive || r.PowerOn {
			c.drv.Release(id)
			r.SetPower(false)
		}
	}
}

// PlantOn reports whether the central unit is currently powered.
func (c *Core) PlantOn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plantOn
}

// RoomIDs returns every managed room id in stable order.
func (c *Core) RoomIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Room returns a defensive copy of a room's current state for read-only
// callers (the HTTP surface), or false if roomID is unknown.
func (c *Core) Room(roomID string) (room.Room, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.rooms[roomID]
	if !ok {
		return room.Room{}, false
	}
	cp := *r
	cp.SpeedStats = make(map[types.Speed]room.SpeedStat, len(r.SpeedStats))
	for k, v := range r.SpeedStats {
		cp.SpeedStats[k] = v
	}
	return cp, true
}

// ServiceSnapshot exposes the scheduler's current service set for
// monitoring/inspection.
func (c *Core) ServiceSnapshot() map[string]scheduler.ServiceEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sched.ServiceSnapshot()
}

// WaitSnapshot exposes the scheduler's current wait set for
// monitoring/inspection.
func (c *Core) WaitSnapshot() []scheduler.WaitEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sched.WaitSnapshot()
}
