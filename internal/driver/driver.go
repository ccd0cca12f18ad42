// Package driver implements the single logical tick loop that advances
// the whole plant by one simulated second at a time. It is the only
// thing in this module that calls both room.Room and scheduler.Scheduler
// mutators in the same step — Room State and Scheduler stay pure data;
// the driver is where their interaction lives, replacing the teacher's
// event-bus wiring (internal/events) where the scheduler and the AC
// service subscribed to each other's events and mutated each other
// indirectly. Grounded on the teacher's internal/service/monitor.go for
// the per-tick temperature/queue reconciliation it performs, restructured
// into a single ordered pass instead of independent event handlers.
//
// The driver itself holds no goroutine and no wall clock: cmd/hotelacd
// owns the real-time ticker and ticks through internal/core, so that
// every Tick is serialized against façade command handlers under Core's
// one coarse lock, matching the
// single-threaded cooperative model the whole core runs under.
package driver

import (
	"sort"
	"sync"
	"time"

	"backend/internal/room"
	"backend/internal/scheduler"
	"backend/internal/types"
)

// SessionRecorder receives a closed AC session the instant the driver
// brackets it shut, so the persistence port can append an ac_sessions row
// without the driver importing storage directly.
type SessionRecorder interface {
	RecordSession(rec room.SessionRecord)
}

// Driver owns the scheduler and the room set and advances both together,
// one logical second per Tick. It does not own the core lock: callers
// (internal/core) must serialize Tick/Advance against façade command
// handlers themselves.
type Driver struct {
	mu sync.Mutex

	sched *scheduler.Scheduler
	rooms map[string]*room.Room
	order []string // room ids in stable iteration order

	clock int64

	recorder SessionRecorder
}

// New constructs a driver over an existing scheduler and room set. ids
// should list every room id; New sorts them, and Tick always visits rooms
// in that sorted order so behavior is reproducible across runs.
func New(sched *scheduler.Scheduler, rooms map[string]*room.Room, ids []string, recorder SessionRecorder) *Driver {
	order := make([]string, len(ids))
	copy(order, ids)
	sort.Strings(order)
	return &Driver{
		sched:    sched,
		rooms:    rooms,
		order:    order,
		recorder: recorder,
	}
}

// Now returns the driver's logical clock, in seconds since the driver
// was created.
func (d *Driver) Now() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clock
}

// Tick advances the plant by exactly one logical second. Step order is
// fixed: the scheduler ages and rotates its wait set first, then each
// room is visited in id order for auto-reactivation, target-reached
// release, thermal/billing integration, and a final consistency repair
// that reconciles room.IsActive with scheduler membership.
func (d *Driver) Tick() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tickLocked()
}

func (d *Driver) tickLocked() {
	d.clock++
	now := d.clock

	d.sched.Tick(now)

	for _, id := range d.order {
		r, ok := d.rooms[id]
		if !ok {
			continue
		}

		if r.PowerOn && !r.IsActive && r.DriftedPastThreshold() {
			d.requestLocked(now, r)
		}

		if r.IsActive && r.AtTarget() {
			d.releaseLocked(now, r)
		}

		r.Tick()

		inService := d.sched.IsInService(id)
		if r.IsActive != inService {
			r.SetActive(inService)
		}
	}
}

func (d *Driver) requestLocked(now int64, r *room.Room) {
	dispatched, inService := d.sched.Request(now, r.ID, r.FanSpeed)
	if dispatched {
		r.DispatchCount++
	}
	if inService {
		r.SetActive(true)
		if !r.SessionOpen() {
			r.OpenSession(time.Unix(now, 0).UTC())
		}
	}
}

func (d *Driver) releaseLocked(now int64, r *room.Room) {
	d.sched.Release(now, r.ID)
	r.SetActive(false)
	if rec, ok := r.CloseSession(time.Unix(now, 0).UTC()); ok && d.recorder != nil {
		d.recorder.RecordSession(rec)
	}
}

// Request is the façade's entrypoint for bringing a room under service
// (or re-servicing it at a new speed), to be called outside of Tick —
// e.g. in response to a power-on. The room's fan speed is set to speed
// before the scheduler request; a speed change on a powered room that
// must also split its billing session goes through UpdateSpeed.
func (d *Driver) Request(roomID string, speed types.Speed) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rooms[roomID]
	if !ok {
		return
	}
	r.SetFanSpeed(speed)
	d.requestLocked(d.clock, r)
}

// UpdateSpeed changes a powered room's fan speed without releasing it
// first: scheduler.Request updates an in-service or waiting entry's
// FanSpeed in place, preserving its original StartTime/WaitBudget
// standing, instead of the room losing its place by a release-then-
// request round trip. If the room is actively being served, its current
// billing session is closed and a fresh one opened at the new speed.
func (d *Driver) UpdateSpeed(roomID string, speed types.Speed) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rooms[roomID]
	if !ok {
		return
	}
	now := d.clock
	wasActive := r.IsActive

	if wasActive {
		if rec, ok := r.CloseSession(time.Unix(now, 0).UTC()); ok && d.recorder != nil {
			d.recorder.RecordSession(rec)
		}
	}

	r.SetFanSpeed(speed)
	dispatched, inService := d.sched.Request(now, roomID, speed)
	if dispatched {
		r.DispatchCount++
	}
	r.SetActive(inService)
	if inService {
		r.OpenSession(time.Unix(now, 0).UTC())
	}
}

// Release is the façade's entrypoint for pulling a room out of service
// immediately (power-off, check-out), closing its session if one is
// open.
func (d *Driver) Release(roomID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rooms[roomID]
	if !ok {
		return
	}
	d.releaseLocked(d.clock, r)
}

// Advance steps the simulation forward by k logical seconds synchronously,
// for deterministic tests and for explicit simulation-mode control.
func (d *Driver) Advance(k int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := 0; i < k; i++ {
		d.tickLocked()
	}
}
