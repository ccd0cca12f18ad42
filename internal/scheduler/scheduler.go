// Package scheduler implements a preemptive, priority-based scheduler
// with time-slice fairness over a fixed-capacity service set. It is a
// pure data structure over room ids: no database, no event bus, no
// back-pointer to Room or the driver that owns it. The only callers are
// the tick driver (internal/driver) and the control façade
// (internal/core), both of which already hold the single core lock.
//
// Grounded on the teacher's internal/scheduler/{queue,scheduler,
// strategy,types}.go: the container/heap priority queue for waiters and
// the priority-then-duration eviction strategy are carried over, stripped
// of the teacher's self-triggering event bus subscriptions and its GORM
// repository calls — the design note this repo follows is that Room
// State and Scheduler stay pure data, and only the driver mutates both in
// the same step.
package scheduler

import (
	"container/heap"
	"fmt"

	"backend/internal/types"
)

// Scheduler owns the service set (capacity N) and wait set. All methods
// are synchronous and not goroutine-safe by design: the caller provides
// the mutual exclusion.
type Scheduler struct {
	capacity   int
	waitBudget int

	service map[string]*ServiceEntry
	wait    *waitHeap
	waitIdx map[string]*waitHeapItem

	seq int64 // monotonic counter used to break admission ties deterministically
}

// New creates a scheduler with the given service capacity and default
// wait budget (the reference deployment uses N=3, W=120).
func New(capacity, waitBudget int) *Scheduler {
	h := &waitHeap{}
	heap.Init(h)
	return &Scheduler{
		capacity:   capacity,
		waitBudget: waitBudget,
		service:    make(map[string]*ServiceEntry),
		wait:       h,
		waitIdx:    make(map[string]*waitHeapItem),
	}
}

// Request is the authoritative admission entrypoint. Returns whether the
// room was newly admitted to the wait set by this call (used by the
// caller to bump a dispatch counter), and whether the room ended up in
// service as opposed to waiting.
func (s *Scheduler) Request(now int64, roomID string, speed types.Speed) (dispatchedToWait, inService bool) {
	if e, ok := s.service[roomID]; ok {
		e.FanSpeed = speed
		s.rebalance(now)
		return false, true
	}
	if item, ok := s.waitIdx[roomID]; ok {
		item.entry.FanSpeed = speed
		heap.Fix(s.wait, item.index)
		s.rebalance(now)
		return false, false
	}

	if len(s.service) < s.capacity {
		s.service[roomID] = &ServiceEntry{RoomID: roomID, FanSpeed: speed, StartTime: now}
		return false, true
	}

	s.admitToWait(now, roomID, speed)
	s.rebalance(now)
	_, inService = s.service[roomID]
	return true, inService
}

// Release removes a room from whichever set contains it, if any. Unknown
// ids are a no-op.
func (s *Scheduler) Release(now int64, roomID string) {
	delete(s.service, roomID)
	if item, ok := s.waitIdx[roomID]; ok {
		heap.Remove(s.wait, item.index)
		delete(s.waitIdx, roomID)
	}
	s.rebalance(now)
}

// Tick ages every wait entry's budget by one second and applies the
// time-slice rotation: a waiter whose budget expires compares its
// priority against the service entry that has been running longest
// (smallest StartTime, irrespective of its priority) and preempts it if
// its priority is at least as high; otherwise the waiter's budget is
// refreshed and it keeps waiting. This is a different victim rule than
// rebalance's: rotation always targets the oldest service entry, while
// rebalance's preemption targets the weakest one.
func (s *Scheduler) Tick(now int64) {
	for _, item := range *s.wait {
		item.entry.WaitBudget--
	}

	var expired []*waitHeapItem
	for _, item := range *s.wait {
		if item.entry.WaitBudget <= 0 {
			expired = append(expired, item)
		}
	}

	for _, item := range expired {
		waiter := item.entry
		victim := s.earliestServiceEntry()
		if victim == nil {
			waiter.WaitBudget = s.waitBudget
			continue
		}
		if types.Priority[victim.FanSpeed] <= types.Priority[waiter.FanSpeed] {
			s.preempt(now, victim.RoomID, waiter)
		} else {
			waiter.WaitBudget = s.waitBudget
		}
	}

	s.rebalance(now)
}

// preempt evicts victim to the wait set with a fresh budget and promotes
// waiter into the slot it vacates with a fresh start time.
func (s *Scheduler) preempt(now int64, victimRoomID string, waiter *WaitEntry) {
	victim := s.service[victimRoomID]
	delete(s.service, victimRoomID)

	if item, ok := s.waitIdx[waiter.RoomID]; ok {
		heap.Remove(s.wait, item.index)
		delete(s.waitIdx, waiter.RoomID)
	}
	s.service[waiter.RoomID] = &ServiceEntry{RoomID: waiter.RoomID, FanSpeed: waiter.FanSpeed, StartTime: now}

	if victim != nil {
		s.admitToWait(now, victim.RoomID, victim.FanSpeed)
	}
}

// rebalance fills empty service slots from the wait queue and, failing
// that, preempts a lower-priority service entry for a higher-priority
// waiter. Called after every mutation so the two sets never sit
// inconsistent between calls.
func (s *Scheduler) rebalance(now int64) {
	for len(s.service) < s.capacity && s.wait.Len() > 0 {
		item := heap.Pop(s.wait).(*waitHeapItem)
		delete(s.waitIdx, item.entry.RoomID)
		s.service[item.entry.RoomID] = &ServiceEntry{
			RoomID:    item.entry.RoomID,
			FanSpeed:  item.entry.FanSpeed,
			StartTime: now,
		}
	}

	for len(s.service) >= s.capacity && s.wait.Len() > 0 {
		waiter := s.wait.peekHighest()
		victim := s.lowestServiceEntry()
		if victim == nil || types.Priority[waiter.FanSpeed] <= types.Priority[victim.FanSpeed] {
			break
		}
		item := s.waitIdx[waiter.RoomID]
		heap.Remove(s.wait, item.index)
		delete(s.waitIdx, waiter.RoomID)
		delete(s.service, victim.RoomID)
		s.service[waiter.RoomID] = &ServiceEntry{RoomID: waiter.RoomID, FanSpeed: waiter.FanSpeed, StartTime: now}
		s.admitToWait(now, victim.RoomID, victim.FanSpeed)
	}
}

func (s *Scheduler) admitToWait(now int64, roomID string, speed types.Speed) {
	entry := &WaitEntry{RoomID: roomID, FanSpeed: speed, WaitBudget: s.waitBudget, EnteredTick: now}
	item := &waitHeapItem{entry: entry, seq: s.seq}
	s.seq++
	heap.Push(s.wait, item)
	s.waitIdx[roomID] = item
}

// lowestServiceEntry returns the service-set member with lowest priority,
// tie-broken by smallest StartTime (the longest-serving entry loses the
// tie). nil if the service set is empty. Used by rebalance's preemption
// rule only — Tick's rotation rule uses earliestServiceEntry instead.
func (s *Scheduler) lowestServiceEntry() *ServiceEntry {
	var victim *ServiceEntry
	for _, e := range s.service {
		if victim == nil ||
			types.Priority[e.FanSpeed] < types.Priority[victim.FanSpeed] ||
			(types.Priority[e.FanSpeed] == types.Priority[victim.FanSpeed] && e.StartTime < victim.StartTime) {
			victim = e
		}
	}
	return victim
}

// earliestServiceEntry returns the service-set member with the smallest
// StartTime, the longest-serving entry, regardless of its priority. nil
// if the service set is empty. Used by Tick's time-slice rotation only.
func (s *Scheduler) earliestServiceEntry() *ServiceEntry {
	var victim *ServiceEntry
	for _, e := range s.service {
		if victim == nil || e.StartTime < victim.StartTime {
			victim = e
		}
	}
	return victim
}

// IsInService reports service-set membership.
func (s *Scheduler) IsInService(roomID string) bool {
	_, ok := s.service[roomID]
	return ok
}

// IsWaiting reports wait-set membership.
func (s *Scheduler) IsWaiting(roomID string) bool {
	_, ok := s.waitIdx[roomID]
	return ok
}

// ServiceCount returns the current size of the service set.
func (s *Scheduler) ServiceCount() int {
	return len(s.service)
}

// WaitCount returns the current size of the wait set.
func (s *Scheduler) WaitCount() int {
	return s.wait.Len()
}

// ServiceSnapshot returns a defensive copy of the service set.
func (s *Scheduler) ServiceSnapshot() map[string]ServiceEntry {
	out := make(map[string]ServiceEntry, len(s.service))
	for k, v := range s.service {
		out[k] = *v
	}
	return out
}

// WaitSnapshot returns a defensive copy of the wait set.
func (s *Scheduler) WaitSnapshot() []WaitEntry {
	out := make([]WaitEntry, 0, s.wait.Len())
	for _, item := range *s.wait {
		out = append(out, *item.entry)
	}
	return out
}

// ValidateInvariants checks the scheduler's structural invariants and
// returns a descriptive error for the first violation found: service set
// never exceeds capacity, the wait set is never non-empty while a
// service slot sits free, and no room appears in both sets at once.
// Called by the scheduler tests.
func (s *Scheduler) ValidateInvariants() error {
	if len(s.service) > s.capacity {
		return fmt.Errorf("service set size %d exceeds capacity %d", len(s.service), s.capacity)
	}
	if s.wait.Len() > 0 && len(s.service) != s.capacity {
		return fmt.Errorf("wait set non-empty but service set at %d/%d", len(s.service), s.capacity)
	}
	for roomID := range s.service {
		if _, waiting := s.waitIdx[roomID]; waiting {
			return fmt.Errorf("room %s present in both service and wait sets", roomID)
		}
	}
	return nil
}
