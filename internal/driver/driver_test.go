package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/internal/room"
	"backend/internal/scheduler"
	"backend/internal/types"
)

type fakeRecorder struct {
	sessions []room.SessionRecord
}

func (f *fakeRecorder) RecordSession(rec room.SessionRecord) {
	f.sessions = append(f.sessions, rec)
}

func newTestDriver(n int) (*Driver, map[string]*room.Room) {
	sched := scheduler.New(2, 120)
	rooms := map[string]*room.Room{}
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := string(rune('A' + i))
		rooms[id] = room.New(id, 1, "standard", 100, 50, 26.0)
		ids = append(ids, id)
	}
	return New(sched, rooms, ids, &fakeRecorder{}), rooms
}

func TestRequestEntersServiceAndServes(t *testing.T) {
	d, rooms := newTestDriver(1)
	r := rooms["A"]
	r.SetPower(true)
	r.SetTarget(22.0)
	r.SetFanSpeed(types.SpeedHigh)

	d.Request("A", types.SpeedHigh)
	require.True(t, r.IsActive)

	d.Advance(5)
	assert.Less(t, r.CurrentTemp, 26.0)
	assert.Greater(t, r.TotalFee, 0.0)
}

func TestReleaseClosesSessionAndRecords(t *testing.T) {
	sched := scheduler.New(2, 120)
	r := room.New("A", 1, "standard", 100, 50, 26.0)
	r.SetPower(true)
	r.SetTarget(22.0)
	rec := &fakeRecorder{}
	d := New(sched, map[string]*room.Room{"A": r}, []string{"A"}, rec)

	d.Request("A", types.SpeedHigh)
	d.Advance(3)
	d.Release("A")

	assert.False(t, r.IsActive)
	require.Len(t, rec.sessions, 1)
	assert.Equal(t, "A", rec.sessions[0].RoomID)
}

func TestAutoReactivatesAfterDrift(t *testing.T) {
	d, rooms := newTestDriver(1)
	r := rooms["A"]
	r.SetPower(true)
	r.SetTarget(22.0)
	r.SetFanSpeed(types.SpeedHigh)

	d.Request("A", types.SpeedHigh)
	for !r.AtTarget() {
		d.Advance(1)
	}
	require.True(t, r.IsActive)

	d.Release("A")
	require.False(t, r.IsActive)

	r.CurrentTemp = r.TargetTemp + types.AutoReactivateDelta + 0.5
	d.Advance(1)

	assert.True(t, r.IsActive, "room should auto-reactivate once drift exceeds the threshold")
}

func TestUpdateSpeedPreservesStartTime(t *testing.T) {
	sched := scheduler.New(1, 120)
	r := room.New("A", 1, "standard", 100, 50, 26.0)
	r.SetPower(true)
	r.SetTarget(22.0)
	rec := &fakeRecorder{}
	d := New(sched, map[string]*room.Room{"A": r}, []string{"A"}, rec)

	d.Request("A", types.SpeedLow)
	d.Advance(5)
	before := sched.ServiceSnapshot()["A"].StartTime

	d.UpdateSpeed("A", types.SpeedHigh)

	after := sched.ServiceSnapshot()["A"]
	assert.Equal(t, before, after.StartTime, "an in-place speed update must not reset the scheduler entry's start time")
	assert.Equal(t, types.SpeedHigh, after.FanSpeed)
	assert.True(t, r.IsActive)
	require.Len(t, rec.sessions, 1, "the old session segment must be closed when the speed changes")
}

func TestTickReconcilesServiceCapacity(t *testing.T) {
	d, rooms := newTestDriver(3)
	for _, id := range []string{"A", "B", "C"} {
		r := rooms[id]
		r.SetPower(true)
		r.SetTarget(18.0)
		r.SetFanSpeed(types.SpeedLow)
		d.Request(id, types.SpeedLow)
	}
	d.Advance(1)

	active := 0
	for _, r := range rooms {
		if r.IsActive {
			active++
		}
	}
	assert.Equal(t, 2, active, "only the scheduler's capacity should be marked active")
}
