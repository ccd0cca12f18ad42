package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/internal/room"
	"backend/internal/storage"
	"backend/internal/types"
)

// fakeStore is an in-memory stand-in for storage.Port, so Core's tests
// don't need a SQLite file on disk.
type fakeStore struct {
	checkIns []storage.CheckInRecord
	sessions []room.SessionRecord
	states   []storage.RoomStateRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{}
}

func (f *fakeStore) RecordCheckIn(rec storage.CheckInRecord) error {
	f.checkIns = append(f.checkIns, rec)
	return nil
}

func (f *fakeStore) RecordCheckOut(roomID string, checkoutTime time.Time, finalACFee float64) error {
	return nil
}

func (f *fakeStore) SaveRoomState(rec storage.RoomStateRecord) error {
	f.states = append(f.states, rec)
	return nil
}

func (f *fakeStore) RecordSession(rec room.SessionRecord) {
	f.sessions = append(f.sessions, rec)
}

func (f *fakeStore) OpenCheckIns() ([]storage.CheckInRecord, error) {
	return f.checkIns, nil
}

func (f *fakeStore) LatestRoomState(roomID string) (storage.RoomStateRecord, error) {
	for i := len(f.states) - 1; i >= 0; i-- {
		if f.states[i].RoomID == roomID {
			return f.states[i], nil
		}
	}
	return storage.RoomStateRecord{}, nil
}

func (f *fakeStore) Close() error { return nil }

func newTestCore(t *testing.T) *Core {
	t.Helper()
	specs := []RoomSpec{
		{ID: "101", Floor: 1, RoomType: "standard", NightlyPrice: 100, Deposit: 50, InitialTemp: 30},
		{ID: "102", Floor: 1, RoomType: "standard", NightlyPrice: 100, Deposit: 50, InitialTemp: 30},
	}
	store := newFakeStore()
	return New(specs, 1, 120, store)
}

func TestCheckInRejectsOccupiedRoom(t *testing.T) {
	c := newTestCore(t)
	require.NoError(t, c.CheckIn("101", "t1", "Alice", "555-0100", 2))
	err := c.CheckIn("101", "t2", "Bob", "555-0101", 1)
	assert.ErrorIs(t, err, ErrRoomOccupied)
}

func TestControlRejectedWhileVacant(t *testing.T) {
	c := newTestCore(t)
	on := true
	err := c.Control(ControlCommand{RoomID: "101", PowerOn: &on})
	assert.ErrorIs(t, err, ErrRoomVacant)
}

func TestControlPowerOnDispatchesToService(t *testing.T) {
	c := newTestCore(t)
	require.NoError(t, c.CheckIn("101", "t1", "Alice", "555-0100", 1))

	on := true
	speed := types.SpeedHigh
	target := 22.0
	require.NoError(t, c.Control(ControlCommand{RoomID: "101", PowerOn: &on, FanSpeed: &speed, TargetTemp: &target}))

	r, ok := c.Room("101")
	require.True(t, ok)
	assert.True(t, r.PowerOn)
	assert.True(t, r.IsActive)
	assert.Equal(t, types.SpeedHigh, r.FanSpeed)
}

func TestPlantOffRejectsControlAndForceCloses(t *testing.T) {
	c := newTestCore(t)
	require.NoError(t, c.CheckIn("101", "t1", "Alice", "555-0100", 1))
	on := true
	require.NoError(t, c.Control(ControlCommand{RoomID: "101", PowerOn: &on}))

	c.PowerOffPlant()
	r, _ := c.Room("101")
	assert.False(t, r.PowerOn)

	err := c.Control(ControlCommand{RoomID: "101", PowerOn: &on})
	assert.ErrorIs(t, err, ErrPlantOff)
}

func TestCheckOutComputesBill(t *testing.T) {
	c := newTestCore(t)
	require.NoError(t, c.CheckIn("101", "t1", "Alice", "555-0100", 2))

	bill, err := c.CheckOut("101")
	require.NoError(t, err)
	assert.InDelta(t, 2*100-50, bill, 0.001)

	r, _ := c.Room("101")
	assert.True(t, r.IsFree)
}

func TestAdvanceSettlesTowardTarget(t *testing.T) {
	c := newTestCore(t)
	require.NoError(t, c.CheckIn("101", "t1", "Alice", "555-0100", 1))
	on := true
	speed := types.SpeedHigh
	target := 22.0
	require.NoError(t, c.Control(ControlCommand{RoomID: "101", PowerOn: &on, FanSpeed: &speed, TargetTemp: &target}))

	c.Stop()
	require.NoError(t, c.Advance(120))

	r, _ := c.Room("101")
	assert.Less(t, r.CurrentTemp, 30.0)
}

func TestAdvanceRejectedInRealtimeMode(t *testing.T) {
	c := newTestCore(t)
	assert.ErrorIs(t, c.Advance(1), ErrNotInSimulation)

	c.Stop()
	assert.NoError(t, c.Advance(1))

	c.Start()
	assert.ErrorIs(t, c.Advance(1), ErrNotInSimulation)
}

func TestTickNoopsInSimulationMode(t *testing.T) {
	c := newTestCore(t)
	require.NoError(t, c.CheckIn("101", "t1", "Alice", "555-0100", 1))
	on := true
	speed := types.SpeedHigh
	target := 10.0
	require.NoError(t, c.Control(ControlCommand{RoomID: "101", PowerOn: &on, FanSpeed: &speed, TargetTemp: &target}))

	c.Stop()
	before, _ := c.Room("101")
	c.Tick()
	c.Tick()
	after, _ := c.Room("101")
	assert.Equal(t, before.CurrentTemp, after.CurrentTemp, "Tick must not advance the clock while in simulation mode")
}
