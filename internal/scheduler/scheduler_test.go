package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/internal/types"
)

func TestDirectAssignment(t *testing.T) {
	s := New(3, 120)

	cases := []struct {
		roomID     string
		speed      types.Speed
		wantServed bool
	}{
		{"101", types.SpeedLow, true},
		{"102", types.SpeedHigh, true},
		{"103", types.SpeedMedium, true},
		{"104", types.SpeedLow, false},
	}

	for _, tt := range cases {
		_, inService := s.Request(0, tt.roomID, tt.speed)
		assert.Equal(t, tt.wantServed, inService, "room %s", tt.roomID)
		if tt.wantServed {
			assert.True(t, s.IsInService(tt.roomID))
		} else {
			assert.True(t, s.IsWaiting(tt.roomID))
		}
	}
	require.NoError(t, s.ValidateInvariants())
}

func TestPriorityPreemption(t *testing.T) {
	s := New(3, 120)

	for _, roomID := range []string{"201", "202", "203"} {
		_, inService := s.Request(0, roomID, types.SpeedLow)
		require.True(t, inService)
	}

	_, inService := s.Request(0, "204", types.SpeedHigh)
	assert.True(t, inService, "high priority request should preempt a low priority service")
	assert.Equal(t, 1, s.WaitCount())
	require.NoError(t, s.ValidateInvariants())
}

func TestTimeSliceRotation(t *testing.T) {
	s := New(3, 5)

	for i, roomID := range []string{"301", "302", "303"} {
		_, inService := s.Request(int64(i), roomID, types.SpeedMedium)
		require.True(t, inService)
	}

	_, inService := s.Request(3, "304", types.SpeedMedium)
	require.False(t, inService, "fourth same-priority request should wait")

	var now int64 = 3
	for i := 0; i < 6; i++ {
		now++
		s.Tick(now)
	}

	assert.Equal(t, 3, s.ServiceCount())
	assert.Equal(t, 1, s.WaitCount())
	assert.True(t, s.IsInService("304"), "waiter should have rotated into service")
	require.NoError(t, s.ValidateInvariants())
}

func TestTimeSliceRotationPicksOldestNotWeakest(t *testing.T) {
	s := New(3, 30)

	_, inService := s.Request(0, "A", types.SpeedHigh)
	require.True(t, inService)
	_, inService = s.Request(10, "B", types.SpeedLow)
	require.True(t, inService)
	_, inService = s.Request(20, "C", types.SpeedMedium)
	require.True(t, inService)

	_, inService = s.Request(20, "D", types.SpeedLow)
	require.False(t, inService, "service set is full, D should wait")

	var now int64 = 20
	for i := 0; i < 30; i++ {
		now++
		s.Tick(now)
	}

	assert.True(t, s.IsInService("A"), "A is oldest but highest priority, must not be evicted")
	assert.True(t, s.IsInService("B"), "B was never the oldest entry, must not be evicted by rotation")
	assert.True(t, s.IsWaiting("D"), "D's priority does not exceed the oldest entry's, so it keeps waiting")
	require.NoError(t, s.ValidateInvariants())
}

func TestWaitQueueManagement(t *testing.T) {
	s := New(3, 120)

	for i, roomID := range []string{"401", "402", "403"} {
		_, inService := s.Request(int64(i), roomID, types.SpeedMedium)
		require.True(t, inService)
	}

	for _, roomID := range []string{"404", "405", "406"} {
		_, inService := s.Request(3, roomID, types.SpeedMedium)
		assert.False(t, inService)
	}

	waiters := s.WaitSnapshot()
	assert.Len(t, waiters, 3)
	for _, w := range waiters {
		assert.Greater(t, w.WaitBudget, 0)
	}
}

func TestReleaseRefillsFromWait(t *testing.T) {
	s := New(1, 120)

	_, inService := s.Request(0, "501", types.SpeedMedium)
	require.True(t, inService)

	_, inService = s.Request(0, "502", types.SpeedMedium)
	require.False(t, inService)

	s.Release(1, "501")

	assert.True(t, s.IsInService("502"))
	assert.False(t, s.IsWaiting("502"))
	require.NoError(t, s.ValidateInvariants())
}

func TestDuplicateRequestUpdatesSpeedInPlace(t *testing.T) {
	s := New(3, 120)

	_, inService := s.Request(0, "601", types.SpeedLow)
	require.True(t, inService)

	dispatched, inService := s.Request(1, "601", types.SpeedHigh)
	assert.False(t, dispatched)
	assert.True(t, inService)
	assert.Equal(t, types.SpeedHigh, s.ServiceSnapshot()["601"].FanSpeed)
}
