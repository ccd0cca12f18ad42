package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/internal/room"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCheckInThenCheckOut(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.RecordCheckIn(CheckInRecord{
		RoomID:       "101",
		TenantName:   "Jordan",
		StayDays:     2,
		NightlyPrice: 100,
		Deposit:      50,
		CheckinTime:  time.Now(),
	}))

	open, err := s.OpenCheckIns()
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "101", open[0].RoomID)

	require.NoError(t, s.RecordCheckOut("101", time.Now(), 12.5))

	open, err = s.OpenCheckIns()
	require.NoError(t, err)
	assert.Len(t, open, 0)
}

func TestRecordSessionAndRoomState(t *testing.T) {
	s := newTestStore(t)

	rec := room.SessionRecord{
		RoomID:          "202",
		RequestTime:     time.Now(),
		StartTime:       time.Now(),
		EndTime:         time.Now(),
		Duration:        120,
		FanSpeed:        "high",
		Fee:             2.0,
		TotalFeeAtClose: 2.0,
	}
	s.RecordSession(rec)

	require.NoError(t, s.SaveRoomState(RoomStateRecord{
		RoomID:       "202",
		SnapshotTime: time.Now(),
		CurrentTemp:  24.5,
		TargetTemp:   22.0,
	}))

	latest, err := s.LatestRoomState("202")
	require.NoError(t, err)
	assert.Equal(t, "202", latest.RoomID)
}

func TestLatestRoomStateMissingReturnsZeroValue(t *testing.T) {
	s := newTestStore(t)

	latest, err := s.LatestRoomState("nonexistent")
	require.NoError(t, err)
	assert.Equal(t, RoomStateRecord{}, latest)
}
