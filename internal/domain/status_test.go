package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func currentCount(l StatusLog) int {
	n := 0
	for _, e := range l.Entries() {
		if e.CurrentStatus {
			n++
		}
	}
	return n
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		ok   bool
	}{
		{StatusReceived, StatusAllocated, true},
		{StatusAllocated, StatusPicking, true},
		{StatusPicking, StatusPicked, true},
		{StatusPicked, StatusPacked, true},
		{StatusPacked, StatusReadyToShip, true},
		{StatusReadyToShip, StatusShipped, true},
		{StatusShipped, StatusDelivered, true},
		{StatusReceived, StatusShipped, false},
		{StatusPicked, StatusAllocated, false},
		{StatusAllocated, StatusCancelled, true},
		{StatusShipped, StatusOnHold, true},
		{StatusOnHold, StatusOnHold, false},
		{StatusOnHold, StatusCancelled, true},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusOnHold, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestStatusLog_ExactlyOneCurrent(t *testing.T) {
	log, err := NewStatusLog(StatusReceived, "alice", t0)
	require.NoError(t, err)

	path := []Status{StatusAllocated, StatusPicking, StatusPicked, StatusPacking, StatusPacked, StatusReadyToShip, StatusShipped}
	for i, s := range path {
		log, err = log.Transition(s, "alice", "", t0.Add(time.Duration(i+1)*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 1, currentCount(log))
		assert.Equal(t, s, log.Current().Status)
	}

	entries := log.Entries()
	assert.Len(t, entries, len(path)+1)
	assert.Equal(t, StatusPacked, entries[len(entries)-2].PreviousStatus)
}

func TestStatusLog_RejectedTransitionLeavesLogUntouched(t *testing.T) {
	log, err := NewStatusLog(StatusReceived, "alice", t0)
	require.NoError(t, err)

	next, err := log.Transition(StatusShipped, "alice", "", t0)

	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 1, next.Len())
	assert.Equal(t, StatusReceived, next.Current().Status)
}

func TestStatusLog_TransitionDoesNotMutateReceiver(t *testing.T) {
	log, err := NewStatusLog(StatusReceived, "alice", t0)
	require.NoError(t, err)

	next, err := log.Transition(StatusAllocated, "alice", "", t0)
	require.NoError(t, err)

	assert.True(t, log.Entries()[0].CurrentStatus)
	assert.False(t, next.Entries()[0].CurrentStatus)
}

func TestStatusLog_HoldAndResume(t *testing.T) {
	log, err := NewStatusLog(StatusReceived, "alice", t0)
	require.NoError(t, err)
	log, err = log.Transition(StatusAllocated, "alice", "", t0)
	require.NoError(t, err)

	log, err = log.Transition(StatusOnHold, "bob", "address check", t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, StatusAllocated, log.Current().PreviousStatus)

	log, err = log.Resume("bob", "cleared", t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, StatusAllocated, log.Current().Status)
	assert.Equal(t, 1, currentCount(log))

	_, err = log.Resume("bob", "", t0)
	assert.ErrorIs(t, err, ErrNotOnHold)
}

func TestStatusLog_BSONRoundTripKeepsHistory(t *testing.T) {
	log, err := NewStatusLog(StatusReadyToShip, "alice", t0)
	require.NoError(t, err)
	log, err = log.Transition(StatusShipped, "alice", "loaded", t0.Add(time.Minute))
	require.NoError(t, err)

	raw, err := bson.Marshal(struct {
		History StatusLog `bson:"history"`
	}{log})
	require.NoError(t, err)

	var decoded struct {
		History StatusLog `bson:"history"`
	}
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	require.NoError(t, decoded.History.Validate())
	assert.Equal(t, log.Entries(), decoded.History.Entries())
}

func TestStatusLog_JSONIsArray(t *testing.T) {
	log, err := NewStatusLog(StatusReceived, "alice", t0)
	require.NoError(t, err)

	raw, err := json.Marshal(log)
	require.NoError(t, err)
	assert.Equal(t, byte('['), raw[0])
}

func TestStatusLog_ValidateRejectsCorruptHistory(t *testing.T) {
	assert.ErrorIs(t, StatusLog{}.Validate(), ErrStatusLogCorrupted)

	corrupt := StatusLog{entries: []StatusEntry{
		{Status: StatusReceived, CurrentStatus: true},
		{Status: StatusAllocated, CurrentStatus: true},
	}}
	assert.ErrorIs(t, corrupt.Validate(), ErrStatusLogCorrupted)

	_, err := corrupt.Transition(StatusPicking, "alice", "", t0)
	assert.ErrorIs(t, err, ErrStatusLogCorrupted)
}
