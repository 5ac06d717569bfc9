package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeIntervalOverlaps(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2026, 3, 1, h, 0, 0, 0, time.UTC) }
	a := TimeInterval{Start: at(9), End: at(11)}

	assert.True(t, a.Overlaps(TimeInterval{Start: at(10), End: at(12)}))
	assert.True(t, a.Overlaps(TimeInterval{Start: at(8), End: at(10)}))
	assert.True(t, a.Overlaps(a))
	// Half-open: touching endpoints do not overlap.
	assert.False(t, a.Overlaps(TimeInterval{Start: at(11), End: at(12)}))
	assert.False(t, a.Overlaps(TimeInterval{Start: at(7), End: at(9)}))
	assert.False(t, a.Overlaps(TimeInterval{Start: at(12), End: at(13)}))
}

func TestNewTimeInterval(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, loc)

	iv, err := NewTimeInterval(start, start.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, iv.Start.Location())
	assert.Equal(t, time.Hour, iv.Duration())

	_, err = NewTimeInterval(start, start)
	assert.ErrorIs(t, err, ErrInvalidInterval)
	_, err = NewTimeInterval(start.Add(time.Hour), start)
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestBookingStatusTransitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusConfirmed))
	assert.True(t, StatusPending.CanTransitionTo(StatusRejected))
	assert.True(t, StatusConfirmed.CanTransitionTo(StatusCancelled))
	assert.True(t, StatusConfirmed.CanTransitionTo(StatusCompleted))

	assert.False(t, StatusPending.CanTransitionTo(StatusCancelled))
	assert.False(t, StatusRejected.CanTransitionTo(StatusConfirmed))
	assert.False(t, StatusCancelled.CanTransitionTo(StatusCompleted))
	assert.False(t, StatusCompleted.CanTransitionTo(StatusCancelled))

	for _, s := range []BookingStatus{StatusRejected, StatusCancelled, StatusCompleted} {
		assert.True(t, s.IsTerminal(), "%s", s)
		assert.False(t, s.IsActive(), "%s", s)
	}
	assert.True(t, StatusPending.IsActive())
	assert.True(t, StatusConfirmed.IsActive())
	assert.False(t, StatusPending.IsTerminal())
}
