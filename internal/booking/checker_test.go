package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

func TestCheckerIsAvailable(t *testing.T) {
	index := NewIntervalStore()
	checker := NewChecker(index, newMemRooms(1))

	free, err := checker.IsAvailable(context.Background(), 1, iv(base, 0, time.Hour))
	require.NoError(t, err)
	assert.True(t, free)

	require.NoError(t, index.Reserve(1, iv(base, 0, time.Hour), 10))

	free, err = checker.IsAvailable(context.Background(), 1, iv(base, 30*time.Minute, 90*time.Minute))
	require.NoError(t, err)
	assert.False(t, free)

	// Back-to-back with the reserved slot stays free.
	free, err = checker.IsAvailable(context.Background(), 1, iv(base, time.Hour, 2*time.Hour))
	require.NoError(t, err)
	assert.True(t, free)
}

func TestCheckerUnknownRoom(t *testing.T) {
	checker := NewChecker(NewIntervalStore(), newMemRooms(1))

	_, err := checker.IsAvailable(context.Background(), 2, iv(base, 0, time.Hour))
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestCheckerInvalidInterval(t *testing.T) {
	checker := NewChecker(NewIntervalStore(), newMemRooms(1))

	_, err := checker.IsAvailable(context.Background(), 1, model.TimeInterval{Start: base, End: base})
	assert.ErrorIs(t, err, model.ErrInvalidInterval)
}
