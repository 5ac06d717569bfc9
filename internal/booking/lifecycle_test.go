package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

// newTestManager wires a manager over in-memory fakes.  The clock
// starts a day before base so every test interval lies in the future.
func newTestManager(t *testing.T, opts Options) (*Manager, *memStore, *fakeClock) {
	t.Helper()
	store := newMemStore()
	clock := newFakeClock(base.Add(-24 * time.Hour))
	m := NewManager(store, NewIntervalStore(), newMemRooms(1, 2), clock, opts)
	return m, store, clock
}

func TestRequestBookingConfirms(t *testing.T) {
	m, store, _ := newTestManager(t, Options{})

	b, err := m.RequestBooking(context.Background(), 1, 7, iv(base, 0, time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, b.Status)
	assert.Equal(t, uint64(7), b.GuestID)
	assert.NotZero(t, b.ID)
	assert.Equal(t, model.StatusConfirmed, store.status(b.ID))
}

func TestRequestBookingRejectsConflict(t *testing.T) {
	m, store, _ := newTestManager(t, Options{})

	first, err := m.RequestBooking(context.Background(), 1, 7, iv(base, 0, 2*time.Hour))
	require.NoError(t, err)
	require.Equal(t, model.StatusConfirmed, first.Status)

	// Overlapping request: a normal outcome, recorded as REJECTED.
	second, err := m.RequestBooking(context.Background(), 1, 8, iv(base, time.Hour, 3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, second.Status)
	assert.Equal(t, model.StatusRejected, store.status(second.ID))

	// The winner keeps its slot.
	assert.Equal(t, model.StatusConfirmed, store.status(first.ID))
}

func TestRequestBookingBackToBack(t *testing.T) {
	m, _, _ := newTestManager(t, Options{})

	a, err := m.RequestBooking(context.Background(), 1, 7, iv(base, 0, time.Hour))
	require.NoError(t, err)
	b, err := m.RequestBooking(context.Background(), 1, 8, iv(base, time.Hour, 2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, a.Status)
	assert.Equal(t, model.StatusConfirmed, b.Status)
}

func TestRequestBookingValidation(t *testing.T) {
	m, _, clock := newTestManager(t, Options{})

	_, err := m.RequestBooking(context.Background(), 1, 7, iv(base, time.Hour, time.Hour))
	assert.ErrorIs(t, err, model.ErrInvalidInterval)

	// Start must lie strictly in the future.
	_, err = m.RequestBooking(context.Background(), 1, 7, iv(clock.Now(), -time.Hour, time.Hour))
	assert.ErrorIs(t, err, ErrPastStart)
	_, err = m.RequestBooking(context.Background(), 1, 7, iv(clock.Now(), 0, time.Hour))
	assert.ErrorIs(t, err, ErrPastStart)

	_, err = m.RequestBooking(context.Background(), 99, 7, iv(base, 0, time.Hour))
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestCancelBooking(t *testing.T) {
	m, store, _ := newTestManager(t, Options{})

	b, err := m.RequestBooking(context.Background(), 1, 7, iv(base, 0, time.Hour))
	require.NoError(t, err)

	require.NoError(t, m.CancelBooking(context.Background(), b.ID, 7, false))
	assert.Equal(t, model.StatusCancelled, store.status(b.ID))

	// The freed interval is immediately reservable by someone else.
	again, err := m.RequestBooking(context.Background(), 1, 8, iv(base, 0, time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, again.Status)
}

func TestCancelBookingOwnership(t *testing.T) {
	m, store, _ := newTestManager(t, Options{})

	b, err := m.RequestBooking(context.Background(), 1, 7, iv(base, 0, time.Hour))
	require.NoError(t, err)

	err = m.CancelBooking(context.Background(), b.ID, 8, false)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, model.StatusConfirmed, store.status(b.ID))

	// force bypasses ownership (admin override).
	require.NoError(t, m.CancelBooking(context.Background(), b.ID, 8, true))
	assert.Equal(t, model.StatusCancelled, store.status(b.ID))
}

func TestCancelBookingAfterStart(t *testing.T) {
	m, _, clock := newTestManager(t, Options{})

	b, err := m.RequestBooking(context.Background(), 1, 7, iv(base, 0, time.Hour))
	require.NoError(t, err)

	clock.Advance(24*time.Hour + 30*time.Minute) // into the stay

	err = m.CancelBooking(context.Background(), b.ID, 7, false)
	assert.ErrorIs(t, err, ErrCancelTooLate)
}

func TestCancelBookingLatePolicy(t *testing.T) {
	m, store, clock := newTestManager(t, Options{AllowLateCancellation: true})

	b, err := m.RequestBooking(context.Background(), 1, 7, iv(base, 0, time.Hour))
	require.NoError(t, err)

	clock.Advance(24*time.Hour + 30*time.Minute)

	require.NoError(t, m.CancelBooking(context.Background(), b.ID, 7, false))
	assert.Equal(t, model.StatusCancelled, store.status(b.ID))
}

func TestCancelBookingTerminalStates(t *testing.T) {
	m, _, _ := newTestManager(t, Options{})

	b, err := m.RequestBooking(context.Background(), 1, 7, iv(base, 0, time.Hour))
	require.NoError(t, err)
	require.NoError(t, m.CancelBooking(context.Background(), b.ID, 7, false))

	// Cancelling twice, or cancelling a rejected booking, is illegal.
	err = m.CancelBooking(context.Background(), b.ID, 7, false)
	assert.ErrorIs(t, err, ErrAlreadyTerminal)

	_, err = m.RequestBooking(context.Background(), 1, 7, iv(base, 0, time.Hour))
	require.NoError(t, err)
	rejected, err := m.RequestBooking(context.Background(), 1, 8, iv(base, 0, time.Hour))
	require.NoError(t, err)
	require.Equal(t, model.StatusRejected, rejected.Status)

	err = m.CancelBooking(context.Background(), rejected.ID, 8, false)
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
}

func TestCancelBookingNotFound(t *testing.T) {
	m, _, _ := newTestManager(t, Options{})

	err := m.CancelBooking(context.Background(), 42, 7, false)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestRescheduleBooking(t *testing.T) {
	m, store, _ := newTestManager(t, Options{})

	b, err := m.RequestBooking(context.Background(), 1, 7, iv(base, 0, time.Hour))
	require.NoError(t, err)

	moved, err := m.RescheduleBooking(context.Background(), b.ID, 7, false, iv(base, 2*time.Hour, 3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, iv(base, 2*time.Hour, 3*time.Hour), moved.Interval)
	assert.Equal(t, model.StatusConfirmed, store.status(b.ID))

	// The old window is free for another guest, the new one is held.
	other, err := m.RequestBooking(context.Background(), 1, 8, iv(base, 0, time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, other.Status)
	clash, err := m.RequestBooking(context.Background(), 1, 9, iv(base, 2*time.Hour, 3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, clash.Status)
}

func TestRescheduleBookingWithinOwnWindow(t *testing.T) {
	m, _, _ := newTestManager(t, Options{})

	b, err := m.RequestBooking(context.Background(), 1, 7, iv(base, 0, 2*time.Hour))
	require.NoError(t, err)

	// Overlapping only itself is not a conflict.
	moved, err := m.RescheduleBooking(context.Background(), b.ID, 7, false, iv(base, time.Hour, 3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, iv(base, time.Hour, 3*time.Hour), moved.Interval)
}

func TestRescheduleBookingConflictKeepsOldSlot(t *testing.T) {
	m, store, _ := newTestManager(t, Options{})

	b, err := m.RequestBooking(context.Background(), 1, 7, iv(base, 0, time.Hour))
	require.NoError(t, err)
	_, err = m.RequestBooking(context.Background(), 1, 8, iv(base, 2*time.Hour, 3*time.Hour))
	require.NoError(t, err)

	_, err = m.RescheduleBooking(context.Background(), b.ID, 7, false, iv(base, 150*time.Minute, 4*time.Hour))
	assert.ErrorIs(t, err, ErrConflict)

	// The booking still holds its original window and row state.
	got, gerr := store.Get(context.Background(), b.ID)
	require.NoError(t, gerr)
	assert.Equal(t, iv(base, 0, time.Hour), got.Interval)
	taken, err := m.RequestBooking(context.Background(), 1, 9, iv(base, 0, time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, taken.Status)
}

func TestRescheduleBookingAuthorization(t *testing.T) {
	m, _, clock := newTestManager(t, Options{})

	b, err := m.RequestBooking(context.Background(), 1, 7, iv(base, 0, time.Hour))
	require.NoError(t, err)

	_, err = m.RescheduleBooking(context.Background(), b.ID, 8, false, iv(base, 2*time.Hour, 3*time.Hour))
	assert.ErrorIs(t, err, ErrForbidden)

	// force bypasses ownership (admin override).
	_, err = m.RescheduleBooking(context.Background(), b.ID, 8, true, iv(base, 2*time.Hour, 3*time.Hour))
	require.NoError(t, err)

	// Validation still applies.
	_, err = m.RescheduleBooking(context.Background(), b.ID, 7, false, iv(clock.Now(), -time.Hour, time.Hour))
	assert.ErrorIs(t, err, ErrPastStart)
	_, err = m.RescheduleBooking(context.Background(), b.ID, 7, false, iv(base, time.Hour, time.Hour))
	assert.ErrorIs(t, err, model.ErrInvalidInterval)
}

func TestRescheduleBookingTerminalStates(t *testing.T) {
	m, _, _ := newTestManager(t, Options{})

	b, err := m.RequestBooking(context.Background(), 1, 7, iv(base, 0, time.Hour))
	require.NoError(t, err)
	require.NoError(t, m.CancelBooking(context.Background(), b.ID, 7, false))

	_, err = m.RescheduleBooking(context.Background(), b.ID, 7, false, iv(base, 2*time.Hour, 3*time.Hour))
	assert.ErrorIs(t, err, ErrAlreadyTerminal)

	_, err = m.RescheduleBooking(context.Background(), 42, 7, false, iv(base, 2*time.Hour, 3*time.Hour))
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestRescheduleBookingLosesRaceToCancel(t *testing.T) {
	m, store, _ := newTestManager(t, Options{})

	b, err := m.RequestBooking(context.Background(), 1, 7, iv(base, 0, time.Hour))
	require.NoError(t, err)

	// A cancel lands between the reschedule's read and its write.
	stale, err := store.Get(context.Background(), b.ID)
	require.NoError(t, err)
	require.NoError(t, store.Transition(context.Background(), stale, model.StatusCancelled))

	_, err = m.RescheduleBooking(context.Background(), b.ID, 7, false, iv(base, 2*time.Hour, 3*time.Hour))
	assert.ErrorIs(t, err, ErrAlreadyTerminal)

	// The terminal booking holds no interval anywhere.
	assert.Equal(t, 0, m.index.ActiveCount(1))
}

func TestCompleteExpired(t *testing.T) {
	m, store, _ := newTestManager(t, Options{})

	early, err := m.RequestBooking(context.Background(), 1, 7, iv(base, 0, time.Hour))
	require.NoError(t, err)
	late, err := m.RequestBooking(context.Background(), 1, 8, iv(base, 2*time.Hour, 3*time.Hour))
	require.NoError(t, err)

	// Sweep at the early booking's end: exactly that one completes.  An
	// interval ending at the sweep instant counts as expired (half-open).
	n, err := m.CompleteExpired(context.Background(), base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, model.StatusCompleted, store.status(early.ID))
	assert.Equal(t, model.StatusConfirmed, store.status(late.ID))

	// Idempotent: a second sweep at the same instant moves nothing.
	n, err = m.CompleteExpired(context.Background(), base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// The completed booking's slot is free for a future stay... which is
	// in the past now, so reserve directly against the index to check.
	require.NoError(t, m.index.Reserve(1, iv(base, 0, time.Hour), 999))
}

func TestCompleteExpiredSkipsConcurrentCancel(t *testing.T) {
	m, store, _ := newTestManager(t, Options{})

	b, err := m.RequestBooking(context.Background(), 1, 7, iv(base, 0, time.Hour))
	require.NoError(t, err)

	// Simulate the cancel path winning the version race after the sweep
	// loaded its snapshot: bump the row behind the sweep's back.
	stale, err := store.Get(context.Background(), b.ID)
	require.NoError(t, err)
	require.NoError(t, store.Transition(context.Background(), stale, model.StatusCancelled))

	n, err := m.CompleteExpired(context.Background(), base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, model.StatusCancelled, store.status(b.ID))
}

func TestWithRetryRecoversTransientFailures(t *testing.T) {
	m, store, _ := newTestManager(t, Options{RetryBackoff: time.Millisecond})

	// Two transient failures, then success: within the 3-attempt budget.
	store.failTransiently(2)
	b, err := m.RequestBooking(context.Background(), 1, 7, iv(base, 0, time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, b.Status)
}

func TestWithRetryGivesUp(t *testing.T) {
	m, store, _ := newTestManager(t, Options{RetryAttempts: 2, RetryBackoff: time.Millisecond})

	store.failTransiently(10)
	_, err := m.RequestBooking(context.Background(), 1, 7, iv(base, 0, time.Hour))
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestRequestBookingConcurrentSameSlot(t *testing.T) {
	m, store, _ := newTestManager(t, Options{})
	window := iv(base, 0, time.Hour)

	const n = 16
	var wg sync.WaitGroup
	results := make([]*model.Booking, n)
	errs := make([]error, n)
	for g := 0; g < n; g++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = m.RequestBooking(context.Background(), 1, uint64(i+1), window)
		}(g)
	}
	wg.Wait()

	confirmed := 0
	for i, b := range results {
		require.NoError(t, errs[i])
		switch b.Status {
		case model.StatusConfirmed:
			confirmed++
		case model.StatusRejected:
		default:
			t.Fatalf("unexpected status %s", b.Status)
		}
		assert.Equal(t, b.Status, store.status(b.ID))
	}
	assert.Equal(t, 1, confirmed)
}

func TestWarmIndex(t *testing.T) {
	m, _, _ := newTestManager(t, Options{})

	active := []*model.Booking{
		{ID: 1, RoomID: 1, Status: model.StatusConfirmed, Interval: iv(base, 0, time.Hour)},
		{ID: 2, RoomID: 1, Status: model.StatusPending, Interval: iv(base, time.Hour, 2*time.Hour)},
		{ID: 3, RoomID: 1, Status: model.StatusCancelled, Interval: iv(base, 0, time.Hour)}, // ignored
	}
	require.NoError(t, m.WarmIndex(active))

	assert.Equal(t, 2, m.index.ActiveCount(1))
	assert.ErrorIs(t, m.index.Reserve(1, iv(base, 30*time.Minute, 90*time.Minute), 9), ErrConflict)
}
