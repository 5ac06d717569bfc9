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

// seedBooking stores a booking already driven to the given status and
// returns its ID.
func seedBooking(t *testing.T, store *memStore, guestID uint64, status model.BookingStatus) uint64 {
	t.Helper()
	b := &model.Booking{
		RoomID:   1,
		GuestID:  guestID,
		Interval: iv(base, 0, time.Hour),
		Status:   model.StatusPending,
	}
	require.NoError(t, store.Create(context.Background(), b))
	if status != model.StatusPending {
		next := model.StatusConfirmed
		require.NoError(t, store.Transition(context.Background(), b, next))
		if status != model.StatusConfirmed {
			require.NoError(t, store.Transition(context.Background(), b, status))
		}
	}
	return b.ID
}

func TestAttachReview(t *testing.T) {
	store := newMemStore()
	gate := NewGate(store, newMemReviews())
	id := seedBooking(t, store, 7, model.StatusCompleted)

	comment := "quiet and clean"
	rv, err := gate.AttachReview(context.Background(), id, 7, 5, &comment)
	require.NoError(t, err)
	assert.Equal(t, id, rv.BookingID)
	assert.Equal(t, uint64(7), rv.GuestID)
	assert.Equal(t, uint64(1), rv.RoomID)
	assert.Equal(t, uint8(5), rv.Rating)
	assert.NotZero(t, rv.ID)
}

func TestAttachReviewRatingBounds(t *testing.T) {
	store := newMemStore()
	gate := NewGate(store, newMemReviews())
	id := seedBooking(t, store, 7, model.StatusCompleted)

	_, err := gate.AttachReview(context.Background(), id, 7, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidRating)
	_, err = gate.AttachReview(context.Background(), id, 7, 6, nil)
	assert.ErrorIs(t, err, ErrInvalidRating)
}

func TestAttachReviewRequiresCompletion(t *testing.T) {
	store := newMemStore()
	gate := NewGate(store, newMemReviews())

	for _, status := range []model.BookingStatus{
		model.StatusPending,
		model.StatusConfirmed,
		model.StatusRejected,
		model.StatusCancelled,
	} {
		id := seedBooking(t, store, 7, status)
		_, err := gate.AttachReview(context.Background(), id, 7, 4, nil)
		assert.ErrorIs(t, err, ErrNotCompleted, "status %s", status)
	}
}

func TestAttachReviewOwnership(t *testing.T) {
	store := newMemStore()
	gate := NewGate(store, newMemReviews())
	id := seedBooking(t, store, 7, model.StatusCompleted)

	_, err := gate.AttachReview(context.Background(), id, 8, 4, nil)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAttachReviewUnknownBooking(t *testing.T) {
	gate := NewGate(newMemStore(), newMemReviews())

	_, err := gate.AttachReview(context.Background(), 42, 7, 4, nil)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestAttachReviewAtMostOnce(t *testing.T) {
	store := newMemStore()
	gate := NewGate(store, newMemReviews())
	id := seedBooking(t, store, 7, model.StatusCompleted)

	_, err := gate.AttachReview(context.Background(), id, 7, 4, nil)
	require.NoError(t, err)
	_, err = gate.AttachReview(context.Background(), id, 7, 5, nil)
	assert.ErrorIs(t, err, ErrAlreadyReviewed)
}

func TestEditReview(t *testing.T) {
	store := newMemStore()
	gate := NewGate(store, newMemReviews())
	id := seedBooking(t, store, 7, model.StatusCompleted)

	comment := "quiet and clean"
	rv, err := gate.AttachReview(context.Background(), id, 7, 5, &comment)
	require.NoError(t, err)

	revised := "projector flickers"
	got, err := gate.EditReview(context.Background(), rv.ID, 7, false, 3, &revised)
	require.NoError(t, err)
	assert.Equal(t, rv.ID, got.ID)
	assert.Equal(t, uint8(3), got.Rating)
	require.NotNil(t, got.Comment)
	assert.Equal(t, revised, *got.Comment)
}

func TestEditReviewRatingBounds(t *testing.T) {
	store := newMemStore()
	gate := NewGate(store, newMemReviews())
	id := seedBooking(t, store, 7, model.StatusCompleted)

	rv, err := gate.AttachReview(context.Background(), id, 7, 4, nil)
	require.NoError(t, err)

	_, err = gate.EditReview(context.Background(), rv.ID, 7, false, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidRating)
	_, err = gate.EditReview(context.Background(), rv.ID, 7, false, 6, nil)
	assert.ErrorIs(t, err, ErrInvalidRating)
}

func TestEditReviewOwnership(t *testing.T) {
	store := newMemStore()
	gate := NewGate(store, newMemReviews())
	id := seedBooking(t, store, 7, model.StatusCompleted)

	rv, err := gate.AttachReview(context.Background(), id, 7, 4, nil)
	require.NoError(t, err)

	_, err = gate.EditReview(context.Background(), rv.ID, 8, false, 2, nil)
	assert.ErrorIs(t, err, ErrForbidden)

	// force bypasses ownership for moderators.
	got, err := gate.EditReview(context.Background(), rv.ID, 8, true, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, uint8(2), got.Rating)
}

func TestEditReviewUnknown(t *testing.T) {
	gate := NewGate(newMemStore(), newMemReviews())

	_, err := gate.EditReview(context.Background(), 42, 7, false, 4, nil)
	assert.ErrorIs(t, err, ErrReviewNotFound)
}

func TestEditReviewDeletedIsFrozen(t *testing.T) {
	store := newMemStore()
	reviews := newMemReviews()
	gate := NewGate(store, reviews)
	id := seedBooking(t, store, 7, model.StatusCompleted)

	rv, err := gate.AttachReview(context.Background(), id, 7, 4, nil)
	require.NoError(t, err)

	reviews.setDeleted(rv.ID, true)
	_, err = gate.EditReview(context.Background(), rv.ID, 7, false, 5, nil)
	assert.ErrorIs(t, err, ErrReviewDeleted)

	// Restoring the review unfreezes it.
	reviews.setDeleted(rv.ID, false)
	got, err := gate.EditReview(context.Background(), rv.ID, 7, false, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, uint8(5), got.Rating)
}

func TestAttachReviewConcurrent(t *testing.T) {
	store := newMemStore()
	gate := NewGate(store, newMemReviews())
	id := seedBooking(t, store, 7, model.StatusCompleted)

	// Concurrent attachments race past the advisory pre-check; the
	// store's unique key lets exactly one through.
	const n = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for g := 0; g < n; g++ {
		wg.Add(1)
		go func(rating uint8) {
			defer wg.Done()
			if _, err := gate.AttachReview(context.Background(), id, 7, rating, nil); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ErrAlreadyReviewed)
			}
		}(uint8(g%5 + 1))
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}
