package booking

import (
	"context"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

// ReviewStore is the persistence port of the review gate.  CreateReview
// must enforce the one-review-per-booking invariant at the storage
// level (unique key on booking_id) and return ErrAlreadyReviewed when
// it is violated, so that two concurrent attachments cannot both win.
// GetReview must return ErrReviewNotFound on a missing row, and
// UpdateReview must refuse to touch soft-deleted rows with
// ErrReviewDeleted so an edit cannot race a moderation removal.
type ReviewStore interface {
	CreateReview(ctx context.Context, rv *model.Review) error
	HasReviewForBooking(ctx context.Context, bookingID uint64) (bool, error)
	GetReview(ctx context.Context, id uint64) (*model.Review, error)
	UpdateReview(ctx context.Context, rv *model.Review) error
}

// Gate authorizes review creation: a review may attach to a booking
// only once that booking is COMPLETED, only by the guest who stayed,
// and at most once per booking.
type Gate struct {
	bookings Store
	reviews  ReviewStore
}

// NewGate builds a review gate over the booking and review stores.
func NewGate(bookings Store, reviews ReviewStore) *Gate {
	if bookings == nil || reviews == nil {
		panic("nil dependency passed to NewGate")
	}
	return &Gate{bookings: bookings, reviews: reviews}
}

// AttachReview validates and creates the review for a completed stay.
// Failure modes: ErrBookingNotFound, ErrForbidden (not the booking's
// guest), ErrNotCompleted, ErrAlreadyReviewed, ErrInvalidRating.
func (g *Gate) AttachReview(ctx context.Context, bookingID, guestID uint64, rating uint8, comment *string) (*model.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	b, err := g.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.GuestID != guestID {
		return nil, ErrForbidden
	}
	if b.Status != model.StatusCompleted {
		return nil, ErrNotCompleted
	}
	if taken, err := g.reviews.HasReviewForBooking(ctx, bookingID); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrAlreadyReviewed
	}
	rv := &model.Review{
		BookingID: b.ID,
		GuestID:   guestID,
		RoomID:    b.RoomID,
		Rating:    rating,
		Comment:   comment,
	}
	// The pre-check above is advisory; the unique key behind CreateReview
	// is what actually guarantees at-most-once under concurrency.
	if err := g.reviews.CreateReview(ctx, rv); err != nil {
		return nil, err
	}
	return rv, nil
}

// EditReview rewrites an existing review's rating and comment.  Only
// the author may edit unless force is set (admin override), and a
// soft-deleted review is frozen until moderation restores it.  Failure
// modes: ErrInvalidRating, ErrReviewNotFound, ErrForbidden,
// ErrReviewDeleted.
func (g *Gate) EditReview(ctx context.Context, reviewID, guestID uint64, force bool, rating uint8, comment *string) (*model.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	rv, err := g.reviews.GetReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if !force && rv.GuestID != guestID {
		return nil, ErrForbidden
	}
	if rv.Deleted {
		return nil, ErrReviewDeleted
	}
	rv.Rating = rating
	rv.Comment = comment
	// UpdateReview re-checks the deleted flag at the storage level, so a
	// moderation removal racing this edit still wins.
	if err := g.reviews.UpdateReview(ctx, rv); err != nil {
		return nil, err
	}
	return rv, nil
}
