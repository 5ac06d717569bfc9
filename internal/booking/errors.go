// Package booking implements the reservation core: the per-room interval
// index, the availability checker, the booking lifecycle state machine and
// the review gate.  Everything here is storage-agnostic; persistence goes
// through the Store and ReviewStore ports, which the repository package
// implements on MySQL.  These sentinel values let handlers distinguish the
// failure modes: validation problems are rejected before any shared state
// is touched, conflicts surface as REJECTED bookings rather than errors,
// and only ErrStoreUnavailable is eligible for automatic retry.
package booking

import "errors"

// ErrConflict signals that a requested interval overlaps an active
// (pending or confirmed) interval for the same room.
var ErrConflict = errors.New("interval conflicts with an active booking")

// ErrRoomNotFound is returned when the room catalog does not know the
// requested room or the room is not bookable.  It is raised before the
// interval index is ever consulted.
var ErrRoomNotFound = errors.New("room not found")

// ErrBookingNotFound is returned when a booking lookup fails.
var ErrBookingNotFound = errors.New("booking not found")

// ErrPastStart is returned when a booking request's start is not
// strictly in the future at request time.
var ErrPastStart = errors.New("booking must start in the future")

// ErrForbidden is returned when the requester does not own the booking
// they are trying to cancel or review.
var ErrForbidden = errors.New("forbidden")

// ErrAlreadyTerminal is returned when a transition is attempted on a
// booking that is no longer in a state permitting it, e.g. cancelling a
// rejected or already-completed booking.
var ErrAlreadyTerminal = errors.New("booking is not in a cancellable state")

// ErrCancelTooLate is returned when a cancellation arrives at or after
// the stay's start and late cancellation is disabled.
var ErrCancelTooLate = errors.New("stay already underway, cancellation window closed")

// ErrNotCompleted is returned when a review is attached to a booking
// that has not reached the completed state.
var ErrNotCompleted = errors.New("booking is not completed")

// ErrAlreadyReviewed is returned when a booking already carries a review.
var ErrAlreadyReviewed = errors.New("booking already reviewed")

// ErrInvalidRating is returned when a review rating is outside 1..5.
var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// ErrReviewNotFound is returned when a review lookup through the gate
// fails.
var ErrReviewNotFound = errors.New("review not found")

// ErrReviewDeleted is returned when an edit targets a soft-deleted
// review.  Moderation has to restore it before the author can touch it
// again.
var ErrReviewDeleted = errors.New("review is deleted")

// ErrStoreUnavailable marks a transient persistence failure (lock wait,
// deadlock, dropped connection).  The lifecycle manager retries these a
// bounded number of times before surfacing them; callers must treat the
// surfaced error as retryable and distinct from ErrConflict.
var ErrStoreUnavailable = errors.New("booking store temporarily unavailable")

// ErrStaleBooking is returned by Store.Transition when the optimistic
// version check fails because a concurrent transition won.  Call sites
// decide what the lost race means (already cancelled, already swept).
var ErrStaleBooking = errors.New("booking was modified concurrently")
