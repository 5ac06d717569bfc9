package model

import "time"

// BookingStatus enumerates the lifecycle states of a booking.  The
// string values match the `bookings.status` column enumeration.
type BookingStatus string

const (
	// StatusPending is the initial state: the booking exists but its
	// interval has not yet been reserved.  Pending intervals still count
	// as active for overlap checks.
	StatusPending BookingStatus = "PENDING"
	// StatusConfirmed means the interval was reserved successfully.
	StatusConfirmed BookingStatus = "CONFIRMED"
	// StatusRejected means the requested interval conflicted with an
	// active booking.  Rejection is a normal outcome, not a failure.
	StatusRejected BookingStatus = "REJECTED"
	// StatusCancelled means the guest cancelled a confirmed booking
	// before the stay started.
	StatusCancelled BookingStatus = "CANCELLED"
	// StatusCompleted means the interval's end passed without a
	// cancellation.  Only completed bookings accept reviews.
	StatusCompleted BookingStatus = "COMPLETED"
)

// transitions is the exhaustive legal-transition table.  Anything not
// listed here is an illegal transition and must be rejected, e.g.
// cancelling a rejected booking.
var transitions = map[BookingStatus][]BookingStatus{
	StatusPending:   {StatusConfirmed, StatusRejected},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
	StatusRejected:  {},
	StatusCancelled: {},
	StatusCompleted: {},
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s BookingStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// IsActive reports whether a booking in state s holds its interval for
// overlap purposes.  Only pending and confirmed bookings block other
// requests for the same room.
func (s BookingStatus) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Booking records a guest's claim on a room for a time interval.
// Bookings are never hard-deleted; rejected and cancelled rows are
// retained as history.
//
// Fields:
//  ID        – primary key identifier.
//  RoomID    – room being booked (opaque key owned by the room catalog).
//  GuestID   – user who requested the booking (opaque identity key).
//  Interval  – half-open [start, end) stay window.
//  Status    – current lifecycle state.
//  Version   – sequence number bumped on every state transition; used
//              for optimistic concurrency between the cancel path and
//              the expiry sweep.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last transition timestamp.
type Booking struct {
	ID        uint64        // bookings.id
	RoomID    uint64        // bookings.room_id
	GuestID   uint64        // bookings.guest_id
	Interval  TimeInterval  // bookings.start_time / bookings.end_time
	Status    BookingStatus // bookings.status
	Version   uint64        // bookings.version
	CreatedAt time.Time     // bookings.created_at
	UpdatedAt time.Time     // bookings.updated_at
}
