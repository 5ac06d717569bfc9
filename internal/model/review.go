package model

import "time"

// Review is a guest's rating of a completed stay.  A review references
// exactly one booking and a booking carries at most one review; the
// review gate enforces both before a row is ever written.  Reviews are
// soft-deleted to support the remove/restore moderation flow.
//
// Fields:
//  ID        – primary key identifier.
//  BookingID – the completed booking being reviewed (unique).
//  GuestID   – author of the review (owner of the booking).
//  RoomID    – room the booking was for, denormalized for room listings.
//  Rating    – 1..5 score.
//  Comment   – optional free text (nullable).
//  Flagged   – set by admins during moderation.
//  Deleted   – soft-delete marker; deleted reviews are hidden from
//              normal consumers but can be restored.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Review struct {
	ID        uint64    // reviews.id
	BookingID uint64    // reviews.booking_id (unique)
	GuestID   uint64    // reviews.guest_id
	RoomID    uint64    // reviews.room_id
	Rating    uint8     // reviews.rating
	Comment   *string   // reviews.comment (nullable)
	Flagged   bool      // reviews.flagged
	Deleted   bool      // reviews.deleted
	CreatedAt time.Time // reviews.created_at
	UpdatedAt time.Time // reviews.updated_at
}
