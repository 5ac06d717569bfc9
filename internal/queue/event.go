// Package queue defines message payloads exchanged over the message broker.
package queue

// Event type values carried in BookingEvent.Event.
const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
)

// BookingEvent is published whenever a booking is confirmed or
// cancelled.  It carries enough information for downstream consumers to
// log, notify, or trigger analytics without querying the primary
// database.  Timestamps are RFC 3339 strings in UTC.
type BookingEvent struct {
	Event      string `json:"event"` // EventBookingConfirmed or EventBookingCancelled
	BookingID  uint64 `json:"booking_id"`
	GuestID    uint64 `json:"guest_id"`
	RoomID     uint64 `json:"room_id"`
	RoomName   string `json:"room_name,omitempty"`
	StartsAt   string `json:"starts_at"`
	EndsAt     string `json:"ends_at"`
	Status     string `json:"status"`
	OccurredAt string `json:"occurred_at"`
}
