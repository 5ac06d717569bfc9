package model

import "time"

// Room represents a bookable meeting room as stored in the `rooms`
// table.  The booking core only cares about the room's identifier and
// whether it is bookable; the descriptive fields exist for the catalog
// endpoints.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – unique human readable room name.
//  Capacity    – number of people the room holds.
//  Equipment   – optional comma separated equipment list (nullable).
//  Location    – building/floor description.
//  IsAvailable – whether the room can currently be booked at all.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Room struct {
	ID          uint64    // rooms.id
	Name        string    // rooms.name
	Capacity    uint32    // rooms.capacity
	Equipment   *string   // rooms.equipment (nullable)
	Location    string    // rooms.location
	IsAvailable bool      // rooms.is_available
	CreatedAt   time.Time // rooms.created_at
	UpdatedAt   time.Time // rooms.updated_at
}
