// Package repository contains the MySQL data access layer.  Sentinel
// errors defined here are shared across repositories so that handlers
// can map failure scenarios onto HTTP statuses (ErrConflict becomes
// 409, e.g. deleting a room that still has active bookings).
// Booking-core failure modes live in the booking package; repositories
// translate driver errors into those sentinels so the core stays
// storage-agnostic.
package repository

import "errors"

// ErrConflict is returned when a delete or update cannot proceed
// because of dependent records, such as removing a room that still has
// active bookings.
var ErrConflict = errors.New("conflict")
