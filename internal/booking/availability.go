package booking

import (
	"context"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

// RoomCatalog is the slice of the room-catalog collaborator the core
// needs: whether a room exists and is currently bookable.  The
// repository package implements it on the rooms table.
type RoomCatalog interface {
	RoomBookable(ctx context.Context, roomID uint64) (bool, error)
}

// Checker answers read-only "is this slot free" questions.  It is safe
// to call speculatively before attempting a reservation; a positive
// answer is only a hint, the authoritative check happens inside
// IntervalStore.Reserve.
type Checker struct {
	index *IntervalStore
	rooms RoomCatalog
}

// NewChecker builds a Checker over the given index and room catalog.
func NewChecker(index *IntervalStore, rooms RoomCatalog) *Checker {
	if index == nil || rooms == nil {
		panic("nil dependency passed to NewChecker")
	}
	return &Checker{index: index, rooms: rooms}
}

// IsAvailable reports whether the room has no active interval
// overlapping iv.  Unknown or unbookable rooms yield ErrRoomNotFound
// before the index is consulted; malformed intervals yield
// model.ErrInvalidInterval.
func (c *Checker) IsAvailable(ctx context.Context, roomID uint64, iv model.TimeInterval) (bool, error) {
	if err := iv.Validate(); err != nil {
		return false, err
	}
	ok, err := c.rooms.RoomBookable(ctx, roomID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrRoomNotFound
	}
	return len(c.index.Query(roomID, iv)) == 0, nil
}
