package booking

import (
	"sort"
	"sync"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

// intervalEntry associates one active interval with the booking that
// owns it.  The booking ID is a back-reference, not an ownership
// relation: the booking row remains the source of truth.
type intervalEntry struct {
	bookingID uint64
	interval  model.TimeInterval
}

// roomIndex holds the active intervals of a single room, sorted by
// start time.  The sorted set never contains internal overlaps, which
// is what allows Reserve to only inspect the immediate neighbours of
// an insertion point.  Each room has its own mutex so requests for
// different rooms never serialize against each other.
type roomIndex struct {
	mu      sync.Mutex
	entries []intervalEntry // sorted by interval.Start ascending
}

// IntervalStore is the in-memory, read-optimized index of active
// (pending or confirmed) intervals keyed by room.  It is the single
// serialization point that makes check-then-reserve atomic per room:
// Reserve holds the room's lock across the overlap check and the
// insert, and nothing else.  External I/O (persistence, notification
// delivery) never happens under these locks.
//
// The index is warmed from the active bookings in storage at startup
// via Reserve and kept in sync by the lifecycle manager afterwards.
type IntervalStore struct {
	mu    sync.RWMutex
	rooms map[uint64]*roomIndex
}

// NewIntervalStore returns an empty index.
func NewIntervalStore() *IntervalStore {
	return &IntervalStore{rooms: make(map[uint64]*roomIndex)}
}

// room returns the index for roomID, creating it lazily.  The outer
// RWMutex only guards the map; per-room state is guarded by the room's
// own mutex.
func (s *IntervalStore) room(roomID uint64) *roomIndex {
	s.mu.RLock()
	r := s.rooms[roomID]
	s.mu.RUnlock()
	if r != nil {
		return r
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if r = s.rooms[roomID]; r == nil {
		r = &roomIndex{}
		s.rooms[roomID] = r
	}
	return r
}

// searchStart returns the index of the first entry whose start is not
// before t.  Callers must hold the room lock.
func (r *roomIndex) searchStart(t model.TimeInterval) int {
	return sort.Search(len(r.entries), func(i int) bool {
		return !r.entries[i].interval.Start.Before(t.Start)
	})
}

// Reserve atomically inserts the interval for the room iff no existing
// active interval overlaps it, and returns ErrConflict otherwise.
// Because the per-room set is sorted and free of internal overlaps,
// only the entry immediately preceding the candidate's start and the
// entry immediately following it need to be inspected.
func (s *IntervalStore) Reserve(roomID uint64, iv model.TimeInterval, bookingID uint64) error {
	if err := iv.Validate(); err != nil {
		return err
	}
	r := s.room(roomID)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insert(iv, bookingID)
}

// Rebook atomically moves a booking's interval to iv iff iv overlaps no
// other active interval in the room; the booking's own current interval
// is excluded from the check so shrinking, growing or shifting within
// the old window works.  On conflict the old interval stays reserved
// and ErrConflict is returned.  A booking with no current entry is
// simply reserved, which makes Rebook usable for redo after a partial
// failure.
func (s *IntervalStore) Rebook(roomID uint64, iv model.TimeInterval, bookingID uint64) error {
	if err := iv.Validate(); err != nil {
		return err
	}
	r := s.room(roomID)
	r.mu.Lock()
	defer r.mu.Unlock()

	old, hadOld := r.remove(bookingID)
	if err := r.insert(iv, bookingID); err != nil {
		if hadOld {
			// Cannot fail: the old interval's slot is still free.
			_ = r.insert(old, bookingID)
		}
		return err
	}
	return nil
}

// insert places the interval at its sorted position iff it overlaps no
// existing entry.  Callers must hold the room lock.
func (r *roomIndex) insert(iv model.TimeInterval, bookingID uint64) error {
	i := r.searchStart(iv)
	if i > 0 && r.entries[i-1].interval.End.After(iv.Start) {
		return ErrConflict
	}
	if i < len(r.entries) && r.entries[i].interval.Start.Before(iv.End) {
		return ErrConflict
	}
	r.entries = append(r.entries, intervalEntry{})
	copy(r.entries[i+1:], r.entries[i:])
	r.entries[i] = intervalEntry{bookingID: bookingID, interval: iv}
	return nil
}

// remove deletes the booking's entry, returning the interval it held.
// Callers must hold the room lock.
func (r *roomIndex) remove(bookingID uint64) (model.TimeInterval, bool) {
	for i := range r.entries {
		if r.entries[i].bookingID == bookingID {
			old := r.entries[i].interval
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return old, true
		}
	}
	return model.TimeInterval{}, false
}

// Release removes the interval associated with a booking.  It is
// idempotent: releasing a booking that holds no interval (already
// released, or never reserved) is a no-op so that retries after a
// half-failed cancellation are harmless.
func (s *IntervalStore) Release(roomID, bookingID uint64) {
	r := s.room(roomID)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(bookingID)
}

// Query returns the IDs of active bookings whose intervals overlap iv,
// ordered by start time.  It is a pure read used by the availability
// checker and for diagnostics.
func (s *IntervalStore) Query(roomID uint64, iv model.TimeInterval) []uint64 {
	r := s.room(roomID)
	r.mu.Lock()
	defer r.mu.Unlock()

	// The only entry starting before iv that can overlap it is the
	// immediate predecessor; everything from the insertion point forward
	// overlaps until starts reach iv.End.
	i := r.searchStart(iv)
	if i > 0 && r.entries[i-1].interval.End.After(iv.Start) {
		i--
	}
	var ids []uint64
	for ; i < len(r.entries) && r.entries[i].interval.Start.Before(iv.End); i++ {
		if r.entries[i].interval.Overlaps(iv) {
			ids = append(ids, r.entries[i].bookingID)
		}
	}
	return ids
}

// ActiveCount reports how many active intervals a room currently has.
// Used by diagnostics endpoints and tests.
func (s *IntervalStore) ActiveCount(roomID uint64) int {
	r := s.room(roomID)
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
