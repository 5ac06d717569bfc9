package booking

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

// Store is the persistence port of the lifecycle manager.  The MySQL
// implementation lives in the repository package; tests use an
// in-memory one.  Implementations must wrap transient failures (lock
// waits, deadlocks, dropped connections) with ErrStoreUnavailable so
// the manager can retry them, and must never hard-delete rows.
type Store interface {
	// Create inserts a new booking in its current (pending) state and
	// populates ID, Version and the timestamps.
	Create(ctx context.Context, b *model.Booking) error
	// Get loads a booking by ID or returns ErrBookingNotFound.
	Get(ctx context.Context, id uint64) (*model.Booking, error)
	// Transition moves b to the given status iff the stored row still
	// carries b's status and version, bumping the version.  It returns
	// ErrStaleBooking when a concurrent transition won the race, and
	// updates b in place on success.
	Transition(ctx context.Context, b *model.Booking, to model.BookingStatus) error
	// UpdateInterval rewrites b's stay window iff the stored row still
	// carries b's status and version, bumping the version.  It returns
	// ErrStaleBooking when a concurrent transition won the race, and
	// updates b in place on success.
	UpdateInterval(ctx context.Context, b *model.Booking, iv model.TimeInterval) error
	// ConfirmedEndingBy lists confirmed bookings whose interval end is
	// at or before the given instant, for the expiry sweep.
	ConfirmedEndingBy(ctx context.Context, now time.Time) ([]*model.Booking, error)
}

// Options tunes lifecycle policy.  The zero value is completed by
// NewManager with the defaults below.
type Options struct {
	// AllowLateCancellation permits cancelling a confirmed booking after
	// its stay has started.  Off by default.
	AllowLateCancellation bool
	// RetryAttempts bounds the automatic retries of transient store
	// failures.  Defaults to 3.
	RetryAttempts int
	// RetryBackoff is the delay before the first retry; it doubles on
	// each subsequent attempt.  Defaults to 50ms.
	RetryBackoff time.Duration
}

// Manager drives bookings through the state machine
//
//	PENDING -> {CONFIRMED, REJECTED}
//	CONFIRMED -> {CANCELLED, COMPLETED}
//
// and owns the concurrency discipline that makes check-then-reserve
// atomic: the interval index is the per-room serialization point, the
// store's versioned Transition arbitrates races between cancellation
// and the expiry sweep.  There is no path that reserves a slot without
// going through IntervalStore.Reserve.
type Manager struct {
	store Store
	index *IntervalStore
	rooms RoomCatalog
	clock Clock
	opts  Options
}

// NewManager wires the lifecycle manager.  All dependencies must be
// non-nil; pass SystemClock() outside of tests.
func NewManager(store Store, index *IntervalStore, rooms RoomCatalog, clock Clock, opts Options) *Manager {
	if store == nil || index == nil || rooms == nil || clock == nil {
		panic("nil dependency passed to NewManager")
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 3
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 50 * time.Millisecond
	}
	return &Manager{store: store, index: index, rooms: rooms, clock: clock, opts: opts}
}

// withRetry runs fn, retrying up to opts.RetryAttempts times with
// doubling backoff as long as the failure is transient.  Any other
// error is returned immediately.
func (m *Manager) withRetry(ctx context.Context, fn func() error) error {
	backoff := m.opts.RetryBackoff
	var err error
	for attempt := 0; attempt < m.opts.RetryAttempts; attempt++ {
		if err = fn(); err == nil || !errors.Is(err, ErrStoreUnavailable) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}

// RequestBooking creates a booking for the guest and attempts to
// reserve its interval.  The returned booking is CONFIRMED when the
// slot was free and REJECTED when it overlapped an active booking;
// rejection is a normal outcome and comes back with a nil error.
// Validation failures (malformed interval, start not in the future,
// unknown room) are reported before any shared state is touched.
func (m *Manager) RequestBooking(ctx context.Context, roomID, guestID uint64, iv model.TimeInterval) (*model.Booking, error) {
	if err := iv.Validate(); err != nil {
		return nil, err
	}
	if !iv.Start.After(m.clock.Now()) {
		return nil, ErrPastStart
	}
	bookable, err := m.rooms.RoomBookable(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !bookable {
		return nil, ErrRoomNotFound
	}

	b := &model.Booking{
		RoomID:   roomID,
		GuestID:  guestID,
		Interval: iv,
		Status:   model.StatusPending,
	}
	if err := m.withRetry(ctx, func() error { return m.store.Create(ctx, b) }); err != nil {
		return nil, err
	}

	// The pending row exists; now claim the slot.  Reserve holds the
	// room's lock only across the overlap check and insert.
	if err := m.index.Reserve(roomID, iv, b.ID); err != nil {
		if !errors.Is(err, ErrConflict) {
			return nil, err
		}
		if terr := m.transition(ctx, b, model.StatusRejected); terr != nil {
			return nil, terr
		}
		return b, nil
	}

	if err := m.transition(ctx, b, model.StatusConfirmed); err != nil {
		// Undo the reservation so a failed confirm leaves no residue;
		// the pending row is marked rejected on a best-effort basis.
		m.index.Release(roomID, b.ID)
		_ = m.transition(ctx, b, model.StatusRejected)
		return nil, err
	}
	return b, nil
}

// CancelBooking cancels a confirmed booking.  Only the owning guest may
// cancel unless force is set (admin override).  Cancellation must
// happen strictly before the stay starts unless AllowLateCancellation
// is enabled.  The freed interval becomes reservable immediately.
func (m *Manager) CancelBooking(ctx context.Context, bookingID, requesterGuest uint64, force bool) error {
	var b *model.Booking
	if err := m.withRetry(ctx, func() error {
		var err error
		b, err = m.store.Get(ctx, bookingID)
		return err
	}); err != nil {
		return err
	}
	if !force && b.GuestID != requesterGuest {
		return ErrForbidden
	}
	if !b.Status.CanTransitionTo(model.StatusCancelled) {
		return ErrAlreadyTerminal
	}
	if !m.opts.AllowLateCancellation && !m.clock.Now().Before(b.Interval.Start) {
		return ErrCancelTooLate
	}
	if err := m.transition(ctx, b, model.StatusCancelled); err != nil {
		if errors.Is(err, ErrStaleBooking) {
			// The sweep or another cancel got there first.
			return ErrAlreadyTerminal
		}
		return err
	}
	m.index.Release(b.RoomID, b.ID)
	return nil
}

// RescheduleBooking moves an active booking to a new interval.  Only
// the owning guest may reschedule unless force is set (admin override).
// The move goes through the same per-room serialization point as a
// fresh reservation: Rebook checks the new window against every other
// active interval while ignoring the booking's own, so shifting within
// the old window works and a conflict leaves the old reservation
// untouched.  Unlike a conflicting request, a conflicting reschedule is
// an error (ErrConflict): the booking keeps its slot instead of being
// rejected.
func (m *Manager) RescheduleBooking(ctx context.Context, bookingID, requesterGuest uint64, force bool, iv model.TimeInterval) (*model.Booking, error) {
	if err := iv.Validate(); err != nil {
		return nil, err
	}
	if !iv.Start.After(m.clock.Now()) {
		return nil, ErrPastStart
	}
	var b *model.Booking
	if err := m.withRetry(ctx, func() error {
		var err error
		b, err = m.store.Get(ctx, bookingID)
		return err
	}); err != nil {
		return nil, err
	}
	if !force && b.GuestID != requesterGuest {
		return nil, ErrForbidden
	}
	if !b.Status.IsActive() {
		return nil, ErrAlreadyTerminal
	}

	old := b.Interval
	if err := m.index.Rebook(b.RoomID, iv, b.ID); err != nil {
		return nil, err
	}
	if err := m.withRetry(ctx, func() error { return m.store.UpdateInterval(ctx, b, iv) }); err != nil {
		if errors.Is(err, ErrStaleBooking) {
			// Someone else won the version race.  Resync the index with
			// whatever the row says now: a terminal booking holds no
			// interval, an active one holds its stored window.
			if cur, gerr := m.store.Get(ctx, bookingID); gerr == nil && cur.Status.IsActive() {
				_ = m.index.Rebook(cur.RoomID, cur.Interval, cur.ID)
				return nil, ErrStaleBooking
			}
			m.index.Release(b.RoomID, b.ID)
			return nil, ErrAlreadyTerminal
		}
		// Transient failure: the row is untouched, put the old window back.
		_ = m.index.Rebook(b.RoomID, old, b.ID)
		return nil, err
	}
	return b, nil
}

// CompleteExpired transitions every confirmed booking whose interval
// end is at or before now to COMPLETED and returns how many bookings it
// moved.  The external scheduler invokes it periodically; running it
// twice with the same now yields zero transitions the second time.  A
// booking cancelled concurrently loses its version race here and is
// simply skipped.
func (m *Manager) CompleteExpired(ctx context.Context, now time.Time) (int, error) {
	var due []*model.Booking
	if err := m.withRetry(ctx, func() error {
		var err error
		due, err = m.store.ConfirmedEndingBy(ctx, now)
		return err
	}); err != nil {
		return 0, err
	}
	completed := 0
	for _, b := range due {
		if err := m.transition(ctx, b, model.StatusCompleted); err != nil {
			if errors.Is(err, ErrStaleBooking) {
				continue
			}
			return completed, err
		}
		m.index.Release(b.RoomID, b.ID)
		completed++
	}
	return completed, nil
}

// Booking loads a single booking by ID.
func (m *Manager) Booking(ctx context.Context, id uint64) (*model.Booking, error) {
	return m.store.Get(ctx, id)
}

// transition applies a guarded state change with transient-failure
// retry.  The model-level transition table is consulted first so that
// illegal transitions fail fast without a round trip.
func (m *Manager) transition(ctx context.Context, b *model.Booking, to model.BookingStatus) error {
	if !b.Status.CanTransitionTo(to) {
		return ErrAlreadyTerminal
	}
	return m.withRetry(ctx, func() error { return m.store.Transition(ctx, b, to) })
}

// WarmIndex loads the given active bookings into the interval index.
// It is called once at startup with the pending/confirmed rows from
// storage so that the index reflects reservations made before the last
// restart.  Overlap conflicts among stored rows indicate corrupt data
// and are returned to the caller.
func (m *Manager) WarmIndex(active []*model.Booking) error {
	for _, b := range active {
		if !b.Status.IsActive() {
			continue
		}
		if err := m.index.Reserve(b.RoomID, b.Interval, b.ID); err != nil {
			return err
		}
	}
	return nil
}
