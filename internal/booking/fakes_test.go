package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock { return &fakeClock{now: now} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// memStore is an in-memory Store honoring the same contract as the
// MySQL repository: versioned guarded transitions, no hard deletes.
// failNext injects transient failures for retry tests.
type memStore struct {
	mu       sync.Mutex
	seq      uint64
	rows     map[uint64]*model.Booking
	failNext int
}

func newMemStore() *memStore { return &memStore{rows: make(map[uint64]*model.Booking)} }

func (s *memStore) failTransiently(n int) {
	s.mu.Lock()
	s.failNext = n
	s.mu.Unlock()
}

func (s *memStore) maybeFail() error {
	if s.failNext > 0 {
		s.failNext--
		return fmt.Errorf("%w: injected", ErrStoreUnavailable)
	}
	return nil
}

func (s *memStore) Create(_ context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.maybeFail(); err != nil {
		return err
	}
	s.seq++
	b.ID = s.seq
	b.Version = 1
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	cp := *b
	s.rows[b.ID] = &cp
	return nil
}

func (s *memStore) Get(_ context.Context, id uint64) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.maybeFail(); err != nil {
		return nil, err
	}
	row, ok := s.rows[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	cp := *row
	return &cp, nil
}

func (s *memStore) Transition(_ context.Context, b *model.Booking, to model.BookingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.maybeFail(); err != nil {
		return err
	}
	row, ok := s.rows[b.ID]
	if !ok {
		return ErrBookingNotFound
	}
	if row.Status != b.Status || row.Version != b.Version {
		return ErrStaleBooking
	}
	row.Status = to
	row.Version++
	row.UpdatedAt = time.Now().UTC()
	b.Status = row.Status
	b.Version = row.Version
	b.UpdatedAt = row.UpdatedAt
	return nil
}

func (s *memStore) UpdateInterval(_ context.Context, b *model.Booking, iv model.TimeInterval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.maybeFail(); err != nil {
		return err
	}
	row, ok := s.rows[b.ID]
	if !ok {
		return ErrBookingNotFound
	}
	if row.Status != b.Status || row.Version != b.Version {
		return ErrStaleBooking
	}
	row.Interval = iv
	row.Version++
	row.UpdatedAt = time.Now().UTC()
	b.Interval = row.Interval
	b.Version = row.Version
	b.UpdatedAt = row.UpdatedAt
	return nil
}

func (s *memStore) ConfirmedEndingBy(_ context.Context, now time.Time) ([]*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.maybeFail(); err != nil {
		return nil, err
	}
	var out []*model.Booking
	for _, row := range s.rows {
		if row.Status == model.StatusConfirmed && !row.Interval.End.After(now) {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

// status reads a row's current status directly, bypassing the manager.
func (s *memStore) status(id uint64) model.BookingStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[id].Status
}

// memRooms is a RoomCatalog over a fixed set of room IDs.
type memRooms struct {
	mu       sync.Mutex
	bookable map[uint64]bool
}

func newMemRooms(ids ...uint64) *memRooms {
	m := &memRooms{bookable: make(map[uint64]bool)}
	for _, id := range ids {
		m.bookable[id] = true
	}
	return m
}

func (m *memRooms) RoomBookable(_ context.Context, roomID uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookable[roomID], nil
}

// memReviews is an in-memory ReviewStore with a unique booking_id key
// and the same deleted-row edit guard as the MySQL implementation.
type memReviews struct {
	mu        sync.Mutex
	seq       uint64
	byID      map[uint64]*model.Review
	byBooking map[uint64]*model.Review
}

func newMemReviews() *memReviews {
	return &memReviews{
		byID:      make(map[uint64]*model.Review),
		byBooking: make(map[uint64]*model.Review),
	}
}

func (m *memReviews) CreateReview(_ context.Context, rv *model.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.byBooking[rv.BookingID]; taken {
		return ErrAlreadyReviewed
	}
	m.seq++
	rv.ID = m.seq
	rv.CreatedAt = time.Now().UTC()
	rv.UpdatedAt = rv.CreatedAt
	cp := *rv
	m.byID[rv.ID] = &cp
	m.byBooking[rv.BookingID] = &cp
	return nil
}

func (m *memReviews) HasReviewForBooking(_ context.Context, bookingID uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, taken := m.byBooking[bookingID]
	return taken, nil
}

func (m *memReviews) GetReview(_ context.Context, id uint64) (*model.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.byID[id]
	if !ok {
		return nil, ErrReviewNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *memReviews) UpdateReview(_ context.Context, rv *model.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.byID[rv.ID]
	if !ok {
		return ErrReviewNotFound
	}
	if row.Deleted {
		return ErrReviewDeleted
	}
	row.Rating = rv.Rating
	row.Comment = rv.Comment
	row.UpdatedAt = time.Now().UTC()
	return nil
}

// setDeleted flips the soft-delete marker directly, standing in for the
// moderation path.
func (m *memReviews) setDeleted(id uint64, deleted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.byID[id]; ok {
		row.Deleted = deleted
	}
}

// iv is shorthand for building intervals in tests.
func iv(t0 time.Time, startOffset, endOffset time.Duration) model.TimeInterval {
	return model.TimeInterval{Start: t0.Add(startOffset).UTC(), End: t0.Add(endOffset).UTC()}
}
