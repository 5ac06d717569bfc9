package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/meeting-room-reservation/internal/booking"
	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

// BookingRepo persists bookings in the `bookings` table and implements
// the lifecycle manager's Store port.  Rows are never deleted; the
// status column plus the version column form the optimistic-concurrency
// guard for state transitions.  All timestamps are stored in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

var _ booking.Store = (*BookingRepo)(nil)

const bookingColumns = `id, room_id, guest_id, start_time, end_time, status, version, created_at, updated_at`

// transientErr wraps driver failures that are worth retrying (deadlock,
// lock wait timeout, dropped connection) with booking.ErrStoreUnavailable
// so the lifecycle manager can apply its bounded retry.  Anything else
// passes through unchanged.
func transientErr(err error) error {
	if err == nil {
		return nil
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1205, 1213: // lock wait timeout, deadlock victim
			return fmt.Errorf("%w: %v", booking.ErrStoreUnavailable, err)
		}
	}
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", booking.ErrStoreUnavailable, err)
	}
	return err
}

func scanBooking(row interface{ Scan(...any) error }) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.RoomID, &b.GuestID, &b.Interval.Start, &b.Interval.End,
		&b.Status, &b.Version, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a new booking row and reads it back to populate the
// generated ID, version and timestamps.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (room_id, guest_id, start_time, end_time, status, version)
	           VALUES (?, ?, ?, ?, ?, 1)`
	res, err := r.db.ExecContext(ctx, q,
		b.RoomID, b.GuestID, b.Interval.Start.UTC(), b.Interval.End.UTC(), string(b.Status))
	if err != nil {
		return transientErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return transientErr(err)
	}
	stored, err := r.Get(ctx, uint64(id))
	if err != nil {
		return err
	}
	*b = *stored
	return nil
}

// Get loads a booking by ID, returning booking.ErrBookingNotFound when
// no row exists.
func (r *BookingRepo) Get(ctx context.Context, id uint64) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, transientErr(err)
	}
	return b, nil
}

// Transition applies a guarded status change: the UPDATE only matches
// when the row still carries the caller's status and version, so a
// concurrent cancel and sweep cannot both win.  Zero affected rows on
// an existing booking means the caller lost the race.
func (r *BookingRepo) Transition(ctx context.Context, b *model.Booking, to model.BookingStatus) error {
	const q = `UPDATE bookings
	           SET status = ?, version = version + 1, updated_at = UTC_TIMESTAMP()
	           WHERE id = ? AND status = ? AND version = ?`
	res, err := r.db.ExecContext(ctx, q, string(to), b.ID, string(b.Status), b.Version)
	if err != nil {
		return transientErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return transientErr(err)
	}
	if n == 0 {
		if _, getErr := r.Get(ctx, b.ID); getErr != nil {
			return getErr
		}
		return booking.ErrStaleBooking
	}
	b.Status = to
	b.Version++
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateInterval rewrites the stay window under the same optimistic
// guard as Transition: zero affected rows on an existing booking means
// a concurrent transition won and the reschedule must not apply.
func (r *BookingRepo) UpdateInterval(ctx context.Context, b *model.Booking, iv model.TimeInterval) error {
	const q = `UPDATE bookings
	           SET start_time = ?, end_time = ?, version = version + 1, updated_at = UTC_TIMESTAMP()
	           WHERE id = ? AND status = ? AND version = ?`
	res, err := r.db.ExecContext(ctx, q, iv.Start.UTC(), iv.End.UTC(), b.ID, string(b.Status), b.Version)
	if err != nil {
		return transientErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return transientErr(err)
	}
	if n == 0 {
		if _, getErr := r.Get(ctx, b.ID); getErr != nil {
			return getErr
		}
		return booking.ErrStaleBooking
	}
	b.Interval = iv
	b.Version++
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// ConfirmedEndingBy lists confirmed bookings whose stay has ended by
// the given instant, oldest first.  Used by the expiry sweep.
func (r *BookingRepo) ConfirmedEndingBy(ctx context.Context, now time.Time) ([]*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings
	           WHERE status = 'CONFIRMED' AND end_time <= ?
	           ORDER BY end_time`
	return r.list(ctx, q, now.UTC())
}

// ListActive returns all pending and confirmed bookings.  It is used
// once at startup to warm the in-memory interval index.
func (r *BookingRepo) ListActive(ctx context.Context) ([]*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings
	           WHERE status IN ('PENDING', 'CONFIRMED')
	           ORDER BY room_id, start_time`
	return r.list(ctx, q)
}

// ListByGuest returns the guest's own bookings, newest first.
func (r *BookingRepo) ListByGuest(ctx context.Context, guestID uint64) ([]*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings
	           WHERE guest_id = ? ORDER BY created_at DESC`
	return r.list(ctx, q, guestID)
}

// ListAll returns every booking, newest first.  Reserved for admin and
// facility manager listings.
func (r *BookingRepo) ListAll(ctx context.Context) ([]*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings ORDER BY created_at DESC`
	return r.list(ctx, q)
}

func (r *BookingRepo) list(ctx context.Context, q string, args ...any) ([]*model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, transientErr(err)
	}
	defer rows.Close()
	out := make([]*model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, transientErr(err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, transientErr(err)
	}
	return out, nil
}
