package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/meeting-room-reservation/internal/booking"
	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

// ErrReviewNotFound is returned when a review lookup fails.
var ErrReviewNotFound = errors.New("review not found")

// ReviewRepo persists reviews and implements the review gate's
// ReviewStore port.  The `reviews` table carries a unique key on
// booking_id; that key, not the gate's advisory pre-check, is what
// guarantees at most one review per booking under concurrency.
// Reviews are soft-deleted so moderation can remove and restore them.
type ReviewRepo struct {
	db *sql.DB
}

// NewReviewRepo returns a ReviewRepo bound to the given database.
func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

var _ booking.ReviewStore = (*ReviewRepo)(nil)

const reviewColumns = `id, booking_id, guest_id, room_id, rating, comment, flagged, deleted, created_at, updated_at`

func scanReview(row interface{ Scan(...any) error }) (*model.Review, error) {
	var (
		rv      model.Review
		comment sql.NullString
	)
	err := row.Scan(&rv.ID, &rv.BookingID, &rv.GuestID, &rv.RoomID, &rv.Rating,
		&comment, &rv.Flagged, &rv.Deleted, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if comment.Valid {
		c := comment.String
		rv.Comment = &c
	}
	return &rv, nil
}

// CreateReview inserts the review row.  A duplicate booking_id is the
// one-review-per-booking invariant firing and maps to
// booking.ErrAlreadyReviewed.
func (r *ReviewRepo) CreateReview(ctx context.Context, rv *model.Review) error {
	const q = `INSERT INTO reviews (booking_id, guest_id, room_id, rating, comment)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, rv.BookingID, rv.GuestID, rv.RoomID, rv.Rating, rv.Comment)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return booking.ErrAlreadyReviewed
		}
		return transientErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*rv = *stored
	return nil
}

// HasReviewForBooking reports whether a review row (deleted or not)
// already references the booking.  Soft-deleted reviews still count:
// moderation hides them, it does not free the booking for re-review.
func (r *ReviewRepo) HasReviewForBooking(ctx context.Context, bookingID uint64) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM reviews WHERE booking_id = ?)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, bookingID).Scan(&exists); err != nil {
		return false, transientErr(err)
	}
	return exists, nil
}

// GetByID retrieves a review regardless of its deleted flag.
func (r *ReviewRepo) GetByID(ctx context.Context, id uint64) (*model.Review, error) {
	const q = `SELECT ` + reviewColumns + ` FROM reviews WHERE id = ?`
	rv, err := scanReview(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, transientErr(err)
	}
	return rv, nil
}

// GetReview loads a review for the gate's edit path, translating a
// missing row to the gate's own sentinel.
func (r *ReviewRepo) GetReview(ctx context.Context, id uint64) (*model.Review, error) {
	rv, err := r.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrReviewNotFound) {
			return nil, booking.ErrReviewNotFound
		}
		return nil, err
	}
	return rv, nil
}

// UpdateReview rewrites the rating and comment of a live review.  The
// deleted guard in the WHERE clause is what actually keeps an edit from
// racing past a concurrent moderation removal.
func (r *ReviewRepo) UpdateReview(ctx context.Context, rv *model.Review) error {
	const q = `UPDATE reviews
	           SET rating = ?, comment = ?, updated_at = UTC_TIMESTAMP()
	           WHERE id = ? AND deleted = FALSE`
	res, err := r.db.ExecContext(ctx, q, rv.Rating, rv.Comment, rv.ID)
	if err != nil {
		return transientErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		stored, err := r.GetByID(ctx, rv.ID)
		if err != nil {
			if errors.Is(err, ErrReviewNotFound) {
				return booking.ErrReviewNotFound
			}
			return err
		}
		if stored.Deleted {
			return booking.ErrReviewDeleted
		}
		// Identical update; nothing to report.
	}
	return nil
}

// ListByRoom returns the non-deleted reviews for a room, newest first.
func (r *ReviewRepo) ListByRoom(ctx context.Context, roomID uint64) ([]*model.Review, error) {
	const q = `SELECT ` + reviewColumns + ` FROM reviews
	           WHERE room_id = ? AND deleted = FALSE
	           ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, roomID)
	if err != nil {
		return nil, transientErr(err)
	}
	defer rows.Close()
	out := make([]*model.Review, 0)
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SetDeleted flips the soft-delete marker (remove/restore moderation).
func (r *ReviewRepo) SetDeleted(ctx context.Context, id uint64, deleted bool) error {
	return r.setFlag(ctx, `UPDATE reviews SET deleted = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`, id, deleted)
}

// SetFlagged marks or clears the moderation flag on a review.
func (r *ReviewRepo) SetFlagged(ctx context.Context, id uint64, flagged bool) error {
	return r.setFlag(ctx, `UPDATE reviews SET flagged = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`, id, flagged)
}

func (r *ReviewRepo) setFlag(ctx context.Context, q string, id uint64, value bool) error {
	res, err := r.db.ExecContext(ctx, q, value, id)
	if err != nil {
		return transientErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
