package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/meeting-room-reservation/internal/booking"
	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

// ErrRoomNotFound is returned when a room lookup fails.
var ErrRoomNotFound = errors.New("room not found")

// ErrRoomNameExists is returned when creating or renaming a room would
// violate the unique room name constraint.
var ErrRoomNameExists = errors.New("room name already exists")

// RoomRepo provides CRUD access to the `rooms` table and implements
// the booking core's RoomCatalog port.  The booking core treats room
// IDs as opaque keys; the descriptive columns exist for the catalog
// endpoints.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo constructs a RoomRepo with the given DB handle.
func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

var _ booking.RoomCatalog = (*RoomRepo)(nil)

const roomColumns = `id, name, capacity, equipment, location, is_available, created_at, updated_at`

func scanRoom(row interface{ Scan(...any) error }) (*model.Room, error) {
	var (
		rm        model.Room
		equipment sql.NullString
	)
	err := row.Scan(&rm.ID, &rm.Name, &rm.Capacity, &equipment, &rm.Location,
		&rm.IsAvailable, &rm.CreatedAt, &rm.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if equipment.Valid {
		eq := equipment.String
		rm.Equipment = &eq
	}
	return &rm, nil
}

// RoomBookable reports whether the room exists and is currently open
// for booking.  An unknown room is (false, nil); the caller maps that
// to its own not-found error.
func (r *RoomRepo) RoomBookable(ctx context.Context, roomID uint64) (bool, error) {
	const q = `SELECT is_available FROM rooms WHERE id = ?`
	var available bool
	err := r.db.QueryRowContext(ctx, q, roomID).Scan(&available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, transientErr(err)
	}
	return available, nil
}

// Create inserts a new room and reads the row back so timestamps and
// defaults are populated.  Duplicate names map to ErrRoomNameExists.
func (r *RoomRepo) Create(ctx context.Context, rm *model.Room) error {
	const q = `INSERT INTO rooms (name, capacity, equipment, location, is_available)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, rm.Name, rm.Capacity, rm.Equipment, rm.Location, rm.IsAvailable)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrRoomNameExists
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
	*rm = *stored
	return nil
}

// GetByID retrieves a room by its ID, returning ErrRoomNotFound when
// no row exists.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
	const q = `SELECT ` + roomColumns + ` FROM rooms WHERE id = ?`
	rm, err := scanRoom(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, transientErr(err)
	}
	return rm, nil
}

// List returns all rooms ordered by name.
func (r *RoomRepo) List(ctx context.Context) ([]*model.Room, error) {
	const q = `SELECT ` + roomColumns + ` FROM rooms ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, transientErr(err)
	}
	defer rows.Close()
	out := make([]*model.Room, 0)
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update rewrites the mutable room fields.  Returns ErrRoomNotFound
// when the room does not exist and ErrRoomNameExists on a name clash.
func (r *RoomRepo) Update(ctx context.Context, rm *model.Room) error {
	const q = `UPDATE rooms
	           SET name = ?, capacity = ?, equipment = ?, location = ?, is_available = ?,
	               updated_at = UTC_TIMESTAMP()
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, rm.Name, rm.Capacity, rm.Equipment, rm.Location, rm.IsAvailable, rm.ID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrRoomNameExists
		}
		return transientErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Zero rows can also mean an identical update; confirm existence.
		if _, err := r.GetByID(ctx, rm.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a room.  Rooms with active bookings cannot be removed;
// that case returns ErrConflict so the handler can respond with 409.
func (r *RoomRepo) Delete(ctx context.Context, id uint64) error {
	const check = `SELECT COUNT(*) FROM bookings
	               WHERE room_id = ? AND status IN ('PENDING', 'CONFIRMED')`
	var active int
	if err := r.db.QueryRowContext(ctx, check, id).Scan(&active); err != nil {
		return transientErr(err)
	}
	if active > 0 {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return transientErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRoomNotFound
	}
	return nil
}
