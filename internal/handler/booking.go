package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/meeting-room-reservation/internal/booking"
	"github.com/iliyamo/meeting-room-reservation/internal/model"
	"github.com/iliyamo/meeting-room-reservation/internal/queue"
	"github.com/iliyamo/meeting-room-reservation/internal/repository"
	queue_publisher "github.com/iliyamo/meeting-room-reservation/internal/service"
)

// BookingHandler serves availability checks and the booking lifecycle.
// The handler is a thin HTTP skin: every rule (overlap detection, state
// transitions, ownership, cancellation deadline) lives in the booking
// package, which makes its outcome sentinels the contract this file
// maps onto HTTP statuses.
type BookingHandler struct {
	Manager  *booking.Manager
	Checker  *booking.Checker
	Bookings *repository.BookingRepo
	Rooms    *repository.RoomRepo
}

func NewBookingHandler(m *booking.Manager, ch *booking.Checker, b *repository.BookingRepo, r *repository.RoomRepo) *BookingHandler {
	if m == nil || ch == nil || b == nil || r == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Manager: m, Checker: ch, Bookings: b, Rooms: r}
}

type bookingReq struct {
	RoomID    uint64    `json:"room_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type bookingResp struct {
	ID        uint64    `json:"id"`
	RoomID    uint64    `json:"room_id"`
	GuestID   uint64    `json:"guest_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toBookingResp(b *model.Booking) bookingResp {
	return bookingResp{
		ID:        b.ID,
		RoomID:    b.RoomID,
		GuestID:   b.GuestID,
		StartTime: b.Interval.Start,
		EndTime:   b.Interval.End,
		Status:    string(b.Status),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

// CheckAvailability answers whether a room is free for the requested
// window.  Query params `start` and `end` are RFC 3339 timestamps.  The
// answer is advisory: the authoritative check happens when a booking is
// actually requested.
func (h *BookingHandler) CheckAvailability(c echo.Context) error {
	roomID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	start, err := time.Parse(time.RFC3339, c.QueryParam("start"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start (RFC 3339 expected)"})
	}
	end, err := time.Parse(time.RFC3339, c.QueryParam("end"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end (RFC 3339 expected)"})
	}
	iv, err := model.NewTimeInterval(start, end)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start must be before end"})
	}

	free, err := h.Checker.IsAvailable(c.Request().Context(), roomID, iv)
	if err != nil {
		if errors.Is(err, booking.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "availability check failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"room_id":    roomID,
		"start_time": iv.Start,
		"end_time":   iv.End,
		"available":  free,
	})
}

// Create requests a booking for the authenticated guest.  A confirmed
// booking comes back as 201; an interval conflict is a normal outcome
// and comes back as 409 with the rejected booking in the body so the
// client can see the recorded attempt.
func (h *BookingHandler) Create(c echo.Context) error {
	guestID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req bookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	iv, err := model.NewTimeInterval(req.StartTime, req.EndTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time must be before end_time"})
	}

	b, err := h.Manager.RequestBooking(c.Request().Context(), req.RoomID, guestID, iv)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrPastStart):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time must be in the future"})
		case errors.Is(err, booking.ErrRoomNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		case errors.Is(err, model.ErrInvalidInterval):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid interval"})
		case errors.Is(err, booking.ErrStoreUnavailable):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "storage unavailable, try again"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
		}
	}

	if b.Status == model.StatusRejected {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":   "room already booked for this interval",
			"booking": toBookingResp(b),
		})
	}

	// Publish outside the reservation path; a broker outage must not
	// fail the booking.
	go h.publishEvent(queue.EventBookingConfirmed, b)

	return c.JSON(http.StatusCreated, toBookingResp(b))
}

// List returns the caller's bookings.  Admins and facility managers may
// pass ?all=true to see everyone's.
func (h *BookingHandler) List(c echo.Context) error {
	guestID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var list []*model.Booking
	role := getRole(c)
	if c.QueryParam("all") == "true" && (role == model.RoleAdmin || role == model.RoleFacilityManager) {
		list, err = h.Bookings.ListAll(ctx)
	} else {
		list, err = h.Bookings.ListByGuest(ctx, guestID)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list bookings failed"})
	}
	out := make([]bookingResp, 0, len(list))
	for _, b := range list {
		out = append(out, toBookingResp(b))
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// Get returns one booking.  Guests only see their own; admins see any.
func (h *BookingHandler) Get(c echo.Context) error {
	guestID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	b, err := h.Manager.Booking(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, booking.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load booking failed"})
	}
	if b.GuestID != guestID && getRole(c) != model.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// Reschedule moves an active booking to a new window.  Guests move
// their own bookings; admins may move anyone's.  A window that clashes
// with another booking comes back as 409 and the original reservation
// stays in place.
func (h *BookingHandler) Reschedule(c echo.Context) error {
	guestID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req bookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	iv, err := model.NewTimeInterval(req.StartTime, req.EndTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time must be before end_time"})
	}
	force := getRole(c) == model.RoleAdmin

	b, err := h.Manager.RescheduleBooking(c.Request().Context(), id, guestID, force, iv)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrPastStart):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time must be in the future"})
		case errors.Is(err, booking.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, booking.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your booking"})
		case errors.Is(err, booking.ErrAlreadyTerminal):
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not active"})
		case errors.Is(err, booking.ErrConflict), errors.Is(err, booking.ErrStaleBooking):
			return c.JSON(http.StatusConflict, echo.Map{"error": "room already booked for this interval"})
		case errors.Is(err, booking.ErrStoreUnavailable):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "storage unavailable, try again"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reschedule failed"})
		}
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// Cancel cancels a confirmed booking.  Guests cancel their own before
// the stay starts; admins may cancel anyone's.
func (h *BookingHandler) Cancel(c echo.Context) error {
	guestID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	force := getRole(c) == model.RoleAdmin

	if err := h.Manager.CancelBooking(c.Request().Context(), id, guestID, force); err != nil {
		switch {
		case errors.Is(err, booking.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, booking.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your booking"})
		case errors.Is(err, booking.ErrAlreadyTerminal):
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not cancellable"})
		case errors.Is(err, booking.ErrCancelTooLate):
			return c.JSON(http.StatusConflict, echo.Map{"error": "stay already started"})
		case errors.Is(err, booking.ErrStoreUnavailable):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "storage unavailable, try again"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
		}
	}

	if b, err := h.Manager.Booking(c.Request().Context(), id); err == nil {
		go h.publishEvent(queue.EventBookingCancelled, b)
	}

	return c.NoContent(http.StatusNoContent)
}

// publishEvent sends a booking event to the broker on a best-effort
// basis.  The room name is looked up for readability in downstream
// logs; failures there just leave the field empty.
func (h *BookingHandler) publishEvent(event string, b *model.Booking) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	roomName := ""
	if rm, err := h.Rooms.GetByID(ctx, b.RoomID); err == nil {
		roomName = rm.Name
	}
	_ = queue_publisher.PublishBookingEvent(ctx, queue.BookingEvent{
		Event:      event,
		BookingID:  b.ID,
		GuestID:    b.GuestID,
		RoomID:     b.RoomID,
		RoomName:   roomName,
		StartsAt:   b.Interval.Start.Format(time.RFC3339),
		EndsAt:     b.Interval.End.Format(time.RFC3339),
		Status:     string(b.Status),
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	})
}
