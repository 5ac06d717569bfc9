package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/meeting-room-reservation/internal/booking"
	"github.com/iliyamo/meeting-room-reservation/internal/model"
	"github.com/iliyamo/meeting-room-reservation/internal/repository"
)

// ReviewHandler serves review creation and editing, room review
// listings and the admin moderation actions (soft delete, restore,
// flag, unflag).
type ReviewHandler struct {
	Gate    *booking.Gate
	Reviews *repository.ReviewRepo
}

func NewReviewHandler(g *booking.Gate, r *repository.ReviewRepo) *ReviewHandler {
	if g == nil || r == nil {
		panic("nil dependency passed to NewReviewHandler")
	}
	return &ReviewHandler{Gate: g, Reviews: r}
}

type reviewReq struct {
	BookingID uint64  `json:"booking_id"`
	Rating    uint8   `json:"rating"`
	Comment   *string `json:"comment"`
}

type reviewResp struct {
	ID        uint64    `json:"id"`
	BookingID uint64    `json:"booking_id"`
	GuestID   uint64    `json:"guest_id"`
	RoomID    uint64    `json:"room_id"`
	Rating    uint8     `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	Flagged   bool      `json:"flagged"`
	CreatedAt time.Time `json:"created_at"`
}

func toReviewResp(rv *model.Review) reviewResp {
	return reviewResp{
		ID:        rv.ID,
		BookingID: rv.BookingID,
		GuestID:   rv.GuestID,
		RoomID:    rv.RoomID,
		Rating:    rv.Rating,
		Comment:   rv.Comment,
		Flagged:   rv.Flagged,
		CreatedAt: rv.CreatedAt,
	}
}

// Create attaches a review to one of the caller's completed bookings.
func (h *ReviewHandler) Create(c echo.Context) error {
	guestID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	rv, err := h.Gate.AttachReview(c.Request().Context(), req.BookingID, guestID, req.Rating, req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrInvalidRating):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "rating must be between 1 and 5"})
		case errors.Is(err, booking.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, booking.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your booking"})
		case errors.Is(err, booking.ErrNotCompleted):
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not completed"})
		case errors.Is(err, booking.ErrAlreadyReviewed):
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking already reviewed"})
		case errors.Is(err, booking.ErrStoreUnavailable):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "storage unavailable, try again"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create review failed"})
		}
	}
	return c.JSON(http.StatusCreated, toReviewResp(rv))
}

// Update rewrites a review's rating and comment.  Authors edit their
// own reviews; admins may edit anyone's.  Soft-deleted reviews are
// frozen until restored.
func (h *ReviewHandler) Update(c echo.Context) error {
	guestID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid review id"})
	}
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	force := getRole(c) == model.RoleAdmin

	rv, err := h.Gate.EditReview(c.Request().Context(), id, guestID, force, req.Rating, req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrInvalidRating):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "rating must be between 1 and 5"})
		case errors.Is(err, booking.ErrReviewNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "review not found"})
		case errors.Is(err, booking.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your review"})
		case errors.Is(err, booking.ErrReviewDeleted):
			return c.JSON(http.StatusConflict, echo.Map{"error": "review is deleted"})
		case errors.Is(err, booking.ErrStoreUnavailable):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "storage unavailable, try again"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update review failed"})
		}
	}
	return c.JSON(http.StatusOK, toReviewResp(rv))
}

// ListByRoom returns the visible reviews for a room, newest first.
// Public.
func (h *ReviewHandler) ListByRoom(c echo.Context) error {
	roomID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Reviews.ListByRoom(ctx, roomID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list reviews failed"})
	}
	out := make([]reviewResp, 0, len(list))
	for _, rv := range list {
		out = append(out, toReviewResp(rv))
	}
	return c.JSON(http.StatusOK, echo.Map{"reviews": out})
}

// Delete soft-deletes a review.  Admin moderation; the row is kept so
// the review can be restored and the booking stays reviewed.
func (h *ReviewHandler) Delete(c echo.Context) error {
	return h.moderate(c, func(ctx context.Context, id uint64) error {
		return h.Reviews.SetDeleted(ctx, id, true)
	})
}

// Restore brings a soft-deleted review back.  Admin moderation.
func (h *ReviewHandler) Restore(c echo.Context) error {
	return h.moderate(c, func(ctx context.Context, id uint64) error {
		return h.Reviews.SetDeleted(ctx, id, false)
	})
}

// Flag marks a review for moderation attention.  Admin only.
func (h *ReviewHandler) Flag(c echo.Context) error {
	return h.moderate(c, func(ctx context.Context, id uint64) error {
		return h.Reviews.SetFlagged(ctx, id, true)
	})
}

// Unflag clears the moderation flag.  Admin only.
func (h *ReviewHandler) Unflag(c echo.Context) error {
	return h.moderate(c, func(ctx context.Context, id uint64) error {
		return h.Reviews.SetFlagged(ctx, id, false)
	})
}

func (h *ReviewHandler) moderate(c echo.Context, op func(context.Context, uint64) error) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid review id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := op(ctx, id); err != nil {
		if err == repository.ErrReviewNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "review not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "moderation failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
