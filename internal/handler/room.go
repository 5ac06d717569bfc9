package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
	"github.com/iliyamo/meeting-room-reservation/internal/repository"
)

// RoomHandler serves the room catalog: public listing plus management
// endpoints for facility managers and admins.
type RoomHandler struct {
	Rooms *repository.RoomRepo
}

func NewRoomHandler(rooms *repository.RoomRepo) *RoomHandler {
	if rooms == nil {
		panic("nil repository passed to NewRoomHandler")
	}
	return &RoomHandler{Rooms: rooms}
}

type roomReq struct {
	Name        string  `json:"name"`
	Capacity    uint32  `json:"capacity"`
	Equipment   *string `json:"equipment"`
	Location    string  `json:"location"`
	IsAvailable *bool   `json:"is_available"` // omitted means true on create
}

type roomResp struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Capacity    uint32    `json:"capacity"`
	Equipment   *string   `json:"equipment,omitempty"`
	Location    string    `json:"location"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toRoomResp(rm *model.Room) roomResp {
	return roomResp{
		ID:          rm.ID,
		Name:        rm.Name,
		Capacity:    rm.Capacity,
		Equipment:   rm.Equipment,
		Location:    rm.Location,
		IsAvailable: rm.IsAvailable,
		CreatedAt:   rm.CreatedAt,
		UpdatedAt:   rm.UpdatedAt,
	}
}

// List returns every room, ordered by name.  Public.
func (h *RoomHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rooms, err := h.Rooms.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list rooms failed"})
	}
	out := make([]roomResp, 0, len(rooms))
	for _, rm := range rooms {
		out = append(out, toRoomResp(rm))
	}
	return c.JSON(http.StatusOK, echo.Map{"rooms": out})
}

// Get returns a single room by ID.  Public.
func (h *RoomHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rm, err := h.Rooms.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrRoomNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load room failed"})
	}
	return c.JSON(http.StatusOK, toRoomResp(rm))
}

// Create adds a new room.  Facility managers and admins only.
func (h *RoomHandler) Create(c echo.Context) error {
	var req roomReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	if req.Capacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be positive"})
	}
	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rm := &model.Room{
		Name:        req.Name,
		Capacity:    req.Capacity,
		Equipment:   req.Equipment,
		Location:    strings.TrimSpace(req.Location),
		IsAvailable: available,
	}
	if err := h.Rooms.Create(ctx, rm); err != nil {
		if err == repository.ErrRoomNameExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "room name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create room failed"})
	}
	return c.JSON(http.StatusCreated, toRoomResp(rm))
}

// Update rewrites a room's descriptive fields.  Flipping is_available
// to false stops new bookings without touching existing ones.
func (h *RoomHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	var req roomReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	if req.Capacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be positive"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rm, err := h.Rooms.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrRoomNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load room failed"})
	}
	rm.Name = req.Name
	rm.Capacity = req.Capacity
	rm.Equipment = req.Equipment
	rm.Location = strings.TrimSpace(req.Location)
	if req.IsAvailable != nil {
		rm.IsAvailable = *req.IsAvailable
	}
	if err := h.Rooms.Update(ctx, rm); err != nil {
		switch err {
		case repository.ErrRoomNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		case repository.ErrRoomNameExists:
			return c.JSON(http.StatusConflict, echo.Map{"error": "room name already exists"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update room failed"})
		}
	}
	return c.JSON(http.StatusOK, toRoomResp(rm))
}

// Delete removes a room that has no active bookings.
func (h *RoomHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Rooms.Delete(ctx, id); err != nil {
		switch err {
		case repository.ErrRoomNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "room has active bookings"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete room failed"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}
