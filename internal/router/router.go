package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/meeting-room-reservation/internal/handler"
	"github.com/iliyamo/meeting-room-reservation/internal/middleware"
	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and monitoring systems poll this to verify the
	// service is up.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies
// the necessary middleware.  Unauthenticated operations live under
// /v1/auth, while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Refresh rotates the refresh token; refresh-access issues a new
	// access token without rotating.
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout does not require JWT authentication: a refresh token in the
	// body is enough to terminate a single session, a bearer without a
	// body token terminates them all.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)

	// Same handler outside the auth group so either path works.
	e.POST("/v1/logout", a.Logout)
}

// RegisterPublic registers the unauthenticated browse endpoints: the
// room catalog, per-room reviews and availability lookups.  cache, when
// non-nil, wraps the catalog listings; availability answers are never
// cached because they go stale the moment a booking lands.
func RegisterPublic(e *echo.Echo, rooms *handler.RoomHandler, reviews *handler.ReviewHandler, bookings *handler.BookingHandler, cache echo.MiddlewareFunc) {
	if cache != nil {
		e.GET("/v1/rooms", rooms.List, cache)
		e.GET("/v1/rooms/:id", rooms.Get, cache)
		e.GET("/v1/rooms/:id/reviews", reviews.ListByRoom, cache)
	} else {
		e.GET("/v1/rooms", rooms.List)
		e.GET("/v1/rooms/:id", rooms.Get)
		e.GET("/v1/rooms/:id/reviews", reviews.ListByRoom)
	}
	e.GET("/v1/rooms/:id/availability", bookings.CheckAvailability)
}

// RegisterBookings registers the booking lifecycle and review-writing
// endpoints.  Everything here requires a valid access token; any
// authenticated role may book.
func RegisterBookings(e *echo.Echo, b *handler.BookingHandler, rv *handler.ReviewHandler, jwtSecret string) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))

	g.POST("/bookings", b.Create)
	g.GET("/bookings", b.List)
	g.GET("/bookings/:id", b.Get)
	g.PATCH("/bookings/:id", b.Reschedule)
	g.DELETE("/bookings/:id", b.Cancel)

	g.POST("/reviews", rv.Create)
	g.PATCH("/reviews/:id", rv.Update)
}

// RegisterManagement registers room administration for facility
// managers and admins, plus the admin-only review moderation actions.
func RegisterManagement(e *echo.Echo, rooms *handler.RoomHandler, reviews *handler.ReviewHandler, jwtSecret string) {
	mgmt := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleFacilityManager, model.RoleAdmin))
	mgmt.POST("/rooms", rooms.Create)
	mgmt.PUT("/rooms/:id", rooms.Update)
	mgmt.DELETE("/rooms/:id", rooms.Delete)

	admin := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin))
	admin.DELETE("/reviews/:id", reviews.Delete)
	admin.POST("/reviews/:id/restore", reviews.Restore)
	admin.POST("/reviews/:id/flag", reviews.Flag)
	admin.DELETE("/reviews/:id/flag", reviews.Unflag)
}
