// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/handler"
	"github.com/iliyamo/event-booking/internal/middleware"
)

// RegisterRoutes registers routes that need no authentication.
// Currently that is only the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterBookings registers the booking API under /v1.  Every route
// requires a valid access token and a USER or ADMIN role; the listing
// of all bookings is additionally restricted to admins.  The token
// bucket limiter runs before authentication so unauthenticated floods
// are shed early.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	g := e.Group("/v1")
	g.Use(middleware.NewTokenBucket(rlCfg, rdb))
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("USER", "ADMIN"))

	g.GET("/bookings", h.Get) // ?id=
	g.GET("/bookings/all", h.ListAll, middleware.RequireRole("ADMIN"))
	g.GET("/bookings/my", h.ListMine)
	g.GET("/bookings/:id", h.Get)
	g.POST("/bookings", h.Create)
	g.PATCH("/bookings/:id", h.Update)
	g.DELETE("/bookings", h.Delete) // ?id=
	g.POST("/bookings/:id/confirm", h.Confirm)
	g.POST("/bookings/:id/cancel", h.Cancel)
}
