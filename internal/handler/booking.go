// Package handler exposes the booking API over HTTP.  Handlers parse and
// authorize requests, delegate every decision to the admission service,
// and translate its sentinel errors into status codes.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/eventclient"
	"github.com/iliyamo/event-booking/internal/lock"
	"github.com/iliyamo/event-booking/internal/repository"
	"github.com/iliyamo/event-booking/internal/service"
)

// BookingHandler serves the booking endpoints.  All methods assume JWT
// authentication ran first; ownership is enforced per booking: a caller
// may only touch a booking they created unless their role is ADMIN.
type BookingHandler struct {
	svc *service.AdmissionService
}

// NewBookingHandler constructs a BookingHandler. The service must be non-nil.
func NewBookingHandler(svc *service.AdmissionService) *BookingHandler {
	if svc == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{svc: svc}
}

// Get handles GET /v1/bookings/:id and GET /v1/bookings?id=.
func (h *BookingHandler) Get(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	if !mayAccess(c, b.UserID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, b)
}

// ListAll handles GET /v1/bookings/all.  Admin only (enforced by route
// middleware).
func (h *BookingHandler) ListAll(c echo.Context) error {
	bookings, err := h.svc.ListAll(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": bookings})
}

// ListMine handles GET /v1/bookings/my and returns the caller's bookings.
func (h *BookingHandler) ListMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookings, err := h.svc.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": bookings})
}

// Create handles POST /v1/bookings.  The booking is made for the
// authenticated user; an admin may book on behalf of another user by
// supplying user_id.
func (h *BookingHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		EventID uint64 `json:"event_id"`
		UserID  uint64 `json:"user_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.EventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_id is required"})
	}
	if body.UserID != 0 && body.UserID != userID {
		if !isAdmin(c) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		userID = body.UserID
	}
	b, err := h.svc.Create(c.Request().Context(), userID, body.EventID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Update handles PATCH /v1/bookings/:id.  Only the event reference and
// booking time can change; status is owned by the admission flow.
func (h *BookingHandler) Update(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var body struct {
		EventID     uint64     `json:"event_id"`
		BookingTime *time.Time `json:"booking_time"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if !h.authorize(c, id) {
		return nil
	}
	b, err := h.svc.Update(c.Request().Context(), id, body.EventID, body.BookingTime)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Delete handles DELETE /v1/bookings?id= and returns the removed booking.
func (h *BookingHandler) Delete(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	if !h.authorize(c, id) {
		return nil
	}
	b, err := h.svc.Delete(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Confirm handles POST /v1/bookings/:id/confirm.
func (h *BookingHandler) Confirm(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	if !h.authorize(c, id) {
		return nil
	}
	b, err := h.svc.Confirm(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Cancel handles POST /v1/bookings/:id/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	if !h.authorize(c, id) {
		return nil
	}
	b, err := h.svc.Cancel(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// authorize loads the booking and verifies the caller owns it or is an
// admin.  On failure it writes the error response itself and reports
// false; the caller must stop without writing anything further.  A
// boolean is used rather than the written error because a successful
// response write returns nil, which would read as "authorized".
func (h *BookingHandler) authorize(c echo.Context, id uint64) bool {
	b, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		_ = writeServiceError(c, err)
		return false
	}
	if !mayAccess(c, b.UserID) {
		_ = c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		return false
	}
	return true
}

// bookingID reads the booking identifier from the :id path parameter or,
// when absent, from the id query parameter.
func bookingID(c echo.Context) (uint64, error) {
	raw := c.Param("id")
	if raw == "" {
		raw = c.QueryParam("id")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid booking id")
	}
	return id, nil
}

// getUserID extracts the authenticated user's ID from the context.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

func isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == "ADMIN"
}

// mayAccess reports whether the caller may operate on a booking owned by
// ownerID: admins always, everyone else only on their own bookings.
func mayAccess(c echo.Context, ownerID uint64) bool {
	if isAdmin(c) {
		return true
	}
	userID, err := getUserID(c)
	return err == nil && userID == ownerID
}

// writeServiceError maps sentinel errors from the lower layers onto
// HTTP responses.  Anything unrecognized becomes a 500.
func writeServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, lock.ErrBusy):
		return c.JSON(http.StatusConflict, echo.Map{"error": "event is busy, retry shortly"})
	case errors.Is(err, service.ErrEventFull):
		return c.JSON(http.StatusConflict, echo.Map{"error": "event full"})
	case errors.Is(err, service.ErrLockLost):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflicting update in progress, retry shortly"})
	case errors.Is(err, service.ErrBookingCancelled):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking is cancelled"})
	case errors.Is(err, service.ErrEventInactive):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "event is not active"})
	case errors.Is(err, eventclient.ErrUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "event service unavailable"})
	default:
		c.Logger().Errorf("booking handler: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
