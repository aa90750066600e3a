package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-hold-reservation/internal/model"
	"github.com/iliyamo/seat-hold-reservation/internal/service"
)

// ReservationHandler serves holds, ticket assignment, payment redirects and
// reservation reads.
type ReservationHandler struct {
	manager *service.ReservationManager
}

func NewReservationHandler(manager *service.ReservationManager) *ReservationHandler {
	return &ReservationHandler{manager: manager}
}

type holdRequest struct {
	SeatIDs     []string        `json:"seat_ids" validate:"required,min=1,max=50,dive,required"`
	HoldSeconds int             `json:"hold_seconds" validate:"gte=0"`
	Customer    *model.Customer `json:"customer"`
}

// reservationView adds the state name next to its numeric code.
type reservationView struct {
	*model.Reservation
	StateName string `json:"state_name"`
}

func viewOf(r *model.Reservation) reservationView {
	return reservationView{Reservation: r, StateName: r.State.String()}
}

// CreateHold handles POST /v1/events/:eventId/holds.
func (h *ReservationHandler) CreateHold(c echo.Context) error {
	var req holdRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	res, err := h.manager.CreateHold(c.Request().Context(), service.CreateHoldInput{
		EventID:      c.Param("eventId"),
		SeatIDs:      req.SeatIDs,
		HoldDuration: time.Duration(req.HoldSeconds) * time.Second,
		Customer:     req.Customer,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"reservation_id": res.ID,
		"seat_ids":       res.SeatIDs,
		"expires_at":     res.ExpiresAt,
		"price_estimate": res.Price,
	})
}

// SeatMap handles GET /v1/events/:eventId/seats.
func (h *ReservationHandler) SeatMap(c echo.Context) error {
	eventID := c.Param("eventId")
	seats, err := h.manager.SeatMap(c.Request().Context(), eventID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"event_id": eventID, "seats": seats})
}

type ticketsRequest struct {
	Assignments []struct {
		SeatID   string         `json:"seat_id" validate:"required"`
		AgeClass model.AgeClass `json:"age_class" validate:"required,oneof=adult child"`
	} `json:"assignments" validate:"dive"`
}

// UpdateTickets handles PUT /v1/reservations/:id/tickets.
func (h *ReservationHandler) UpdateTickets(c echo.Context) error {
	var req ticketsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	assignments := make(map[string]model.AgeClass, len(req.Assignments))
	for _, a := range req.Assignments {
		assignments[a.SeatID] = a.AgeClass
	}
	res, err := h.manager.UpdateTickets(c.Request().Context(), c.Param("id"), assignments)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reservation_id": res.ID,
		"price_estimate": res.Price,
		"tickets":        res.Tickets,
	})
}

type paymentRequest struct {
	Customer *model.Customer `json:"customer"`
}

// BeginPayment handles POST /v1/reservations/:id/payment.
func (h *ReservationHandler) BeginPayment(c echo.Context) error {
	var req paymentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	res, err := h.manager.BeginGatewayRedirect(c.Request().Context(), c.Param("id"), req.Customer)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reservation_id":      res.ID,
		"payment_url":         *res.PaymentURL,
		"external_payment_id": *res.PaymentID,
	})
}

// Cancel handles DELETE /v1/reservations/:id.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	if err := h.manager.Cancel(c.Request().Context(), c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation_id": c.Param("id"), "cancelled": true})
}

// Get handles GET /v1/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
	res, err := h.manager.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(res))
}

// Bookings handles GET /v1/reservations/:id/bookings.
func (h *ReservationHandler) Bookings(c echo.Context) error {
	bookings, err := h.manager.Bookings(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation_id": c.Param("id"), "bookings": bookings})
}
