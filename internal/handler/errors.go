package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/seat-hold-reservation/internal/logger"
	"github.com/iliyamo/seat-hold-reservation/internal/service"
)

// writeError renders a service error as JSON with the matching status.
// *echo.HTTPError values are returned unchanged for CustomHTTPErrorHandler.
func writeError(c echo.Context, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	if seats, kind, ok := service.SeatsOf(err); ok {
		if kind == service.SeatNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "seats not found", "not_found": seats})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "some seats are unavailable", "unavailable": seats})
	}

	switch {
	case errors.Is(err, service.ErrEmptySeatList):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrEventNotFound), errors.Is(err, service.ErrReservationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrHoldExpired),
		errors.Is(err, service.ErrSaleClosed):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrUpstream):
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment gateway unavailable"})
	}

	logger.Error("request failed",
		zap.String("path", c.Request().URL.Path),
		zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
		zap.Error(err),
	)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
