package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// SweepRunner runs one expiry sweep.
type SweepRunner interface {
	SweepNow(ctx context.Context) (expired, released int, err error)
}

// AdminHandler serves operator endpoints behind the ADMIN role.
type AdminHandler struct {
	sweeper SweepRunner
}

func NewAdminHandler(s SweepRunner) *AdminHandler {
	return &AdminHandler{sweeper: s}
}

// Sweep handles POST /v1/admin/sweep.
func (h *AdminHandler) Sweep(c echo.Context) error {
	expired, released, err := h.sweeper.SweepNow(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"expired": expired, "released": released})
}
