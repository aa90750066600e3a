// Package router registers the HTTP routes of the service.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/seat-hold-reservation/internal/handler"
	"github.com/iliyamo/seat-hold-reservation/internal/middleware"
	"github.com/iliyamo/seat-hold-reservation/internal/utils"
)

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterReservations registers the customer flow.  rateLimit wraps the
// endpoints that take seats or talk to the gateway; seatCache wraps the
// seat map.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, rateLimit, seatCache echo.MiddlewareFunc) {
	rateLimit, seatCache = orNop(rateLimit), orNop(seatCache)
	v1 := e.Group("/v1")

	v1.GET("/events/:eventId/seats", h.SeatMap, seatCache)
	v1.POST("/events/:eventId/holds", h.CreateHold, rateLimit)

	r := v1.Group("/reservations/:id")
	r.GET("", h.Get)
	r.GET("/bookings", h.Bookings)
	r.PUT("/tickets", h.UpdateTickets)
	r.POST("/payment", h.BeginPayment, rateLimit)
	r.DELETE("", h.Cancel)
}

// RegisterPayments registers gateway callbacks.
func RegisterPayments(e *echo.Echo, h *handler.PaymentHandler) {
	g := e.Group("/v1/payments")
	g.POST("/callback", h.Callback)
	g.GET("/return", h.Return)
	g.POST("/webhook/stripe", h.StripeWebhook)
}

// RegisterSandbox serves the fake payment pages of the sandbox gateway.
func RegisterSandbox(e *echo.Echo, h *handler.PaymentHandler) {
	e.GET("/sandbox/pay/:paymentId", h.SandboxPay)
}

// RegisterAdmin registers operator endpoints.  They require a JWT signed
// with jwtSecret carrying role ADMIN.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RoleAdmin),
	)
	g.POST("/sweep", h.Sweep)
}

func orNop(m echo.MiddlewareFunc) echo.MiddlewareFunc {
	if m == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return m
}
