package handler

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/seat-hold-reservation/internal/gateway"
	"github.com/iliyamo/seat-hold-reservation/internal/logger"
	"github.com/iliyamo/seat-hold-reservation/internal/service"
)

const maxWebhookBody = 64 << 10

// PaymentHandler receives payment outcomes from gateways and customers'
// browsers.
type PaymentHandler struct {
	recon         *service.PaymentReconciler
	webhookSecret string
	returnURL     string
}

// NewPaymentHandler builds the handler.  An empty webhookSecret disables the
// Stripe webhook; a non-empty returnURL makes the browser return redirect
// there instead of answering with JSON.
func NewPaymentHandler(recon *service.PaymentReconciler, webhookSecret, returnURL string) *PaymentHandler {
	return &PaymentHandler{recon: recon, webhookSecret: webhookSecret, returnURL: returnURL}
}

type callbackRequest struct {
	ExternalPaymentID string          `json:"external_payment_id" validate:"required_without=CorrelationKey"`
	CorrelationKey    string          `json:"correlation_key"`
	Verdict           gateway.Verdict `json:"verdict" validate:"required,oneof=success failure"`
	TransactionID     string          `json:"transaction_id"`
}

// Callback handles POST /v1/payments/callback.
func (h *PaymentHandler) Callback(c echo.Context) error {
	var req callbackRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	out, err := h.recon.Reconcile(c.Request().Context(), service.Callback{
		ExternalPaymentID: req.ExternalPaymentID,
		CorrelationKey:    req.CorrelationKey,
		Verdict:           req.Verdict,
		TransactionID:     req.TransactionID,
		Source:            "callback",
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Return handles GET /v1/payments/return, where the gateway sends the
// customer back with ?reservation_id=&payment_id=&status=.
func (h *PaymentHandler) Return(c echo.Context) error {
	paymentID := c.QueryParam("payment_id")
	reservationID := c.QueryParam("reservation_id")
	if paymentID == "" && reservationID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "payment_id or reservation_id is required")
	}
	verdict := gateway.VerdictFailure
	switch c.QueryParam("status") {
	case "success", "paid", "succeeded":
		verdict = gateway.VerdictSuccess
	}

	out, err := h.recon.Reconcile(c.Request().Context(), service.Callback{
		ExternalPaymentID: paymentID,
		CorrelationKey:    reservationID,
		Verdict:           verdict,
		Source:            "return",
	})
	if err != nil {
		if h.returnURL == "" || !errors.Is(err, service.ErrReservationNotFound) {
			return writeError(c, err)
		}
		out.ReservationID = reservationID
	}
	if h.returnURL == "" {
		return c.JSON(http.StatusOK, out)
	}
	q := url.Values{}
	q.Set("reservation_id", out.ReservationID)
	q.Set("success", strconv.FormatBool(out.Success))
	return c.Redirect(http.StatusSeeOther, appendQuery(h.returnURL, q))
}

// StripeWebhook handles POST /v1/payments/webhook/stripe.  A signed event
// that can never be applied (unknown reservation, wrong state) is
// acknowledged with 200 so Stripe stops retrying it.  Any other failure
// answers 500 and Stripe redelivers the event later.
func (h *PaymentHandler) StripeWebhook(c echo.Context) error {
	if h.webhookSecret == "" {
		return echo.NewHTTPError(http.StatusNotFound, "stripe webhook not configured")
	}
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}
	ev, err := gateway.ParseWebhook(payload, c.Request().Header.Get("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		logger.Warn("stripe webhook rejected", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid signature")
	}
	if !ev.Handled {
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}

	out, err := h.recon.Reconcile(c.Request().Context(), service.Callback{
		ExternalPaymentID: ev.ExternalID,
		CorrelationKey:    ev.CorrelationKey,
		Verdict:           ev.Verdict,
		TransactionID:     ev.TransactionID,
		Source:            "webhook",
	})
	if err != nil {
		fields := []zap.Field{zap.String("type", ev.Type), zap.String("session_id", ev.ExternalID), zap.Error(err)}
		if permanentWebhookError(err) {
			logger.Warn("stripe webhook not applied", fields...)
			return c.JSON(http.StatusOK, echo.Map{"received": true, "applied": false})
		}
		logger.Error("stripe webhook failed", fields...)
		return echo.NewHTTPError(http.StatusInternalServerError, "webhook not applied")
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true, "applied": true, "success": out.Success})
}

// permanentWebhookError reports whether redelivering the event cannot change
// the outcome.
func permanentWebhookError(err error) bool {
	return errors.Is(err, service.ErrReservationNotFound) ||
		errors.Is(err, service.ErrInvalidTransition) ||
		errors.Is(err, service.ErrHoldExpired)
}

func appendQuery(base string, q url.Values) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	cur := u.Query()
	for k, vs := range q {
		for _, v := range vs {
			cur.Set(k, v)
		}
	}
	u.RawQuery = cur.Encode()
	return u.String()
}

// SandboxPay handles GET /sandbox/pay/:paymentId, the page the sandbox
// gateway hands out.  It plays the provider: ?outcome=failure declines,
// anything else pays, and the customer is sent on to the return endpoint.
func (h *PaymentHandler) SandboxPay(c echo.Context) error {
	status := "success"
	if c.QueryParam("outcome") == "failure" {
		status = "failed"
	}
	q := url.Values{}
	q.Set("payment_id", c.Param("paymentId"))
	q.Set("reservation_id", c.QueryParam("reservation_id"))
	q.Set("status", status)
	return c.Redirect(http.StatusFound, "/v1/payments/return?"+q.Encode())
}
