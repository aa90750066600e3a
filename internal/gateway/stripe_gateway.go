package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeGateway opens Stripe Checkout Sessions.  The reservation id travels
// as client_reference_id and as metadata, so webhooks can be matched back
// even when one of them is missing.
type StripeGateway struct {
	config *StripeGatewayConfig
}

// StripeGatewayConfig holds configuration for the Stripe gateway.
type StripeGatewayConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

// NewStripeGateway creates a Stripe gateway and sets the API key.
func NewStripeGateway(config *StripeGatewayConfig) (*StripeGateway, error) {
	if config == nil {
		return nil, fmt.Errorf("stripe config is required")
	}
	if config.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}
	stripe.Key = config.SecretKey
	return &StripeGateway{config: config}, nil
}

// CreatePaymentIntent creates a Checkout Session in payment mode.
func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if req.CorrelationID == "" {
		return nil, fmt.Errorf("correlation id is required")
	}
	desc := req.Description
	if desc == "" {
		desc = "Reservation " + req.CorrelationID
	}
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(req.CorrelationID),
		SuccessURL:        stripe.String(withReservation(g.config.SuccessURL, req.CorrelationID)),
		CancelURL:         stripe.String(withReservation(g.config.CancelURL, req.CorrelationID)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(req.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(desc),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{"reservation_id": req.CorrelationID},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &Intent{PaymentURL: s.URL, ExternalID: s.ID}, nil
}

// Name returns the gateway name.
func (g *StripeGateway) Name() string { return "stripe" }

// WebhookEvent is the part of a Stripe webhook the reconciler needs.
// Handled is false for event types that carry no verdict.
type WebhookEvent struct {
	Type           string
	Handled        bool
	Verdict        Verdict
	ExternalID     string // checkout session id
	CorrelationKey string // reservation id, when echoed
	TransactionID  string // payment intent id, when present
}

// ParseWebhook verifies the Stripe-Signature header and extracts the
// verdict of checkout session events.
func ParseWebhook(payload []byte, sigHeader, secret string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("verify webhook: %w", err)
	}
	out := &WebhookEvent{Type: string(event.Type)}
	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		out.Verdict = VerdictSuccess
	case "checkout.session.async_payment_failed", "checkout.session.expired":
		out.Verdict = VerdictFailure
	default:
		return out, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	// A completed session with a delayed payment method is not paid yet.
	if event.Type == "checkout.session.completed" && cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		return out, nil
	}
	out.Handled = true
	out.ExternalID = cs.ID
	out.CorrelationKey = cs.ClientReferenceID
	if out.CorrelationKey == "" {
		out.CorrelationKey = cs.Metadata["reservation_id"]
	}
	if cs.PaymentIntent != nil {
		out.TransactionID = cs.PaymentIntent.ID
	}
	return out, nil
}

func withReservation(u, reservationID string) string {
	if u == "" {
		return u
	}
	sep := "?"
	for _, c := range u {
		if c == '?' {
			sep = "&"
			break
		}
	}
	return u + sep + "reservation_id=" + reservationID + "&session_id={CHECKOUT_SESSION_ID}"
}
