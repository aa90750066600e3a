// Package gateway adapts external payment providers to the reservation flow.
package gateway

import (
	"context"
	"errors"
)

// ErrDeclined is returned by a gateway that refuses to open a payment.
var ErrDeclined = errors.New("payment intent declined")

// IntentRequest describes the payment page to open.  Amount is in the
// smallest currency unit.  CorrelationID is the reservation id; the
// gateway echoes it back in callbacks.
type IntentRequest struct {
	Amount        int64
	Currency      string
	CorrelationID string
	Description   string
	CustomerEmail string
}

// Intent is an opened payment page.
type Intent struct {
	PaymentURL string
	ExternalID string
}

// Verdict is the outcome a gateway reports for a payment.
type Verdict string

const (
	VerdictSuccess Verdict = "success"
	VerdictFailure Verdict = "failure"
)

// Valid reports whether v is a known verdict.
func (v Verdict) Valid() bool { return v == VerdictSuccess || v == VerdictFailure }

// PaymentGateway opens payment pages at a provider.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	Name() string
}
