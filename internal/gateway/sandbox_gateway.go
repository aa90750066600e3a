package gateway

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// SandboxGateway opens fake payment pages without leaving the process.  It
// is the default gateway in development and in tests; callbacks are sent
// to POST /v1/payments/callback by whoever plays the provider.
type SandboxGateway struct {
	baseURL string
	fail    bool
}

// SandboxConfig configures a SandboxGateway.
type SandboxConfig struct {
	BaseURL string // payment page base, the intent id and reservation are appended
	Fail    bool   // decline every intent
}

// NewSandboxGateway returns a sandbox gateway.
func NewSandboxGateway(cfg SandboxConfig) *SandboxGateway {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "http://localhost:8080/sandbox/pay"
	}
	return &SandboxGateway{baseURL: base, fail: cfg.Fail}
}

// CreatePaymentIntent returns a new intent id prefixed with "sbx_".
func (g *SandboxGateway) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.CorrelationID == "" {
		return nil, fmt.Errorf("correlation id is required")
	}
	if req.Amount < 0 {
		return nil, fmt.Errorf("invalid amount %d", req.Amount)
	}
	if g.fail {
		return nil, ErrDeclined
	}
	id := "sbx_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	q := url.Values{}
	q.Set("reservation_id", req.CorrelationID)
	q.Set("amount", fmt.Sprintf("%d", req.Amount))
	q.Set("currency", req.Currency)
	return &Intent{
		PaymentURL: g.baseURL + "/" + id + "?" + q.Encode(),
		ExternalID: id,
	}, nil
}

// Name returns the gateway name.
func (g *SandboxGateway) Name() string { return "sandbox" }
