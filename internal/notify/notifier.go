// Package notify sends booking notifications to customers.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/seat-hold-reservation/internal/logger"
)

// Notifier delivers a templated message to a phone number.  It reports
// whether delivery succeeded and never returns errors; callers treat
// notifications as best effort.
type Notifier interface {
	Notify(ctx context.Context, phone string, args map[string]string) bool
}

// LogNotifier writes notifications to the structured log instead of an SMS
// provider.
type LogNotifier struct {
	log *zap.Logger
}

// NewLogNotifier returns a LogNotifier on the global logger.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logger.With(zap.String("component", "notifier"))}
}

func (n *LogNotifier) Notify(_ context.Context, phone string, args map[string]string) bool {
	n.log.Info("booking confirmed notification",
		zap.String("phone", maskPhone(phone)),
		zap.Any("args", args),
	)
	return true
}

// maskPhone keeps the last four digits.
func maskPhone(p string) string {
	if len(p) <= 4 {
		return "****"
	}
	return "****" + p[len(p)-4:]
}
