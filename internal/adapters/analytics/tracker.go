// Package analytics records product funnel events. Events are written to a
// dedicated logger; shipping them elsewhere is left to the log pipeline.
package analytics

import "go.uber.org/zap"

// Event is a funnel step.
type Event string

const (
	PaywallViewed          Event = "paywall_viewed"
	PayClicked             Event = "pay_clicked"
	PaymentSuccess         Event = "payment_success"
	PaymentFailOrCancel    Event = "payment_fail_or_cancel"
	FakedoorClicked        Event = "fakedoor_clicked"
	FakedoorEmailSubmitted Event = "fakedoor_email_submitted"
)

// Tracker emits events. A nil *Tracker drops them.
type Tracker struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{log: log.Named("analytics")}
}

// Track emits event with optional properties.
func (t *Tracker) Track(event Event, props ...zap.Field) {
	if t == nil {
		return
	}
	t.log.Info(string(event), props...)
}
