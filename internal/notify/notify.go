// Package notify sends best-effort operational notifications. Delivery
// failures are logged and never affect order correctness.
package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// Notifier is a fire-and-forget sink for human-readable order summaries.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// NopNotifier discards every message.
type NopNotifier struct{}

// Send implements Notifier.
func (NopNotifier) Send(context.Context, string) error { return nil }

// WhatsAppConfig holds the WhatsApp Cloud API settings.
type WhatsAppConfig struct {
	PhoneNumberID string
	AccessToken   string
	To            string
	BaseURL       string
}

// New returns the WhatsApp sink when fully configured, or a NopNotifier
// otherwise so callers never need to nil-check.
func New(cfg WhatsAppConfig, logger zerolog.Logger) Notifier {
	if cfg.PhoneNumberID == "" || cfg.AccessToken == "" || cfg.To == "" {
		logger.Warn().Msg("whatsapp notifications disabled: missing WA_PHONE_NUMBER_ID, WA_ACCESS_TOKEN or WA_TO")
		return NopNotifier{}
	}
	return NewWhatsApp(cfg, logger)
}
