package notification

import (
	"github.com/oksasatya/go-ddd-private-messages/config"
	"github.com/oksasatya/go-ddd-private-messages/pkg/mailer"
)

// NewSender favours the queued mailer and falls back to sending through
// Mailgun directly. pub may be nil when RabbitMQ is unavailable.
func NewSender(cfg *config.Config, pub mailer.Publisher) mailer.Sender {
	if cfg == nil || !cfg.MailSendEnabled {
		return mailer.NopSender{}
	}
	if cfg.MailQueueEnabled && pub != nil {
		return mailer.NewQueueSender(pub)
	}
	if cfg.MailgunConfigured() {
		return mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender, cfg.MailgunAPIBase)
	}
	return mailer.NopSender{}
}
