package mailer

import (
	"context"
	"errors"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

// SendTimeout bounds a single Mailgun API call.
const SendTimeout = 10 * time.Second

// Mailgun delivers email through the Mailgun HTTP API.
type Mailgun struct {
	Sender string
	Tag    string
	client *mg.MailgunImpl
}

// NewMailgun builds a sender for domain. apiBase selects the region and is
// optional, e.g. mg.APIBaseEU.
func NewMailgun(domain, apiKey, sender, apiBase string) *Mailgun {
	client := mg.NewMailgun(domain, apiKey)
	if apiBase != "" {
		client.SetAPIBase(apiBase)
	}
	return &Mailgun{Sender: sender, Tag: "private-message", client: client}
}

// Send delivers e. e.From overrides the configured sender and HTML is
// optional.
func (m *Mailgun) Send(ctx context.Context, e Email) error {
	if len(e.To) == 0 {
		return errors.New("mailer: no recipients")
	}
	from := e.From
	if from == "" {
		from = m.Sender
	}
	msg := m.client.NewMessage(from, e.Subject, e.Text, e.To...)
	if e.HTML != "" {
		msg.SetHtml(e.HTML)
	}
	if m.Tag != "" {
		if err := msg.AddTag(m.Tag); err != nil {
			return err
		}
	}
	c, cancel := context.WithTimeout(ctx, SendTimeout)
	defer cancel()
	_, _, err := m.client.Send(c, msg)
	return err
}
