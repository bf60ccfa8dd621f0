package mailer

import (
	"context"
	"errors"
)

// Email is a rendered message ready for delivery.
type Email struct {
	From    string
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers rendered email.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// NopSender drops every email. Used when MAIL_SEND_ENABLED=false.
type NopSender struct{}

func (NopSender) Send(context.Context, Email) error { return nil }

// TemplateEmail names a template and its data instead of rendered bodies.
type TemplateEmail struct {
	From     string
	To       []string
	Template string
	Data     map[string]any
}

// TemplateSender is implemented by senders that render at delivery time.
type TemplateSender interface {
	SendTemplate(ctx context.Context, e TemplateEmail) error
}

// Publisher enqueues a JSON-encodable payload.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// QueueSender enqueues one EmailJob per recipient for the email worker.
type QueueSender struct {
	Pub Publisher
}

func NewQueueSender(pub Publisher) *QueueSender {
	return &QueueSender{Pub: pub}
}

var errNoRecipients = errors.New("mailer: no recipients")

func (q *QueueSender) Send(ctx context.Context, e Email) error {
	return q.publish(ctx, e.To, func(to string) EmailJob {
		return EmailJob{From: e.From, To: to, Subject: e.Subject, Text: e.Text, HTML: e.HTML}
	})
}

// SendTemplate enqueues template jobs; the worker renders subject and bodies.
func (q *QueueSender) SendTemplate(ctx context.Context, e TemplateEmail) error {
	return q.publish(ctx, e.To, func(to string) EmailJob {
		return EmailJob{From: e.From, To: to, Template: e.Template, Data: e.Data}
	})
}

func (q *QueueSender) publish(ctx context.Context, to []string, job func(to string) EmailJob) error {
	if len(to) == 0 {
		return errNoRecipients
	}
	for _, addr := range to {
		if err := q.Pub.PublishJSON(ctx, job(addr)); err != nil {
			return err
		}
	}
	return nil
}
