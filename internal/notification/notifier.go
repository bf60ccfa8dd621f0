// Package notification e-mails recipients about newly created messages.
package notification

import (
	"context"
	"expvar"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-private-messages/config"
	"github.com/oksasatya/go-ddd-private-messages/internal/signals"
	"github.com/oksasatya/go-ddd-private-messages/pkg/mailer"
	"github.com/oksasatya/go-ddd-private-messages/pkg/mailer/templates"
	"github.com/oksasatya/go-ddd-private-messages/pkg/messaging"
)

// Exposed on /api/debug/vars.
var (
	sentTotal    = expvar.NewInt("notification_sent_total")
	skippedTotal = expvar.NewInt("notification_skipped_total")
	failedTotal  = expvar.NewInt("notification_failed_total")
)

// SiteResolver returns the domain of the current site.
type SiteResolver interface {
	CurrentDomain(ctx context.Context) (string, error)
}

// Notifier sends the "new message" e-mail.
type Notifier struct {
	Sender  mailer.Sender
	Sites   SiteResolver
	Printer *messaging.Printer
	Config  *config.Config
	Logger  *logrus.Logger

	// SubjectPrefix is a catalog key formatted with the message subject.
	// Empty uses messaging.KeyNewMessage.
	SubjectPrefix string
	// Template is the base name of the body templates. Empty uses
	// templates.NewMessage.
	Template string
	// Protocol of the site URL. Empty falls back to
	// Config.DefaultHTTPProtocol, then "http".
	Protocol string
}

func New(sender mailer.Sender, sites SiteResolver, cfg *config.Config, logger *logrus.Logger) *Notifier {
	lang := ""
	if cfg != nil {
		lang = cfg.LanguageCode
	}
	return &Notifier{
		Sender:  sender,
		Sites:   sites,
		Printer: messaging.NewPrinter(lang),
		Config:  cfg,
		Logger:  logger,
	}
}

func (n *Notifier) protocol() string {
	if n.Protocol != "" {
		return n.Protocol
	}
	if n.Config != nil && n.Config.DefaultHTTPProtocol != "" {
		return n.Config.DefaultHTTPProtocol
	}
	return "http"
}

func (n *Notifier) from() string {
	if n.Config != nil {
		return n.Config.DefaultFromEmail
	}
	return ""
}

// NewMessageEmail is a signals.Receiver. It never fails: every error,
// panics included, is logged at debug level and dropped.
func (n *Notifier) NewMessageEmail(ctx context.Context, ev signals.PostSave) {
	if !ev.Created || ev.Message == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			n.dropped(ev, fmt.Errorf("panic: %v", r))
		}
	}()
	if err := n.send(ctx, ev); err != nil {
		n.dropped(ev, err)
	}
}

func (n *Notifier) dropped(ev signals.PostSave, err error) {
	failedTotal.Add(1)
	if n.Logger != nil {
		n.Logger.WithError(err).WithField("message_id", ev.Message.ID).Debug("new message notification dropped")
	}
}

func (n *Notifier) send(ctx context.Context, ev signals.PostSave) error {
	m := ev.Message
	domain, err := n.Sites.CurrentDomain(ctx)
	if err != nil {
		return fmt.Errorf("current site: %w", err)
	}

	printer := n.Printer
	if printer == nil {
		printer = messaging.NewPrinter("")
	}
	key := n.SubjectPrefix
	if key == "" {
		key = messaging.KeyNewMessage
	}

	tpl := n.Template
	if tpl == "" {
		tpl = templates.NewMessage
	}
	if !templates.Exists(tpl) {
		return fmt.Errorf("%w: %q", templates.ErrUnknownTemplate, tpl)
	}
	siteURL := n.protocol() + "://" + domain
	data := templates.NewMessageData(n.Config, siteURL, templates.MessageView{
		ID:            m.ID,
		Subject:       m.Subject,
		Body:          m.Body,
		SenderName:    m.Sender.DisplayName(),
		RecipientName: m.Recipient.DisplayName(),
		SentAt:        m.SentAt,
		Path:          "/messages/" + m.ID,
	})
	data.Subject = printer.Sprintf(key, m.Subject)

	if m.Recipient == nil || m.Recipient.Email == "" {
		skippedTotal.Add(1)
		return nil
	}
	to := []string{m.Recipient.Email}

	// Queued mail is rendered by the email worker.
	if ts, ok := n.Sender.(mailer.TemplateSender); ok {
		err = ts.SendTemplate(ctx, mailer.TemplateEmail{From: n.from(), To: to, Template: tpl, Data: templates.ToMap(data)})
	} else {
		var e mailer.Email
		e.Subject, e.Text, e.HTML, err = templates.Render(tpl, data)
		if err != nil {
			return err
		}
		e.From, e.To = n.from(), to
		err = n.Sender.Send(ctx, e)
	}
	if err != nil {
		return err
	}
	sentTotal.Add(1)
	return nil
}
