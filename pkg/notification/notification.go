// Package notification fans one notification out over several channels.
//
// A notification declares its channels and implements one method per
// channel:
//
//	type ListingSubmitted struct{ Listing models.Listing }
//	func (n ListingSubmitted) Via() []string            { return []string{notification.Mail, notification.Webhook} }
//	func (n ListingSubmitted) ToMail() notification.MailData    { ... }
//	func (n ListingSubmitted) ToWebhook() notification.WebhookData { ... }
//
//	results := dispatcher.Send(ctx, n)
//	if err := results.Err(notification.Mail); err != nil { ... }
package notification

import (
	"context"
	"fmt"
	"time"

	khttp "github.com/shashiranjanraj/krishimitra/pkg/http"
	"github.com/shashiranjanraj/krishimitra/pkg/logger"
	"github.com/shashiranjanraj/krishimitra/pkg/mail"
)

// Channel names.
const (
	Mail    = "mail"
	Webhook = "webhook"
)

// ------------------- Channel data -------------------

// MailData is the mail channel payload.
type MailData struct {
	To      string
	ReplyTo string
	Subject string
	Text    string
}

// WebhookData is POSTed as JSON. An empty URL falls back to the
// dispatcher's default.
type WebhookData struct {
	URL     string
	Payload interface{}
	Headers map[string]string
}

// ------------------- Notification -------------------

type Notification interface {
	Via() []string
}

type Mailable interface {
	ToMail() MailData
}

type Webhookable interface {
	ToWebhook() WebhookData
}

// ------------------- Dispatcher -------------------

// Dispatcher delivers notifications. Channels run in Via order, one attempt
// each.
type Dispatcher struct {
	mailer         mail.Sender
	http           *khttp.Client
	webhookURL     string
	webhookTimeout time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithWebhook sets the default webhook URL and the client used to reach it.
func WithWebhook(url string, client *khttp.Client) Option {
	return func(d *Dispatcher) {
		d.webhookURL = url
		if client != nil {
			d.http = client
		}
	}
}

func NewDispatcher(mailer mail.Sender, opts ...Option) *Dispatcher {
	d := &Dispatcher{mailer: mailer, http: khttp.Default, webhookTimeout: 10 * time.Second}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Results maps channel name to its delivery error (nil on success). Skipped
// channels are absent.
type Results map[string]error

// Err returns the error for channel, or nil if it succeeded or was skipped.
func (r Results) Err(channel string) error { return r[channel] }

// Delivered reports whether channel ran and succeeded.
func (r Results) Delivered(channel string) bool {
	err, ran := r[channel]
	return ran && err == nil
}

// Send dispatches n over every channel in n.Via(). A webhook with no URL is
// skipped silently.
func (d *Dispatcher) Send(ctx context.Context, n Notification) Results {
	out := Results{}
	log := logger.WithCtx(ctx)

	for _, channel := range n.Via() {
		var err error
		switch channel {
		case Mail:
			m, ok := n.(Mailable)
			if !ok {
				err = fmt.Errorf("notification: %T does not implement Mailable", n)
				break
			}
			err = d.sendMail(ctx, m.ToMail())
		case Webhook:
			wh, ok := n.(Webhookable)
			if !ok {
				err = fmt.Errorf("notification: %T does not implement Webhookable", n)
				break
			}
			data := wh.ToWebhook()
			if data.URL == "" {
				data.URL = d.webhookURL
			}
			if data.URL == "" {
				continue
			}
			err = d.sendWebhook(ctx, data)
		default:
			err = fmt.Errorf("notification: unknown channel %q", channel)
		}

		out[channel] = err
		if err != nil {
			log.Error("notification: channel failed", "channel", channel, "error", err)
		}
	}
	return out
}

func (d *Dispatcher) sendMail(ctx context.Context, data MailData) error {
	if d.mailer == nil {
		return mail.ErrNotConfigured
	}
	msg := mail.New().To(data.To).Subject(data.Subject).Text(data.Text)
	if data.ReplyTo != "" {
		msg.ReplyTo(data.ReplyTo)
	}
	return d.mailer.Send(ctx, msg)
}

func (d *Dispatcher) sendWebhook(ctx context.Context, data WebhookData) error {
	req := d.http.Post(data.URL).WithContext(ctx).Body(data.Payload).Timeout(d.webhookTimeout)
	for k, v := range data.Headers {
		req.Header(k, v)
	}
	resp, err := req.Send()
	if err != nil {
		return fmt.Errorf("notification: webhook: %w", err)
	}
	if err := resp.Throw(); err != nil {
		return fmt.Errorf("notification: webhook: %w", err)
	}
	return nil
}
