// Package notifications holds the notifications the application sends.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shashiranjanraj/krishimitra/app/models"
	"github.com/shashiranjanraj/krishimitra/pkg/notification"
)

// ErrDeliveryFailed means the mail relay did not accept the merchant mail.
var ErrDeliveryFailed = errors.New("notifications: merchant mail not delivered")

// ListingSubmitted tells a merchant that a farmer wants to sell. The webhook
// copy goes to the ops endpoint when one is configured.
type ListingSubmitted struct {
	Listing *models.Listing
}

func (n ListingSubmitted) Via() []string {
	return []string{notification.Mail, notification.Webhook}
}

func (n ListingSubmitted) ToMail() notification.MailData {
	return notification.MailData{
		To:      n.Listing.MerchantEmail,
		ReplyTo: n.Listing.FarmerEmail,
		Subject: Subject(n.Listing.Kind),
		Text:    Body(n.Listing),
	}
}

func (n ListingSubmitted) ToWebhook() notification.WebhookData {
	return notification.WebhookData{
		Payload: map[string]interface{}{
			"event":   "listing.submitted",
			"listing": n.Listing,
		},
	}
}

// Subject returns the merchant mail subject for kind.
func Subject(kind models.ListingKind) string {
	return fmt.Sprintf("New %s Product Sale Request", kind.Title())
}

// Body renders the plain-text merchant mail.
func Body(l *models.Listing) string {
	var b strings.Builder
	line := func(label, value string) {
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\n")
	}
	line("Farmer Name", l.FarmerName)
	line("Farmer Email", l.FarmerEmail)
	line("Product Name", l.ProductName)
	line("Address", l.Address)
	line("Contact Number", l.ContactNumber)
	line("Market Price", price(l.MarketPrice)+" per unit")
	line("Quantity Available", l.Quantity)
	line("Quality / Grade", l.Quality)
	line("Expected Price per Unit", price(l.ExpectedPrice))
	line("Additional Message", l.Message)
	return b.String()
}

func price(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// Notifier sends listing notifications through a dispatcher.
type Notifier struct {
	dispatcher *notification.Dispatcher
}

func NewNotifier(d *notification.Dispatcher) *Notifier {
	return &Notifier{dispatcher: d}
}

// NotifyMerchant mails the listing to its merchant. Only the mail channel
// decides the outcome; a failed webhook is logged by the dispatcher.
func (n *Notifier) NotifyMerchant(ctx context.Context, l *models.Listing) error {
	results := n.dispatcher.Send(ctx, ListingSubmitted{Listing: l})
	if err := results.Err(notification.Mail); err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	return nil
}
