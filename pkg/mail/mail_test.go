package mail_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/krishimitra/pkg/mail"
)

func TestRawMessage(t *testing.T) {
	raw := string(mail.New().
		To("m@y.com").
		Subject("New Organic\r\nBcc: evil@x.com").
		Text("line one\nline two").
		Raw("KrishiMitra <relay@x.com>"))

	assert.Contains(t, raw, "From: KrishiMitra <relay@x.com>\r\n")
	assert.Contains(t, raw, "To: m@y.com\r\n")
	assert.Contains(t, raw, "Subject: New Organic  Bcc: evil@x.com\r\n")
	assert.Contains(t, raw, "Content-Type: text/plain")
	assert.True(t, strings.HasSuffix(raw, "line one\r\nline two"))
}

func TestSMTPSenderRequiresCredentials(t *testing.T) {
	s := mail.NewSMTPSender(mail.SMTP{Host: "localhost", Port: "2525"})
	err := s.Send(context.Background(), mail.New().To("m@y.com"))
	assert.ErrorIs(t, err, mail.ErrNotConfigured)
}

func TestSMTPSenderDialFailure(t *testing.T) {
	s := mail.NewSMTPSender(mail.SMTP{Host: "127.0.0.1", Port: "1", Username: "u", From: "u@x.com"})
	err := s.Send(context.Background(), mail.New().To("m@y.com").Subject("s").Text("b"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mail: dial")
}

func TestRawKeepsAddressesOnOneLine(t *testing.T) {
	raw := string(mail.New().
		To("m@y.com").
		ReplyTo("a@b.c\r\nX-Injected: yes").
		Subject("s").
		Text("b").
		Raw("relay@x.com"))

	assert.Contains(t, raw, "Reply-To: a@b.c  X-Injected: yes\r\n")
	assert.NotContains(t, raw, "\r\nX-Injected")
}

func TestCheckAddresses(t *testing.T) {
	assert.NoError(t, mail.New().To("m@y.com").ReplyTo("asha@x.com").CheckAddresses())

	for _, bad := range []*mail.Message{
		mail.New().To("m@y.com").ReplyTo("a@b.c\r\nX-Injected: yes"),
		mail.New().To("m@y.com\nBcc: evil@x.com"),
		mail.New().To("not an address"),
	} {
		assert.ErrorIs(t, bad.CheckAddresses(), mail.ErrBadAddress)
	}
}

func TestSMTPSenderRejectsBadAddressBeforeDialing(t *testing.T) {
	s := mail.NewSMTPSender(mail.SMTP{Host: "127.0.0.1", Port: "1", Username: "u", From: "u@x.com"})
	err := s.Send(context.Background(), mail.New().To("m@y.com").ReplyTo("a@b.c\r\nX-Injected: yes"))
	assert.ErrorIs(t, err, mail.ErrBadAddress)
}
