// Package mail builds and sends email through an SMTP relay.
//
//	msg := mail.New().
//	    To("merchant@example.com").
//	    Subject("New Organic Product Sale Request").
//	    Text(body)
//	err := sender.Send(ctx, msg)
//
// Anything that sends mail depends on the Sender interface so tests can
// substitute testkit.MockMailer.
package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	netmail "net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/shashiranjanraj/krishimitra/config"
)

// ErrNotConfigured is returned when the relay has no credentials.
var ErrNotConfigured = errors.New("mail: MAIL_USERNAME not configured")

// ErrBadAddress is returned for a recipient or reply-to that is not a single
// plain address.
var ErrBadAddress = errors.New("mail: bad address")

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, m *Message) error
}

// ------------------- Message -------------------

// Message is a fluent builder for one email.
type Message struct {
	to      []string
	subject string
	body    string
	isHTML  bool
	replyTo string
}

func New() *Message { return &Message{} }

func (m *Message) To(addresses ...string) *Message {
	m.to = append(m.to, addresses...)
	return m
}

func (m *Message) ReplyTo(address string) *Message {
	m.replyTo = address
	return m
}

func (m *Message) Subject(s string) *Message {
	m.subject = s
	return m
}

// Text sets a plain-text body.
func (m *Message) Text(text string) *Message {
	m.body, m.isHTML = text, false
	return m
}

// HTML sets an HTML body.
func (m *Message) HTML(html string) *Message {
	m.body, m.isHTML = html, true
	return m
}

func (m *Message) Recipients() []string { return append([]string(nil), m.to...) }
func (m *Message) GetSubject() string   { return m.subject }
func (m *Message) GetBody() string      { return m.body }

// Raw renders the RFC 5322 message with from as the From header.
func (m *Message) Raw(from string) []byte {
	contentType := "text/plain"
	if m.isHTML {
		contentType = "text/html"
	}

	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + sanitizeHeader(strings.Join(m.to, ", ")) + "\r\n")
	if m.replyTo != "" {
		b.WriteString("Reply-To: " + sanitizeHeader(m.replyTo) + "\r\n")
	}
	b.WriteString("Subject: " + sanitizeHeader(m.subject) + "\r\n")
	b.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString(fmt.Sprintf("Content-Type: %s; charset=\"UTF-8\"\r\n", contentType))
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(m.body, "\n", "\r\n"))
	return []byte(b.String())
}

// CheckAddresses rejects recipients and reply-to values that would not
// survive as one header value.
func (m *Message) CheckAddresses() error {
	addrs := m.Recipients()
	if m.replyTo != "" {
		addrs = append(addrs, m.replyTo)
	}
	for _, a := range addrs {
		if strings.ContainsAny(a, "\r\n") {
			return fmt.Errorf("%w: %q", ErrBadAddress, a)
		}
		if _, err := netmail.ParseAddress(a); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrBadAddress, a, err)
		}
	}
	return nil
}

func sanitizeHeader(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

// ------------------- SMTP -------------------

// SMTP holds relay settings.
type SMTP struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
	Timeout  time.Duration
}

// SMTPFromConfig reads MAIL_* settings. The sender address defaults to the
// relay username.
func SMTPFromConfig() SMTP {
	user := config.Get("MAIL_USERNAME", "")
	return SMTP{
		Host:     config.Get("MAIL_HOST", "smtp.gmail.com"),
		Port:     config.Get("MAIL_PORT", "587"),
		Username: user,
		Password: config.Get("MAIL_PASSWORD", ""),
		From:     config.Get("MAIL_FROM", user),
		FromName: config.Get("MAIL_FROM_NAME", "KrishiMitra"),
		Timeout:  config.Duration("MAIL_TIMEOUT", 15*time.Second),
	}
}

// SMTPSender delivers over SMTP: implicit TLS on 465, STARTTLS otherwise
// when the server offers it.
type SMTPSender struct {
	cfg SMTP
}

func NewSMTPSender(cfg SMTP) *SMTPSender { return &SMTPSender{cfg: cfg} }

func (s *SMTPSender) Send(ctx context.Context, m *Message) error {
	cfg := s.cfg
	if cfg.Username == "" {
		return ErrNotConfigured
	}
	rcpts := m.Recipients()
	if len(rcpts) == 0 {
		return errors.New("mail: no recipients")
	}
	if err := m.CheckAddresses(); err != nil {
		return err
	}

	from := cfg.From
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.From)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := s.dial(ctx)
	if err != nil {
		return err
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("mail: handshake: %w", err)
	}
	defer client.Close()

	if cfg.Port != "465" {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
				return fmt.Errorf("mail: starttls: %w", err)
			}
		}
	}
	if err := client.Auth(smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)); err != nil {
		return fmt.Errorf("mail: auth: %w", err)
	}
	if err := client.Mail(cfg.From); err != nil {
		return fmt.Errorf("mail: MAIL FROM: %w", err)
	}
	for _, addr := range rcpts {
		if err := client.Rcpt(addr); err != nil {
			return fmt.Errorf("mail: RCPT TO %s: %w", addr, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("mail: DATA: %w", err)
	}
	if _, err := w.Write(m.Raw(from)); err != nil {
		return fmt.Errorf("mail: write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("mail: finish DATA: %w", err)
	}
	return client.Quit()
}

func (s *SMTPSender) dial(ctx context.Context) (net.Conn, error) {
	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	if s.cfg.Port == "465" {
		d := tls.Dialer{Config: &tls.Config{ServerName: s.cfg.Host}}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("mail: TLS dial %s: %w", addr, err)
		}
		return conn, nil
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("mail: dial %s: %w", addr, err)
	}
	return conn, nil
}
