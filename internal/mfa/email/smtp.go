// Package email delivers OTP codes over SMTP.
package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"asset-registry/backend/internal/mfa/dispatch"
)

const defaultTimeout = 15 * time.Second

// ErrNotConfigured is returned when no SMTP relay address or sender is set.
var ErrNotConfigured = errors.New("email: SMTP not configured")

// SMTPSender sends OTP mail through an SMTP relay. PLAIN auth is used only when Username is set.
type SMTPSender struct {
	Addr     string
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// NewSMTPSender returns a sender for the relay at addr (host:port).
func NewSMTPSender(addr, username, password, from string) *SMTPSender {
	return &SMTPSender{Addr: addr, Username: username, Password: password, From: from, Timeout: defaultTimeout}
}

// Send implements dispatch.Sender.
func (s *SMTPSender) Send(ctx context.Context, m dispatch.Message) error {
	if s.Addr == "" || s.From == "" {
		return ErrNotConfigured
	}
	host, _, err := net.SplitHostPort(s.Addr)
	if err != nil {
		return fmt.Errorf("email: %w", err)
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("email: dial: %w", err)
	}
	_ = conn.SetDeadline(deadline)

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("email: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(nil); err != nil {
			return fmt.Errorf("email: starttls: %w", err)
		}
	}
	if s.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", s.Username, s.Password, host)); err != nil {
			return fmt.Errorf("email: auth: %w", err)
		}
	}
	if err := c.Mail(s.From); err != nil {
		return fmt.Errorf("email: mail from: %w", err)
	}
	if err := c.Rcpt(m.To); err != nil {
		return fmt.Errorf("email: rcpt: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("email: data: %w", err)
	}
	if _, err := w.Write(buildMessage(s.From, m)); err != nil {
		return fmt.Errorf("email: write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("email: send: %w", err)
	}
	return c.Quit()
}

func buildMessage(from string, m dispatch.Message) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", m.To)
	b.WriteString("Subject: Your asset registry verification code\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Your verification code is %s.\r\n", m.Code)
	if !m.ExpiresAt.IsZero() {
		fmt.Fprintf(&b, "It expires at %s.\r\n", m.ExpiresAt.UTC().Format("15:04 MST"))
	}
	b.WriteString("If you did not request this code, ignore this message.\r\n")
	return b.Bytes()
}
