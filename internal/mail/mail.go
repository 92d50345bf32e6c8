// Package mail delivers transactional email over SMTP.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// SMTP sends HTML email through a single relay. It implements
// identity.Notifier.
type SMTP struct {
	host     string
	port     string
	username string
	password string
	from     string
}

// Option customizes an SMTP sender.
type Option func(*SMTP)

// WithCredentials enables plain authentication against the relay.
func WithCredentials(username, password string) Option {
	return func(s *SMTP) {
		s.username = username
		s.password = password
	}
}

// NewSMTP builds a sender for the given relay. from is used both as the
// envelope sender and the From header.
func NewSMTP(host, port, from string, opts ...Option) (*SMTP, error) {
	if host == "" || port == "" {
		return nil, errors.New("mail: smtp host and port are required")
	}
	if from == "" {
		return nil, errors.New("mail: sender address is required")
	}
	s := &SMTP{host: host, port: port, from: from}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Send delivers one HTML message. The context deadline bounds the whole
// exchange including the connection dial.
func (s *SMTP) Send(ctx context.Context, to, subject, htmlBody string) error {
	if to == "" {
		return errors.New("mail: recipient is required")
	}

	addr := net.JoinHostPort(s.host, s.port)
	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp relay: %w", err)
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if s.username != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", s.username, s.password, s.host)
			if err := client.Auth(auth); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}

	if err := client.Mail(s.from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(Message(s.from, to, subject, htmlBody)); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp finish: %w", err)
	}
	return client.Quit()
}

// Message assembles an RFC 5322 HTML message.
func Message(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	b.WriteString("\r\n")
	return []byte(b.String())
}
