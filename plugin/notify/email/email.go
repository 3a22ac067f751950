// Package email delivers alarm notifications over SMTP.
package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/healthlog/internal/daykey"
	"github.com/hrygo/healthlog/plugin/notify"
)

// Config represents the SMTP configuration for alarm mail.
type Config struct {
	SMTPHost     string
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
	ToEmail      string
	SMTPPort     int
	// UseSSL dials with implicit TLS (usually port 465). Otherwise STARTTLS
	// is used when the server offers it.
	UseSSL bool
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.SMTPHost == "" {
		return errors.New("SMTP host is required")
	}
	if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
		return errors.New("SMTP port must be between 1 and 65535")
	}
	if c.FromEmail == "" {
		return errors.New("from email is required")
	}
	if c.ToEmail == "" {
		return errors.New("to email is required")
	}
	return nil
}

// GetServerAddress returns the SMTP server address in the format "host:port".
func (c *Config) GetServerAddress() string {
	return net.JoinHostPort(c.SMTPHost, fmt.Sprint(c.SMTPPort))
}

// GetFromHeader returns the From header value.
func (c *Config) GetFromHeader() string {
	if c.FromName != "" {
		return fmt.Sprintf("%s <%s>", c.FromName, c.FromEmail)
	}
	return c.FromEmail
}

type sendFunc func(ctx context.Context, cfg *Config, msg []byte) error

// Channel mails every notification to Config.ToEmail.
type Channel struct {
	config *Config
	send   sendFunc
}

func NewChannel(config *Config) (*Channel, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid email config")
	}
	return &Channel{config: config, send: sendMail}, nil
}

func (c *Channel) Name() string { return "email" }

func (c *Channel) Send(ctx context.Context, n *notify.Notification) error {
	if err := c.send(ctx, c.config, Message(c.config, n)); err != nil {
		return errors.Wrapf(err, "failed to mail alarm %s", n.AlarmID)
	}
	return nil
}

func (c *Channel) Close() error { return nil }

// Message renders n as a plain-text RFC 5322 message.
func Message(cfg *Config, n *notify.Notification) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", cfg.GetFromHeader())
	fmt.Fprintf(&b, "To: %s\r\n", cfg.ToEmail)
	fmt.Fprintf(&b, "Subject: %s\r\n", sanitizeHeader(n.Title+": "+n.Body))
	fmt.Fprintf(&b, "Date: %s\r\n", n.At.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "%s\r\n%s\r\n", n.Body, n.At.Format(daykey.Layout+" 15:04"))
	return []byte(b.String())
}

func sanitizeHeader(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

func sendMail(ctx context.Context, cfg *Config, msg []byte) error {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	var conn net.Conn
	var err error
	if cfg.UseSSL {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: cfg.SMTPHost}}).DialContext(ctx, "tcp", cfg.GetServerAddress())
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", cfg.GetServerAddress())
	}
	if err != nil {
		return errors.Wrap(err, "failed to dial SMTP server")
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, cfg.SMTPHost)
	if err != nil {
		conn.Close()
		return errors.Wrap(err, "failed to start SMTP session")
	}
	defer client.Close()

	if !cfg.UseSSL {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: cfg.SMTPHost}); err != nil {
				return errors.Wrap(err, "failed to start TLS")
			}
		}
	}
	if cfg.SMTPUsername != "" {
		if err := client.Auth(smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)); err != nil {
			return errors.Wrap(err, "SMTP authentication failed")
		}
	}
	if err := client.Mail(cfg.FromEmail); err != nil {
		return errors.Wrap(err, "MAIL FROM rejected")
	}
	if err := client.Rcpt(cfg.ToEmail); err != nil {
		return errors.Wrap(err, "RCPT TO rejected")
	}
	w, err := client.Data()
	if err != nil {
		return errors.Wrap(err, "DATA rejected")
	}
	if _, err := w.Write(msg); err != nil {
		return errors.Wrap(err, "failed to write message")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "failed to finish message")
	}
	return client.Quit()
}
