package notification

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"chatforge-backend/internal/logger"

	"go.uber.org/zap"
)

type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

// Message is one rendered email for one recipient.
type Message struct {
	To       string
	Subject  string
	HTML     string
	FromName string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer returns an SMTP mailer, or a mailer that only logs when no SMTP
// host is configured.
func NewMailer(cfg EmailConfig) Mailer {
	if cfg.Host == "" {
		return LogMailer{}
	}
	return NewEmailService(cfg)
}

type EmailService struct {
	config EmailConfig
}

func NewEmailService(config EmailConfig) *EmailService {
	if config.From == "" {
		config.From = config.User
	}
	return &EmailService{config: config}
}

func (s *EmailService) Send(ctx context.Context, msg Message) error {
	if strings.ContainsAny(msg.To, "\r\n,;") || msg.To == "" {
		return fmt.Errorf("invalid recipient %q", msg.To)
	}

	fromName := msg.FromName
	if fromName == "" {
		fromName = s.config.FromName
	}
	from := s.config.From
	if fromName != "" {
		from = fmt.Sprintf("%q <%s>", fromName, s.config.From)
	}

	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nDate: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		from, msg.To, sanitizeHeader(msg.Subject), time.Now().UTC().Format(time.RFC1123Z), msg.HTML)

	errc := make(chan error, 1)
	go func() {
		errc <- s.deliver(msg.To, []byte(body))
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("send email to %s: %w", msg.To, err)
		}
		logger.FromContext(ctx).Info("email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
		return nil
	}
}

func (s *EmailService) deliver(to string, body []byte) error {
	addr := net.JoinHostPort(s.config.Host, fmt.Sprintf("%d", s.config.Port))
	var auth smtp.Auth
	if s.config.User != "" {
		auth = smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	}

	// Port 465 speaks TLS from the first byte; other ports upgrade with STARTTLS.
	if s.config.Port != 465 {
		return smtp.SendMail(addr, auth, s.config.From, []string{to}, body)
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.config.Host})
	if err != nil {
		return err
	}
	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(s.config.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}

// LogMailer records messages in the log instead of sending them.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("missing recipient")
	}
	logger.FromContext(ctx).Warn("smtp not configured, email not sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
