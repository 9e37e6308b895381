package sender

import (
	"context"
	"fmt"
	"net/smtp"
	"time"
)

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type SMTPSender struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP_HOST not set")
	}
	if cfg.Port == "" {
		cfg.Port = "587"
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP_FROM or SMTP_USER must be set")
	}
	return &SMTPSender{cfg: cfg, send: smtp.SendMail}, nil
}

// SendEmail gives up when ctx is done. net/smtp has no context support, so
// the dial keeps running in the background until it fails on its own.
func (s *SMTPSender) SendEmail(ctx context.Context, to, subject, htmlBody string) (SendResult, error) {
	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	msg := []byte(
		"From: " + s.cfg.From + "\r\n" +
			"To: " + to + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n" +
			"\r\n" +
			htmlBody,
	)

	done := make(chan error, 1)
	go func() {
		done <- s.send(addr, auth, s.cfg.From, []string{to}, msg)
	}()

	select {
	case <-ctx.Done():
		return SendResult{}, fmt.Errorf("smtp send to %s: %w", to, ctx.Err())
	case err := <-done:
		if err != nil {
			return SendResult{}, fmt.Errorf("smtp send failed: %w", err)
		}
	}

	now := time.Now()
	return SendResult{
		MessageID: fmt.Sprintf("smtp-%d", now.UnixNano()),
		SentAt:    now,
	}, nil
}
