package email

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"
)

// Service sends account notification mail.
type Service interface {
	SendEmailChanged(ctx context.Context, to string, newEmail string) error
	SendPasswordChanged(ctx context.Context, to string) error
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPService(cfg Config) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpService) SendEmailChanged(ctx context.Context, to string, newEmail string) error {
	body := fmt.Sprintf("The email address on your account was changed to %s. If this was not you, contact support immediately.", newEmail)
	return s.send(to, "Your email address was changed", body)
}

func (s *smtpService) SendPasswordChanged(ctx context.Context, to string) error {
	return s.send(to, "Your password was changed", "The password on your account was changed. If this was not you, contact support immediately.")
}

func (s *smtpService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// NoopService discards mail, for environments without SMTP configured.
type NoopService struct{}

func (NoopService) SendEmailChanged(ctx context.Context, to string, newEmail string) error {
	return nil
}

func (NoopService) SendPasswordChanged(ctx context.Context, to string) error {
	return nil
}
