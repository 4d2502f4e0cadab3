package mail

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/combinewear/wardrobe-backend/pkg/config"
	"github.com/combinewear/wardrobe-backend/pkg/logger"
)

// Sender delivers transactional email. Services depend on this interface so
// tests can swap in a fake.
type Sender interface {
	SendVerificationEmail(ctx context.Context, toName, toEmail, token string) error
	SendPasswordResetEmail(ctx context.Context, toName, toEmail, token string) error
}

type Mailer struct {
	client     *sendgrid.Client
	fromName   string
	fromEmail  string
	appBaseURL string
	logg       *logger.Logger
}

var _ Sender = (*Mailer)(nil)

func NewMailer(cfg config.SendgridConfig, logg *logger.Logger) (*Mailer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	return &Mailer{
		client:     sendgrid.NewSendClient(cfg.APIKey),
		fromName:   cfg.FromName,
		fromEmail:  cfg.DefaultFrom,
		appBaseURL: strings.TrimRight(cfg.AppBaseURL, "/"),
		logg:       logg,
	}, nil
}

func (m *Mailer) SendVerificationEmail(ctx context.Context, toName, toEmail, token string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", m.appBaseURL, url.QueryEscape(token))
	text := "Welcome to Combine! Confirm your email address by visiting: " + link
	html := fmt.Sprintf(
		`<p>Welcome to Combine!</p><p>Confirm your email address by clicking <a href="%s">here</a>.</p>`,
		link,
	)
	return m.send(ctx, toName, toEmail, "Verify your Combine account", text, html)
}

func (m *Mailer) SendPasswordResetEmail(ctx context.Context, toName, toEmail, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", m.appBaseURL, url.QueryEscape(token))
	text := "A password reset was requested for your Combine account. Reset it here: " + link +
		"\nIf you did not request this, you can ignore this email."
	html := fmt.Sprintf(
		`<p>A password reset was requested for your Combine account.</p><p><a href="%s">Reset your password</a>.</p><p>If you did not request this, you can ignore this email.</p>`,
		link,
	)
	return m.send(ctx, toName, toEmail, "Reset your Combine password", text, html)
}

func (m *Mailer) send(ctx context.Context, toName, toEmail, subject, text, html string) error {
	if m == nil || m.client == nil {
		return errors.New("mailer not initialized")
	}
	if strings.TrimSpace(toEmail) == "" {
		return errors.New("recipient email is required")
	}

	from := mail.NewEmail(m.fromName, m.fromEmail)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, text, html)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	if resp.StatusCode >= 400 {
		if m.logg != nil {
			m.logg.Warn(ctx, "sendgrid rejected message")
		}
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}
