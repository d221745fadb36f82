package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/iliyamo/shortlet-booking/internal/config"
)

// EmailSender delivers one email.
type EmailSender interface {
	SendEmail(ctx context.Context, toName, toEmail string, m Message) error
}

// SMSSender delivers one text message.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// SendGridSender delivers email through SendGrid.
type SendGridSender struct {
	client    *sendgrid.Client
	fromName  string
	fromEmail string
	sandbox   bool
}

// NewSendGridSender returns nil when no API key is configured.
func NewSendGridSender(cfg config.MailConfig) *SendGridSender {
	if cfg.SendGridAPIKey == "" {
		return nil
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.SendGridAPIKey),
		fromName:  cfg.FromName,
		fromEmail: cfg.FromEmail,
		sandbox:   cfg.Sandbox,
	}
}

func (s *SendGridSender) SendEmail(ctx context.Context, toName, toEmail string, m Message) error {
	msg := mail.NewSingleEmail(
		mail.NewEmail(s.fromName, s.fromEmail),
		m.Subject,
		mail.NewEmail(toName, toEmail),
		m.Text,
		m.HTML,
	)
	disabled := false
	msg.TrackingSettings = &mail.TrackingSettings{
		ClickTracking: &mail.ClickTrackingSetting{Enable: &disabled},
	}
	if s.sandbox {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		msg.MailSettings = ms
	}
	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// TwilioSender delivers SMS through Twilio.
type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioSender returns nil when Twilio is not configured.
func NewTwilioSender(cfg config.SMSConfig) *TwilioSender {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.From == "" {
		return nil
	}
	return &TwilioSender{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		}),
		from: cfg.From,
	}
}

func (s *TwilioSender) SendSMS(_ context.Context, to, body string) error {
	if to == "" {
		return errors.New("twilio: empty recipient")
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)
	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio: %w", err)
	}
	return nil
}
