package notify

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/exchango/backend/internal/retry"
)

const emailSubject = "ExchanGo rate alert"

// EmailConfig holds the SendGrid credentials and sender identity.
type EmailConfig struct {
	APIKey      string
	FromAddress string
	FromName    string
}

type mailClient interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

// EmailSender delivers plain-text mail through SendGrid.
type EmailSender struct {
	client mailClient
	from   *sgmail.Email
}

func NewEmailSender(cfg EmailConfig) *EmailSender {
	return newEmailSender(sendgrid.NewSendClient(cfg.APIKey), cfg)
}

func newEmailSender(client mailClient, cfg EmailConfig) *EmailSender {
	return &EmailSender{
		client: client,
		from:   sgmail.NewEmail(cfg.FromName, cfg.FromAddress),
	}
}

func (s *EmailSender) Channel() string { return ChannelEmail }

func (s *EmailSender) Address(contact string) (string, error) {
	addr, err := mail.ParseAddress(contact)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return addr.Address, nil
}

func (s *EmailSender) Send(ctx context.Context, to, body string) error {
	message := sgmail.NewSingleEmail(s.from, emailSubject, sgmail.NewEmail("", to), body, "")
	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if resp.StatusCode >= 300 {
		err := fmt.Errorf("sendgrid returned %d: %s", resp.StatusCode, resp.Body)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != 429 {
			return retry.Permanent(err)
		}
		return err
	}
	return nil
}
