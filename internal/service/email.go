package service

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

type sendGridEmailSender struct {
	apiKey    string
	fromEmail string
	fromName  string
}

// NewSendGridEmailSender returns an EmailSender backed by the SendGrid API.
func NewSendGridEmailSender(apiKey, fromEmail, fromName string) EmailSender {
	return &sendGridEmailSender{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *sendGridEmailSender) Send(ctx context.Context, toEmail, toName, subject, body string) error {
	from := sgmail.NewEmail(s.fromName, s.fromEmail)
	recipient := sgmail.NewEmail(toName, toEmail)

	message := sgmail.NewSingleEmailPlainText(from, subject, recipient, body)

	client := sendgrid.NewSendClient(s.apiKey)
	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}

	return nil
}
