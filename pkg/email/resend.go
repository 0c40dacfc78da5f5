package email

import (
	"context"
	"fmt"
	"log"

	"github.com/resend/resend-go/v2"
)

// ResendEmailService implements EmailService using Resend
type ResendEmailService struct {
	client *resend.Client
	config *EmailConfig
}

// NewResendEmailService creates a new Resend email service
func NewResendEmailService(config *EmailConfig) (*ResendEmailService, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("resend API key is required")
	}

	if config.FromEmail == "" {
		return nil, fmt.Errorf("from email is required")
	}

	client := resend.NewClient(config.APIKey)

	return &ResendEmailService{
		client: client,
		config: config,
	}, nil
}

// SendVerificationEmail sends the activation link to a new human principal
func (s *ResendEmailService) SendVerificationEmail(ctx context.Context, to, name, token string) error {
	verificationURL := fmt.Sprintf("%s?token=%s", s.config.VerificationURL, token)
	htmlContent := VerificationEmailTemplate(name, verificationURL)

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromEmail),
		To:      []string{to},
		Subject: "Activate Your Account",
		Html:    htmlContent,
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		log.Printf("Failed to send verification email to %s: %v", to, err)
		return fmt.Errorf("failed to send verification email: %w", err)
	}

	log.Printf("Verification email sent successfully to %s (ID: %s)", to, sent.Id)
	return nil
}

// SendSuspensionEmail notifies a principal that the account was suspended
func (s *ResendEmailService) SendSuspensionEmail(ctx context.Context, to, name, reason string) error {
	htmlContent := SuspensionEmailTemplate(name, reason)

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromEmail),
		To:      []string{to},
		Subject: "Your Account Has Been Suspended",
		Html:    htmlContent,
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		log.Printf("Failed to send suspension email to %s: %v", to, err)
		return fmt.Errorf("failed to send suspension email: %w", err)
	}

	log.Printf("Suspension email sent successfully to %s (ID: %s)", to, sent.Id)
	return nil
}

// SendDeletionConfirmationEmail sends the audit reference to the requestor
func (s *ResendEmailService) SendDeletionConfirmationEmail(ctx context.Context, to, auditReference string) error {
	htmlContent := DeletionConfirmationEmailTemplate(auditReference)

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromEmail),
		To:      []string{to},
		Subject: "Account Deletion Completed",
		Html:    htmlContent,
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		log.Printf("Failed to send deletion confirmation email to %s: %v", to, err)
		return fmt.Errorf("failed to send deletion confirmation email: %w", err)
	}

	log.Printf("Deletion confirmation email sent successfully to %s (ID: %s)", to, sent.Id)
	return nil
}
