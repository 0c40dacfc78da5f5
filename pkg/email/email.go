package email

import (
	"context"
	"time"
)

// EmailService defines the notification mails the principal registry sends.
// Every send is best-effort: a failed notification never fails the operation
// that triggered it.
type EmailService interface {
	// SendVerificationEmail sends the activation link to a newly created
	// human principal.
	SendVerificationEmail(ctx context.Context, to, name, token string) error

	// SendSuspensionEmail notifies a human principal that the account was
	// suspended.
	SendSuspensionEmail(ctx context.Context, to, name, reason string) error

	// SendDeletionConfirmationEmail sends the GDPR audit reference to the
	// deletion requestor.
	SendDeletionConfirmationEmail(ctx context.Context, to, auditReference string) error
}

// EmailConfig holds email service configuration
type EmailConfig struct {
	APIKey          string
	FromEmail       string
	FromName        string
	VerificationURL string        // base URL the token is appended to
	Timeout         time.Duration // HTTP request timeout
}
