package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	pkglogger "github.com/BradenHooton/tenantauth/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// PasswordResetNotifier delivers password reset links.
type PasswordResetNotifier interface {
	SendPasswordResetEmail(ctx context.Context, email, tenantID, token string, expiresAt time.Time) error
}

// SESAPI is the subset of the SES client used for sending.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// AWSSESEmailService sends emails using AWS SES
type AWSSESEmailService struct {
	sesClient   SESAPI
	fromAddress string
	baseURL     string
	logger      *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(ctx context.Context, region, fromAddress, baseURL string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewSESEmailServiceWithClient(ses.NewFromConfig(cfg), fromAddress, baseURL, logger), nil
}

// NewSESEmailServiceWithClient builds the service around an existing client.
func NewSESEmailServiceWithClient(client SESAPI, fromAddress, baseURL string, logger *slog.Logger) *AWSSESEmailService {
	return &AWSSESEmailService{
		sesClient:   client,
		fromAddress: fromAddress,
		baseURL:     baseURL,
		logger:      logger,
	}
}

// resetLink builds the link the user follows to choose a new password.
func resetLink(baseURL, tenantID, token string) string {
	q := url.Values{}
	q.Set("token", token)
	if tenantID != "" {
		q.Set("tenant", tenantID)
	}
	return baseURL + "/reset-password?" + q.Encode()
}

// SendPasswordResetEmail sends a reset link to the user
func (s *AWSSESEmailService) SendPasswordResetEmail(ctx context.Context, email, tenantID, token string, expiresAt time.Time) error {
	link := resetLink(s.baseURL, tenantID, token)
	validFor := time.Until(expiresAt).Round(time.Minute)

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .button { display: inline-block; background-color: #0066cc; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Reset your password</h1>
        <p>We received a request to reset the password for your account.</p>
        <p><a href="%s" class="button">Choose a new password</a></p>
        <p>Or copy and paste this link in your browser:<br>
        <code>%s</code></p>
        <p>This link expires in %s. If you did not ask for a reset, you can ignore this email.</p>
        <div class="footer">
            <p>This is an automated message. Please do not reply to this email.</p>
        </div>
    </div>
</body>
</html>
`, link, link, validFor)

	textBody := fmt.Sprintf(`Reset your password

We received a request to reset the password for your account. Follow the link below to choose a new one:

%s

This link expires in %s. If you did not ask for a reset, you can ignore this email.

This is an automated message. Please do not reply to this email.
`, link, validFor)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Reset your password"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to send password reset email via SES",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.InfoContext(ctx, "password reset email sent",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}

// LogEmailService records reset requests instead of sending them. Used when
// no sender address is configured.
type LogEmailService struct {
	logger *slog.Logger
}

func NewLogEmailService(logger *slog.Logger) *LogEmailService {
	return &LogEmailService{logger: logger}
}

func (s *LogEmailService) SendPasswordResetEmail(ctx context.Context, email, tenantID, _ string, expiresAt time.Time) error {
	s.logger.InfoContext(ctx, "password reset email suppressed: no sender configured",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("tenant", tenantID),
		slog.Time("expires_at", expiresAt))
	return nil
}
