package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// EmailSender is the outbound-email collaborator.
type EmailSender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// AWSSESEmailSender sends mail through AWS SES.
type AWSSESEmailSender struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

func NewAWSSESEmailSender(region, fromAddress string, logger *slog.Logger) (*AWSSESEmailSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailSender{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

func (s *AWSSESEmailSender) Send(ctx context.Context, to, subject, html string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(html),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send email via SES", slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent", slog.String("message_id", *result.MessageId))
	return nil
}

// resetEmailHTML is the body of the password-reset message.
func resetEmailHTML(resetLink string) string {
	return fmt.Sprintf(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
	<h2>Password Reset Request</h2>
	<p>You requested a password reset for your admin account.</p>
	<p>Click the link below to reset your password. The link expires in 10 minutes.</p>
	<p><a href="%s">Reset Password</a></p>
	<p>If you did not request this, you can safely ignore this email.</p>
</div>`, resetLink)
}
