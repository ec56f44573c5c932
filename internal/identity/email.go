package identity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// EmailSender delivers a one-time code to an address.
type EmailSender interface {
	SendCode(ctx context.Context, email, code string, expiresAt time.Time) error
}

// SESEmailSender sends one-time codes using AWS SES.
type SESEmailSender struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

// NewSESEmailSender creates an SES-backed sender for the given region
// and verified from-address.
func NewSESEmailSender(region, fromAddress string, logger *slog.Logger) (*SESEmailSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESEmailSender{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

// SendCode emails the one-time code.
func (s *SESEmailSender) SendCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	minutes := int(time.Until(expiresAt).Round(time.Minute).Minutes())

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; color: #333;">
    <div style="max-width: 480px; margin: 0 auto; padding: 20px;">
        <h2>Your verification code</h2>
        <p>Enter this code to verify your email address:</p>
        <p style="font-size: 32px; letter-spacing: 6px; font-weight: bold;">%s</p>
        <p>The code expires in %d minutes.</p>
        <p style="color: #666; font-size: 12px;">If you did not request this code, you can ignore this email.</p>
    </div>
</body>
</html>`, code, minutes)

	textBody := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, minutes)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String("Your verification code"),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data:    aws.String(htmlBody),
					Charset: aws.String("UTF-8"),
				},
				Text: &types.Content{
					Data:    aws.String(textBody),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	if _, err := s.sesClient.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("one-time code email sent")
	return nil
}
