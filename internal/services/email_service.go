package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// EmailService defines the interface for sending emails
type EmailService interface {
	SendPasswordChangePIN(ctx context.Context, email, pin string, validFor time.Duration) error
}

// AWSSESEmailService sends emails using AWS SES
type AWSSESEmailService struct {
	sesClient   *ses.Client
	fromAddress string
	portalURL   string
	logger      *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(region, fromAddress, portalURL string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailService{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		portalURL:   portalURL,
		logger:      logger,
	}, nil
}

// SendPasswordChangePIN mails the one-time PIN that confirms a password change
func (s *AWSSESEmailService) SendPasswordChangePIN(ctx context.Context, email, pin string, validFor time.Duration) error {
	minutes := int(validFor.Minutes())

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #f8f9fa; padding: 20px; text-align: center; border-radius: 4px; }
        .content { padding: 20px 0; }
        .pin { font-size: 32px; letter-spacing: 8px; font-weight: bold; text-align: center; padding: 16px; background-color: #f8f9fa; border-radius: 4px; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
        .warning { background-color: #fff3cd; padding: 10px; border-left: 4px solid #ffc107; margin: 10px 0; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Bekreft passordendring</h1>
        </div>
        <div class="content">
            <p>Hei,</p>
            <p>Du har bedt om å endre passordet for kontoen din hos NORNEX. Skriv inn denne PIN-koden i portalen for å fullføre endringen:</p>
            <div class="pin">%s</div>
            <div class="warning">
                <strong>Merk:</strong> PIN-koden er gyldig i %d minutter.
            </div>
            <p><strong>Var ikke dette deg?</strong><br>
            Ignorer denne e-posten. Passordet ditt forblir uendret, og du bør avslutte ukjente økter under <a href="%s/konto/sikkerhet">Sikkerhet</a>.</p>
        </div>
        <div class="footer">
            <p>Dette er en automatisk melding. Ikke svar på denne e-posten.</p>
        </div>
    </div>
</body>
</html>
`, pin, minutes, s.portalURL)

	textBody := fmt.Sprintf(`Bekreft passordendring

Du har bedt om å endre passordet for kontoen din hos NORNEX. Skriv inn denne PIN-koden i portalen for å fullføre endringen:

%s

PIN-koden er gyldig i %d minutter.

Var ikke dette deg? Ignorer denne e-posten. Passordet ditt forblir uendret, og du bør avslutte ukjente økter under Sikkerhet:
%s/konto/sikkerhet

Dette er en automatisk melding. Ikke svar på denne e-posten.
`, pin, minutes, s.portalURL)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Din PIN-kode for passordendring"),
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
		s.logger.Error("failed to send PIN email via SES",
			slog.String("email", email),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("password change PIN email sent",
		slog.String("email", email),
		slog.String("message_id", *result.MessageId))

	return nil
}
