package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

// EmailService sends transactional emails.
type EmailService interface {
	SendPasswordReset(ctx context.Context, toEmail, resetToken string) error
	SendReceipt(ctx context.Context, toEmail, receiptNumber string, amount int64) error
}

// NoopEmailService is used when outgoing email is disabled.
type NoopEmailService struct{}

func (s *NoopEmailService) SendPasswordReset(ctx context.Context, toEmail, resetToken string) error {
	log.Printf("[EmailService] noop send password reset to=%s", toEmail)
	return nil
}

func (s *NoopEmailService) SendReceipt(ctx context.Context, toEmail, receiptNumber string, amount int64) error {
	log.Printf("[EmailService] noop send receipt %s to=%s", receiptNumber, toEmail)
	return nil
}

// ResendEmailService sends emails via Resend REST API.
type ResendEmailService struct {
	from    string
	baseURL string
	client  *resend.Client
}

func NewResendEmailService(apiKey, from, baseURL string) (*ResendEmailService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	return &ResendEmailService{
		from:    from,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  resend.NewClient(apiKey),
	}, nil
}

func (s *ResendEmailService) SendPasswordReset(ctx context.Context, toEmail, resetToken string) error {
	if toEmail == "" || resetToken == "" {
		return fmt.Errorf("toEmail and resetToken are required")
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, resetToken)
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{toEmail},
		Subject: "Reset your password",
		Text:    fmt.Sprintf("Open this link to reset your password: %s. The link expires in 1 hour.", link),
		Html:    fmt.Sprintf("<p>Open this link to reset your password:</p><p><a href=%q>%s</a></p><p>The link expires in 1 hour.</p>", link, link),
	}

	return s.sendWithRetries(ctx, params, "reset-"+resetToken[:16])
}

func (s *ResendEmailService) SendReceipt(ctx context.Context, toEmail, receiptNumber string, amount int64) error {
	if toEmail == "" || receiptNumber == "" {
		return fmt.Errorf("toEmail and receiptNumber are required")
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{toEmail},
		Subject: fmt.Sprintf("Receipt %s", receiptNumber),
		Text:    fmt.Sprintf("Thank you for your payment. Receipt %s, amount Rp%d.", receiptNumber, amount),
		Html:    fmt.Sprintf("<p>Thank you for your payment.</p><p>Receipt <strong>%s</strong>, amount Rp%d.</p>", receiptNumber, amount),
	}

	return s.sendWithRetries(ctx, params, "receipt-"+receiptNumber)
}

func (s *ResendEmailService) sendWithRetries(ctx context.Context, params *resend.SendEmailRequest, idempotencyKey string) error {
	options := &resend.SendEmailOptions{}
	if strings.TrimSpace(idempotencyKey) != "" {
		options.IdempotencyKey = strings.TrimSpace(idempotencyKey)
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		_, err := s.client.Emails.SendWithOptions(ctx, params, options)
		if err == nil {
			return nil
		}
		lastErr = err

		if wait, ok := resendRetryDelay(err, attempt); ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		return fmt.Errorf("resend send failed: %w", err)
	}

	return fmt.Errorf("resend send failed after retries: %w", lastErr)
}

func resendRetryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimitErr *resend.RateLimitError
	if errors.As(err, &rateLimitErr) {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(rateLimitErr.RetryAfter)); convErr == nil && seconds > 0 {
			if seconds > 30 {
				seconds = 30
			}
			return time.Duration(seconds) * time.Second, true
		}
		return time.Duration(attempt+1) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && (netErr.Timeout() || netErr.Temporary()) {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "temporar") {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	return 0, false
}
