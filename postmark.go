package authkit

import (
	"context"
	"fmt"

	"github.com/mrz1836/postmark"
)

// PostmarkEmailSender delivers verification and reset emails through the
// Postmark API.
type PostmarkEmailSender struct {
	client *postmark.Client

	// From is the sender address, which must be a verified Postmark sender
	// signature.
	From string

	// AppName appears in subjects and bodies, e.g. "MyApp".
	AppName string
}

// NewPostmarkEmailSender creates a sender using the given server token.
func NewPostmarkEmailSender(serverToken, from, appName string) *PostmarkEmailSender {
	return &PostmarkEmailSender{
		client:  postmark.NewClient(serverToken, ""),
		From:    from,
		AppName: appName,
	}
}

func (s *PostmarkEmailSender) SendVerificationEmail(to, name, link string) error {
	subject := fmt.Sprintf("Verify your %s email address", s.AppName)
	body := fmt.Sprintf(
		`<p>Hi %s,</p>
<p>Welcome to %s! Please confirm your email address by clicking the link below. The link expires in 5 minutes.</p>
<p><a href="%s">Verify email address</a></p>
<p>If you did not create an account, you can safely ignore this email.</p>`,
		name, s.AppName, link)
	return s.send(to, subject, body)
}

func (s *PostmarkEmailSender) SendPasswordResetEmail(to, name, link string) error {
	subject := fmt.Sprintf("Reset your %s password", s.AppName)
	body := fmt.Sprintf(
		`<p>Hi %s,</p>
<p>We received a request to reset your password. Click the link below to choose a new one. The link expires in 15 minutes.</p>
<p><a href="%s">Reset password</a></p>
<p>If you did not request a reset, you can safely ignore this email and your password will stay unchanged.</p>`,
		name, link)
	return s.send(to, subject, body)
}

func (s *PostmarkEmailSender) send(to, subject, htmlBody string) error {
	resp, err := s.client.SendEmail(context.Background(), postmark.Email{
		From:       s.From,
		To:         to,
		Subject:    subject,
		HTMLBody:   htmlBody,
		TrackOpens: true,
	})
	if err != nil {
		return fmt.Errorf("postmark send failed: %w", err)
	}
	if resp.ErrorCode != 0 {
		return fmt.Errorf("postmark send failed: %s (code %d)", resp.Message, resp.ErrorCode)
	}
	return nil
}
