package authkit

import "log"

// EmailSender delivers the transactional emails the auth flows depend on.
// The link passed in is the full frontend URL carrying the single-use token.
type EmailSender interface {
	SendVerificationEmail(to, name, link string) error
	SendPasswordResetEmail(to, name, link string) error
}

// ConsoleEmailSender prints emails to the process log instead of delivering
// them. Useful in development and tests where no mail provider is configured.
type ConsoleEmailSender struct{}

func (ConsoleEmailSender) SendVerificationEmail(to, name, link string) error {
	log.Printf("Verification email for %s <%s>: %s", name, to, link)
	return nil
}

func (ConsoleEmailSender) SendPasswordResetEmail(to, name, link string) error {
	log.Printf("Password reset email for %s <%s>: %s", name, to, link)
	return nil
}
