package authkit

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// TokenPair is the result of a successful authentication event: a fresh
// access/refresh pair with the owning account's id and verification state.
type TokenPair struct {
	AccountID     string `json:"userId"`
	AccessToken   string `json:"accessToken"`
	RefreshToken  string `json:"refreshToken"`
	EmailVerified bool   `json:"isEmailVerified"`
}

// SessionManager orchestrates login, registration, refresh, logout and the
// verification/reset flows. It owns the rules for what gets created, replaced
// or revoked on each transition; persistence, hashing, signing and email
// dispatch are delegated to its collaborators.
type SessionManager struct {
	Accounts      AccountStore
	RefreshTokens RefreshTokenStore
	Tokens        *SingleUseIssuer
	Signer        *Signer
	Hasher        *PasswordHasher
	Email         EmailSender

	// FrontendURL is the base for verification and reset links.
	FrontendURL string
}

// Register creates a password-channel account, dispatches a verification
// email and returns a fresh token pair. The account is created unverified;
// if token issuance or email dispatch fails afterwards the account still
// exists and verification can be resent, so those failures are logged rather
// than propagated.
func (m *SessionManager) Register(ctx context.Context, email, password, name, picture string) (*TokenPair, error) {
	if verr := ValidateEmail(email); verr != nil {
		return nil, verr
	}
	if verr := ValidatePassword(password); verr != nil {
		return nil, verr
	}

	hash, err := m.Hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if picture == "" {
		picture = DefaultAvatarURL(name)
	}
	account := &Account{
		ID:            uuid.NewString(),
		Email:         NormalizeEmail(email),
		Name:          name,
		PasswordHash:  hash,
		Picture:       picture,
		Role:          RoleUser,
		Channel:       ChannelPassword,
		EmailVerified: false,
		LastLoginAt:   now,
		CreatedAt:     now,
	}
	if err := m.Accounts.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	m.sendVerification(ctx, account)

	return m.IssueSession(ctx, account)
}

// Login authenticates a password-channel account. An unknown email and a
// password mismatch produce the same ErrInvalidCredentials so the two cases
// cannot be told apart. Other live sessions are left untouched.
func (m *SessionManager) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	account, err := m.Accounts.AccountByEmail(ctx, NormalizeEmail(email))
	if err == ErrAccountNotFound {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !m.Hasher.Verify(password, account.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	account.LastLoginAt = time.Now()
	if err := m.Accounts.UpdateAccount(ctx, account); err != nil {
		return nil, err
	}

	return m.IssueSession(ctx, account)
}

// Refresh rotates a session: the presented refresh token's record is deleted
// and a new access/refresh pair is issued, with the new refresh token getting
// the full lifetime again. Clients must replace their stored refresh token on
// every call.
//
// ErrTokenExpired means the session aged out normally and the client should
// re-login; ErrTokenInvalid means the token was revoked, forged or malformed
// and the client should force full re-authentication.
//
// The delete and the re-issue are separate store calls. If issuing fails
// after the delete the session is lost and the client must log in again; the
// failure mode errs toward revocation, never toward two live tokens.
func (m *SessionManager) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	record, err := m.RefreshTokens.RefreshTokenByValue(ctx, refreshToken)
	if err == ErrTokenNotFound {
		return nil, ErrTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	if !record.ExpiresAt.After(time.Now()) {
		// The record outlived its welcome; remove it on the way out.
		_ = m.RefreshTokens.DeleteRefreshToken(ctx, refreshToken)
		return nil, ErrTokenExpired
	}

	claims, err := m.Signer.Verify(refreshToken, TokenKindRefresh)
	if err != nil {
		return nil, err
	}

	account, err := m.Accounts.AccountByID(ctx, claims.Subject)
	if err == ErrAccountNotFound {
		return nil, ErrTokenInvalid
	}
	if err != nil {
		return nil, err
	}

	if err := m.RefreshTokens.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return nil, err
	}
	return m.IssueSession(ctx, account)
}

// Logout revokes the session for the presented refresh token. It is
// idempotent: logging out an unknown or already-revoked token succeeds.
func (m *SessionManager) Logout(ctx context.Context, refreshToken string) error {
	return m.RefreshTokens.DeleteRefreshToken(ctx, refreshToken)
}

// ChangePassword re-hashes and stores a new password after checking the
// current one. Other active sessions are deliberately not revoked; only
// account deletion does that.
func (m *SessionManager) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	account, err := m.Accounts.AccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !m.Hasher.Verify(currentPassword, account.PasswordHash) {
		return ErrInvalidCredentials
	}
	if verr := ValidatePassword(newPassword); verr != nil {
		return verr
	}

	hash, err := m.Hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	account.PasswordHash = hash
	return m.Accounts.UpdateAccount(ctx, account)
}

// ForgotPassword issues a reset token and emails a reset link if the email is
// registered. It returns nil either way so callers can answer with the same
// generic message and reveal nothing about which emails exist.
func (m *SessionManager) ForgotPassword(ctx context.Context, email string) error {
	account, err := m.Accounts.AccountByEmail(ctx, NormalizeEmail(email))
	if err == ErrAccountNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	token, err := m.Tokens.Issue(ctx, account.ID, PurposePasswordReset, TokenExpiryPasswordReset)
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s/reset-password/%s", m.FrontendURL, token.Token)
	if err := m.Email.SendPasswordResetEmail(account.Email, account.Name, link); err != nil {
		log.Printf("Error sending reset email: %v", err)
	}
	return nil
}

// ResetPassword consumes a reset token and stores the new password. The
// strength check runs before consumption so a rejected replacement leaves the
// token live for a retry; once consumed, a second attempt with the same token
// fails even inside its time window. Existing sessions are not revoked.
func (m *SessionManager) ResetPassword(ctx context.Context, token, newPassword string) error {
	if verr := ValidatePassword(newPassword); verr != nil {
		return verr
	}
	accountID, err := m.Tokens.Consume(ctx, PurposePasswordReset, token)
	if err != nil {
		return err
	}

	account, err := m.Accounts.AccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	hash, err := m.Hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	account.PasswordHash = hash
	return m.Accounts.UpdateAccount(ctx, account)
}

// VerifyEmail consumes a verification token, marks the account verified and
// issues a fresh token pair (verification counts as a login event).
func (m *SessionManager) VerifyEmail(ctx context.Context, token string) (*TokenPair, error) {
	accountID, err := m.Tokens.Consume(ctx, PurposeEmailVerification, token)
	if err != nil {
		return nil, err
	}

	account, err := m.Accounts.AccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	account.EmailVerified = true
	account.LastLoginAt = time.Now()
	if err := m.Accounts.UpdateAccount(ctx, account); err != nil {
		return nil, err
	}

	return m.IssueSession(ctx, account)
}

// ResendVerification issues a fresh verification token, superseding any prior
// one, and emails the link. Rejected with ErrAlreadyVerified for accounts
// whose email is already verified. Unlike registration, a failing email
// dispatch is reported here: resend exists to recover from exactly that.
func (m *SessionManager) ResendVerification(ctx context.Context, accountID string) error {
	account, err := m.Accounts.AccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.EmailVerified {
		return ErrAlreadyVerified
	}

	token, err := m.Tokens.Issue(ctx, account.ID, PurposeEmailVerification, TokenExpiryEmailVerification)
	if err != nil {
		return err
	}
	link := fmt.Sprintf("%s/verify-email/%s", m.FrontendURL, token.Token)
	if err := m.Email.SendVerificationEmail(account.Email, account.Name, link); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}

// Account returns the account for an id.
func (m *SessionManager) Account(ctx context.Context, accountID string) (*Account, error) {
	return m.Accounts.AccountByID(ctx, accountID)
}

// UpdateProfile patches display name and/or picture; empty fields are left
// unchanged.
func (m *SessionManager) UpdateProfile(ctx context.Context, accountID, name, picture string) (*Account, error) {
	account, err := m.Accounts.AccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if name != "" {
		account.Name = name
	}
	if picture != "" {
		account.Picture = picture
	}
	if err := m.Accounts.UpdateAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// DeleteAccount removes the account after checking the password. Every
// refresh-token record for the account is deleted first, so all sessions are
// revoked even if the account delete itself fails partway.
func (m *SessionManager) DeleteAccount(ctx context.Context, accountID, password string) error {
	account, err := m.Accounts.AccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !m.Hasher.Verify(password, account.PasswordHash) {
		return ErrInvalidCredentials
	}

	if err := m.RefreshTokens.DeleteAccountRefreshTokens(ctx, accountID); err != nil {
		return err
	}
	return m.Accounts.DeleteAccount(ctx, accountID)
}

// IssueSession mints an access/refresh pair for the account and persists the
// refresh-token record. Used by every transition that counts as a login,
// including external-provider reconciliation.
func (m *SessionManager) IssueSession(ctx context.Context, account *Account) (*TokenPair, error) {
	accessToken, err := m.Signer.IssueAccessToken(account)
	if err != nil {
		return nil, err
	}
	refreshToken, err := m.Signer.IssueRefreshToken(account.ID)
	if err != nil {
		return nil, err
	}

	record := &RefreshTokenRecord{
		Token:     refreshToken,
		AccountID: account.ID,
		ExpiresAt: time.Now().Add(m.Signer.RefreshTTL),
	}
	if err := m.RefreshTokens.CreateRefreshToken(ctx, record); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccountID:     account.ID,
		AccessToken:   accessToken,
		RefreshToken:  refreshToken,
		EmailVerified: account.EmailVerified,
	}, nil
}

// sendVerification issues a verification token and dispatches the email,
// logging failures instead of propagating them.
func (m *SessionManager) sendVerification(ctx context.Context, account *Account) {
	token, err := m.Tokens.Issue(ctx, account.ID, PurposeEmailVerification, TokenExpiryEmailVerification)
	if err != nil {
		log.Printf("Error creating verification token: %v", err)
		return
	}
	link := fmt.Sprintf("%s/verify-email/%s", m.FrontendURL, token.Token)
	if err := m.Email.SendVerificationEmail(account.Email, account.Name, link); err != nil {
		log.Printf("Error sending verification email: %v", err)
	}
}
