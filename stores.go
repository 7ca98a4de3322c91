package authkit

import (
	"context"
	"time"
)

// AccountStore persists accounts. Implementations must enforce email
// uniqueness (case-insensitive) at the storage layer so that concurrent
// registrations cannot both succeed.
type AccountStore interface {
	// CreateAccount persists a new account. Returns ErrEmailExists if the
	// email is already registered.
	CreateAccount(ctx context.Context, account *Account) error

	// AccountByEmail looks up an account by its (lowercased) email.
	// Returns ErrAccountNotFound if no account matches.
	AccountByEmail(ctx context.Context, email string) (*Account, error)

	// AccountByID looks up an account by id.
	AccountByID(ctx context.Context, id string) (*Account, error)

	// UpdateAccount persists all mutable fields of an existing account.
	UpdateAccount(ctx context.Context, account *Account) error

	// DeleteAccount removes the account. Refresh-token cleanup is the
	// caller's responsibility (see SessionManager.DeleteAccount).
	DeleteAccount(ctx context.Context, id string) error
}

// RefreshTokenRecord is one live, revocable long-lived credential. The record
// existing and being unexpired is what makes the bearer token renewable;
// deleting it revokes the token regardless of its embedded expiry.
type RefreshTokenRecord struct {
	Token     string
	AccountID string
	ExpiresAt time.Time
}

// RefreshTokenStore persists refresh-token records. Multiple concurrent
// records per account are permitted (multi-device sessions).
type RefreshTokenStore interface {
	CreateRefreshToken(ctx context.Context, record *RefreshTokenRecord) error

	// RefreshTokenByValue returns the record for a token value, expired or
	// not; expiry is the caller's check. Returns ErrTokenNotFound if absent.
	RefreshTokenByValue(ctx context.Context, token string) (*RefreshTokenRecord, error)

	// DeleteRefreshToken removes a record by token value. Deleting a
	// non-existent record is not an error (logout is idempotent).
	DeleteRefreshToken(ctx context.Context, token string) error

	// DeleteAccountRefreshTokens revokes every session for an account.
	DeleteAccountRefreshTokens(ctx context.Context, accountID string) error
}

// TokenPurpose selects which single-use token collection a record lives in.
type TokenPurpose string

const (
	PurposeEmailVerification TokenPurpose = "email_verification"
	PurposePasswordReset     TokenPurpose = "password_reset"
)

// Default single-use token lifetimes.
const (
	TokenExpiryEmailVerification = 5 * time.Minute
	TokenExpiryPasswordReset     = 15 * time.Minute
)

// SingleUseToken is a narrow-window capability for email verification or
// password reset.
type SingleUseToken struct {
	Token     string
	AccountID string
	Purpose   TokenPurpose
	ExpiresAt time.Time
}

// IsExpired reports whether the token's window has closed at the given time.
func (t *SingleUseToken) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// SingleUseTokenStore persists single-use tokens. There is no background
// sweep for expired records: every read path filters by expiry so an unswept
// expired record behaves exactly like a missing one.
type SingleUseTokenStore interface {
	CreateSingleUseToken(ctx context.Context, token *SingleUseToken) error

	// ConsumeSingleUseToken atomically finds a live token (expiry strictly
	// after now) and deletes it, returning the record. The delete is
	// conditional so that of two concurrent consumers exactly one wins;
	// the other observes ErrTokenNotFound, as does any caller presenting
	// an expired or unknown token.
	ConsumeSingleUseToken(ctx context.Context, purpose TokenPurpose, token string, now time.Time) (*SingleUseToken, error)

	// DeleteAccountSingleUseTokens removes every token of the purpose for
	// the account, live or expired.
	DeleteAccountSingleUseTokens(ctx context.Context, purpose TokenPurpose, accountID string) error
}
