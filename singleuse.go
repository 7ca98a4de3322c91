package authkit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// GenerateSecureToken generates a cryptographically secure random token:
// 32 random bytes, hex encoded (256 bits of entropy).
func GenerateSecureToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// SingleUseIssuer issues and consumes opaque single-use tokens for email
// verification and password reset.
//
// Issuing a token first deletes every existing token of the same purpose for
// the account, so at most one token per (account, purpose) is ever live and
// storage cannot grow with repeated requests. Consumption deletes the record
// in the same conditional step that grants the capability, so a token cannot
// be replayed even by a retrying caller.
type SingleUseIssuer struct {
	Store SingleUseTokenStore
}

// Issue creates a fresh token for the account with the given time-to-live,
// superseding any prior token of the same purpose.
func (i *SingleUseIssuer) Issue(ctx context.Context, accountID string, purpose TokenPurpose, ttl time.Duration) (*SingleUseToken, error) {
	if err := i.Store.DeleteAccountSingleUseTokens(ctx, purpose, accountID); err != nil {
		return nil, fmt.Errorf("failed to supersede prior tokens: %w", err)
	}

	value, err := GenerateSecureToken()
	if err != nil {
		return nil, err
	}

	token := &SingleUseToken{
		Token:     value,
		AccountID: accountID,
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := i.Store.CreateSingleUseToken(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}
	return token, nil
}

// Consume redeems a token of the given purpose exactly once, returning the
// owning account id. A token that is unknown, expired, of a different purpose
// or already consumed yields ErrTokenNotFound in all cases.
func (i *SingleUseIssuer) Consume(ctx context.Context, purpose TokenPurpose, token string) (string, error) {
	record, err := i.Store.ConsumeSingleUseToken(ctx, purpose, token, time.Now())
	if err != nil {
		return "", err
	}
	return record.AccountID, nil
}
