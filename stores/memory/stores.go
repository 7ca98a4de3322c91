// Package memory provides in-process, mutex-guarded implementations of the
// authkit store interfaces. Suitable for tests and single-process demos;
// nothing survives a restart.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	authkit "github.com/sandunsrimal/authkit"
)

// Stores bundles all three store implementations over shared maps.
type Stores struct {
	mu            sync.Mutex
	accountsByID  map[string]*authkit.Account
	refreshTokens map[string]*authkit.RefreshTokenRecord
	singleUse     map[string]*authkit.SingleUseToken
}

func New() *Stores {
	return &Stores{
		accountsByID:  map[string]*authkit.Account{},
		refreshTokens: map[string]*authkit.RefreshTokenRecord{},
		singleUse:     map[string]*authkit.SingleUseToken{},
	}
}

// =============================================================================
// AccountStore
// =============================================================================

func (s *Stores) CreateAccount(ctx context.Context, account *authkit.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accountsByID {
		if strings.EqualFold(existing.Email, account.Email) {
			return authkit.ErrEmailExists
		}
	}
	copied := *account
	s.accountsByID[account.ID] = &copied
	return nil
}

func (s *Stores) AccountByEmail(ctx context.Context, email string) (*authkit.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range s.accountsByID {
		if strings.EqualFold(account.Email, email) {
			copied := *account
			return &copied, nil
		}
	}
	return nil, authkit.ErrAccountNotFound
}

func (s *Stores) AccountByID(ctx context.Context, id string) (*authkit.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accountsByID[id]
	if !ok {
		return nil, authkit.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (s *Stores) UpdateAccount(ctx context.Context, account *authkit.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accountsByID[account.ID]; !ok {
		return authkit.ErrAccountNotFound
	}
	copied := *account
	s.accountsByID[account.ID] = &copied
	return nil
}

func (s *Stores) DeleteAccount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accountsByID, id)
	return nil
}

// =============================================================================
// RefreshTokenStore
// =============================================================================

func (s *Stores) CreateRefreshToken(ctx context.Context, record *authkit.RefreshTokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *record
	s.refreshTokens[record.Token] = &copied
	return nil
}

func (s *Stores) RefreshTokenByValue(ctx context.Context, token string) (*authkit.RefreshTokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.refreshTokens[token]
	if !ok {
		return nil, authkit.ErrTokenNotFound
	}
	copied := *record
	return &copied, nil
}

func (s *Stores) DeleteRefreshToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refreshTokens, token)
	return nil
}

func (s *Stores) DeleteAccountRefreshTokens(ctx context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, record := range s.refreshTokens {
		if record.AccountID == accountID {
			delete(s.refreshTokens, token)
		}
	}
	return nil
}

// =============================================================================
// SingleUseTokenStore
// =============================================================================

func (s *Stores) CreateSingleUseToken(ctx context.Context, token *authkit.SingleUseToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *token
	s.singleUse[token.Token] = &copied
	return nil
}

func (s *Stores) ConsumeSingleUseToken(ctx context.Context, purpose authkit.TokenPurpose, token string, now time.Time) (*authkit.SingleUseToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.singleUse[token]
	if !ok || record.Purpose != purpose || record.IsExpired(now) {
		return nil, authkit.ErrTokenNotFound
	}
	delete(s.singleUse, token)
	copied := *record
	return &copied, nil
}

func (s *Stores) DeleteAccountSingleUseTokens(ctx context.Context, purpose authkit.TokenPurpose, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for value, record := range s.singleUse {
		if record.AccountID == accountID && record.Purpose == purpose {
			delete(s.singleUse, value)
		}
	}
	return nil
}
