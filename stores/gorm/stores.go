// Package gorm provides GORM-backed implementations of the authkit store
// interfaces. Works with any GORM dialect; tests run against sqlite.
package gorm

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	authkit "github.com/sandunsrimal/authkit"
)

// AutoMigrate runs database migrations for all authkit tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&AccountModel{},
		&RefreshTokenModel{},
		&SingleUseTokenModel{},
	)
}

// Stores implements AccountStore, RefreshTokenStore and SingleUseTokenStore
// over a single *gorm.DB.
type Stores struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Stores {
	return &Stores{db: db}
}

// =============================================================================
// AccountStore
// =============================================================================

func (s *Stores) CreateAccount(ctx context.Context, account *authkit.Account) error {
	err := s.db.WithContext(ctx).Create(AccountToModel(account)).Error
	if isDuplicateKey(err) {
		return authkit.ErrEmailExists
	}
	return err
}

func (s *Stores) AccountByEmail(ctx context.Context, email string) (*authkit.Account, error) {
	var model AccountModel
	err := s.db.WithContext(ctx).First(&model, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, authkit.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.ToAccount(), nil
}

func (s *Stores) AccountByID(ctx context.Context, id string) (*authkit.Account, error) {
	var model AccountModel
	err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, authkit.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.ToAccount(), nil
}

func (s *Stores) UpdateAccount(ctx context.Context, account *authkit.Account) error {
	result := s.db.WithContext(ctx).Model(&AccountModel{}).
		Where("id = ?", account.ID).
		Updates(map[string]any{
			"email":            account.Email,
			"name":             account.Name,
			"password_hash":    account.PasswordHash,
			"picture":          account.Picture,
			"role":             string(account.Role),
			"channel":          string(account.Channel),
			"provider_subject": account.ProviderSubject,
			"email_verified":   account.EmailVerified,
			"last_login_at":    account.LastLoginAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return authkit.ErrAccountNotFound
	}
	return nil
}

func (s *Stores) DeleteAccount(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&AccountModel{}, "id = ?", id).Error
}

// =============================================================================
// RefreshTokenStore
// =============================================================================

func (s *Stores) CreateRefreshToken(ctx context.Context, record *authkit.RefreshTokenRecord) error {
	return s.db.WithContext(ctx).Create(RecordToModel(record)).Error
}

func (s *Stores) RefreshTokenByValue(ctx context.Context, token string) (*authkit.RefreshTokenRecord, error) {
	var model RefreshTokenModel
	err := s.db.WithContext(ctx).First(&model, "token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, authkit.ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.ToRecord(), nil
}

func (s *Stores) DeleteRefreshToken(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).Delete(&RefreshTokenModel{}, "token = ?", token).Error
}

func (s *Stores) DeleteAccountRefreshTokens(ctx context.Context, accountID string) error {
	return s.db.WithContext(ctx).Delete(&RefreshTokenModel{}, "account_id = ?", accountID).Error
}

// =============================================================================
// SingleUseTokenStore
// =============================================================================

func (s *Stores) CreateSingleUseToken(ctx context.Context, token *authkit.SingleUseToken) error {
	return s.db.WithContext(ctx).Create(TokenToModel(token)).Error
}

// ConsumeSingleUseToken deletes the row only while it is still live, so two
// concurrent consumers race on the conditional delete and exactly one sees a
// row affected.
func (s *Stores) ConsumeSingleUseToken(ctx context.Context, purpose authkit.TokenPurpose, token string, now time.Time) (*authkit.SingleUseToken, error) {
	var consumed *authkit.SingleUseToken
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model SingleUseTokenModel
		err := tx.First(&model, "token = ? AND purpose = ?", token, string(purpose)).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return authkit.ErrTokenNotFound
		}
		if err != nil {
			return err
		}

		result := tx.Delete(&SingleUseTokenModel{},
			"token = ? AND purpose = ? AND expires_at > ?", token, string(purpose), now)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return authkit.ErrTokenNotFound
		}
		consumed = model.ToToken()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return consumed, nil
}

func (s *Stores) DeleteAccountSingleUseTokens(ctx context.Context, purpose authkit.TokenPurpose, accountID string) error {
	return s.db.WithContext(ctx).Delete(&SingleUseTokenModel{},
		"account_id = ? AND purpose = ?", accountID, string(purpose)).Error
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// sqlite reports constraint violations without a typed error.
	return strings.Contains(err.Error(), "UNIQUE constraint")
}
