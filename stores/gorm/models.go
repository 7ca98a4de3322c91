package gorm

import (
	"time"

	authkit "github.com/sandunsrimal/authkit"
)

// AccountModel is the GORM model for accounts.
type AccountModel struct {
	ID              string    `gorm:"primaryKey;size:64"`
	Email           string    `gorm:"size:320;uniqueIndex"`
	Name            string    `gorm:"size:255"`
	PasswordHash    string    `gorm:"size:255"`
	Picture         string    `gorm:"size:2048"`
	Role            string    `gorm:"size:32"`
	Channel         string    `gorm:"size:32"`
	ProviderSubject string    `gorm:"size:255"`
	EmailVerified   bool      `gorm:"default:false"`
	LastLoginAt     time.Time
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (AccountModel) TableName() string {
	return "accounts"
}

func (m *AccountModel) ToAccount() *authkit.Account {
	return &authkit.Account{
		ID:              m.ID,
		Email:           m.Email,
		Name:            m.Name,
		PasswordHash:    m.PasswordHash,
		Picture:         m.Picture,
		Role:            authkit.Role(m.Role),
		Channel:         authkit.Channel(m.Channel),
		ProviderSubject: m.ProviderSubject,
		EmailVerified:   m.EmailVerified,
		LastLoginAt:     m.LastLoginAt,
		CreatedAt:       m.CreatedAt,
	}
}

func AccountToModel(a *authkit.Account) *AccountModel {
	return &AccountModel{
		ID:              a.ID,
		Email:           a.Email,
		Name:            a.Name,
		PasswordHash:    a.PasswordHash,
		Picture:         a.Picture,
		Role:            string(a.Role),
		Channel:         string(a.Channel),
		ProviderSubject: a.ProviderSubject,
		EmailVerified:   a.EmailVerified,
		LastLoginAt:     a.LastLoginAt,
		CreatedAt:       a.CreatedAt,
	}
}

// RefreshTokenModel is the GORM model for refresh-token records.
type RefreshTokenModel struct {
	Token     string    `gorm:"primaryKey;size:1024"`
	AccountID string    `gorm:"size:64;index"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (RefreshTokenModel) TableName() string {
	return "refresh_tokens"
}

func (m *RefreshTokenModel) ToRecord() *authkit.RefreshTokenRecord {
	return &authkit.RefreshTokenRecord{
		Token:     m.Token,
		AccountID: m.AccountID,
		ExpiresAt: m.ExpiresAt,
	}
}

func RecordToModel(r *authkit.RefreshTokenRecord) *RefreshTokenModel {
	return &RefreshTokenModel{
		Token:     r.Token,
		AccountID: r.AccountID,
		ExpiresAt: r.ExpiresAt,
	}
}

// SingleUseTokenModel is the GORM model for verification and reset tokens.
// Both purposes share one table; the purpose column keeps them apart.
type SingleUseTokenModel struct {
	Token     string    `gorm:"primaryKey;size:128"`
	AccountID string    `gorm:"size:64;index:idx_single_use_account"`
	Purpose   string    `gorm:"size:32;index:idx_single_use_account"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (SingleUseTokenModel) TableName() string {
	return "single_use_tokens"
}

func (m *SingleUseTokenModel) ToToken() *authkit.SingleUseToken {
	return &authkit.SingleUseToken{
		Token:     m.Token,
		AccountID: m.AccountID,
		Purpose:   authkit.TokenPurpose(m.Purpose),
		ExpiresAt: m.ExpiresAt,
	}
}

func TokenToModel(t *authkit.SingleUseToken) *SingleUseTokenModel {
	return &SingleUseTokenModel{
		Token:     t.Token,
		AccountID: t.AccountID,
		Purpose:   string(t.Purpose),
		ExpiresAt: t.ExpiresAt,
	}
}
