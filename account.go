package authkit

import (
	"net/url"
	"time"
)

// Role controls what an authenticated account is allowed to do.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Channel identifies how an account's identity was established: a local
// password or one of the supported external providers.
type Channel string

const (
	ChannelPassword  Channel = "password"
	ChannelGoogle    Channel = "google"
	ChannelFacebook  Channel = "facebook"
	ChannelMicrosoft Channel = "microsoft"
)

// Account represents one human identity in the system.
//
// PasswordHash is set only for password-channel accounts. ProviderSubject is
// the external provider's stable subject id, set when an external identity
// has been linked to the account (at creation for provider-channel accounts,
// or later via the Reconciler for password accounts that log in socially).
type Account struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	PasswordHash    string    `json:"-"`
	Picture         string    `json:"picture"`
	Role            Role      `json:"role"`
	Channel         Channel   `json:"channel"`
	ProviderSubject string    `json:"-"`
	EmailVerified   bool      `json:"email_verified"`
	LastLoginAt     time.Time `json:"last_login_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// HasPassword reports whether the account can authenticate with a password.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != ""
}

// DefaultAvatarURL returns a generated avatar for accounts without a picture.
func DefaultAvatarURL(name string) string {
	if name == "" {
		name = "User"
	}
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=2563EB&color=ffffff"
}
