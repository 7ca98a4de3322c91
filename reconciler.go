package authkit

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// ExternalIdentity is an externally-verified identity assertion produced by a
// provider callback after a successful code exchange and profile fetch.
type ExternalIdentity struct {
	Provider  Channel
	SubjectID string
	Email     string
	Name      string
	Picture   string
}

// Reconciler matches an externally-asserted identity to a local account by
// email, creating or linking as needed.
//
// Linking is first-provider-wins: an account with no linked subject id gains
// this provider's subject, so a password-registered account picks up a social
// login path without losing its password. An account that already carries a
// subject id is never re-linked to a different one, which stops a second
// provider claiming the same email from taking over the account. Trusting
// email equality across providers as proof of same-person identity is a
// deliberate tradeoff of this design.
type Reconciler struct {
	Accounts AccountStore
}

// Reconcile finds or creates the local account for the identity and returns
// it with last-login updated. It performs no mutation unless the provider
// flow already succeeded; callers must not invoke it on provider errors.
func (r *Reconciler) Reconcile(ctx context.Context, ident ExternalIdentity) (*Account, error) {
	if ident.Email == "" {
		return nil, fmt.Errorf("%w: provider returned no email", ErrProviderAuth)
	}

	email := NormalizeEmail(ident.Email)
	now := time.Now()

	account, err := r.Accounts.AccountByEmail(ctx, email)
	if err == ErrAccountNotFound {
		return r.createAccount(ctx, ident, email, now)
	}
	if err != nil {
		return nil, err
	}

	if account.ProviderSubject == "" {
		// First provider to show up wins the link. The password hash, if
		// any, is left untouched.
		account.ProviderSubject = ident.SubjectID
		log.Printf("Linked %s identity to account %s", ident.Provider, account.ID)
	}
	account.LastLoginAt = now
	if err := r.Accounts.UpdateAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (r *Reconciler) createAccount(ctx context.Context, ident ExternalIdentity, email string, now time.Time) (*Account, error) {
	picture := ident.Picture
	if picture == "" {
		picture = DefaultAvatarURL(ident.Name)
	}

	account := &Account{
		ID:              uuid.NewString(),
		Email:           email,
		Name:            ident.Name,
		Picture:         picture,
		Role:            RoleUser,
		Channel:         ident.Provider,
		ProviderSubject: ident.SubjectID,
		// The provider already verified this email.
		EmailVerified: true,
		LastLoginAt:   now,
		CreatedAt:     now,
	}
	if err := r.Accounts.CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	log.Printf("Created %s account %s", ident.Provider, account.ID)
	return account, nil
}
