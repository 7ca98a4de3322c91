package authkit_test

import (
	"context"
	"testing"
	"time"

	authkit "github.com/sandunsrimal/authkit"
	"github.com/sandunsrimal/authkit/stores/memory"
)

func TestSingleUseTokenConsumeOnce(t *testing.T) {
	ctx := context.Background()
	issuer := &authkit.SingleUseIssuer{Store: memory.New()}

	token, err := issuer.Issue(ctx, "acct-1", authkit.PurposeEmailVerification, authkit.TokenExpiryEmailVerification)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if len(token.Token) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(token.Token))
	}

	accountID, err := issuer.Consume(ctx, authkit.PurposeEmailVerification, token.Token)
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if accountID != "acct-1" {
		t.Errorf("accountID = %q", accountID)
	}

	// The same token must never redeem twice.
	if _, err := issuer.Consume(ctx, authkit.PurposeEmailVerification, token.Token); err != authkit.ErrTokenNotFound {
		t.Errorf("second consume: err = %v, want ErrTokenNotFound", err)
	}
}

func TestSingleUseTokenPurposeMismatch(t *testing.T) {
	ctx := context.Background()
	issuer := &authkit.SingleUseIssuer{Store: memory.New()}

	token, err := issuer.Issue(ctx, "acct-1", authkit.PurposePasswordReset, authkit.TokenExpiryPasswordReset)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := issuer.Consume(ctx, authkit.PurposeEmailVerification, token.Token); err != authkit.ErrTokenNotFound {
		t.Errorf("cross-purpose consume: err = %v, want ErrTokenNotFound", err)
	}
	// Still consumable under the right purpose.
	if _, err := issuer.Consume(ctx, authkit.PurposePasswordReset, token.Token); err != nil {
		t.Errorf("same-purpose consume failed: %v", err)
	}
}

func TestSingleUseTokenSupersede(t *testing.T) {
	ctx := context.Background()
	issuer := &authkit.SingleUseIssuer{Store: memory.New()}

	first, err := issuer.Issue(ctx, "acct-1", authkit.PurposeEmailVerification, authkit.TokenExpiryEmailVerification)
	if err != nil {
		t.Fatal(err)
	}
	second, err := issuer.Issue(ctx, "acct-1", authkit.PurposeEmailVerification, authkit.TokenExpiryEmailVerification)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := issuer.Consume(ctx, authkit.PurposeEmailVerification, first.Token); err != authkit.ErrTokenNotFound {
		t.Errorf("superseded token consumed: err = %v", err)
	}
	if _, err := issuer.Consume(ctx, authkit.PurposeEmailVerification, second.Token); err != nil {
		t.Errorf("latest token rejected: %v", err)
	}
}

func TestSingleUseTokenSupersedeIsPerPurpose(t *testing.T) {
	ctx := context.Background()
	issuer := &authkit.SingleUseIssuer{Store: memory.New()}

	reset, err := issuer.Issue(ctx, "acct-1", authkit.PurposePasswordReset, authkit.TokenExpiryPasswordReset)
	if err != nil {
		t.Fatal(err)
	}
	// A verification token must not disturb the pending reset token.
	if _, err := issuer.Issue(ctx, "acct-1", authkit.PurposeEmailVerification, authkit.TokenExpiryEmailVerification); err != nil {
		t.Fatal(err)
	}

	if _, err := issuer.Consume(ctx, authkit.PurposePasswordReset, reset.Token); err != nil {
		t.Errorf("reset token rejected after verification issue: %v", err)
	}
}

func TestSingleUseTokenExpiredBehavesLikeAbsent(t *testing.T) {
	ctx := context.Background()
	issuer := &authkit.SingleUseIssuer{Store: memory.New()}

	token, err := issuer.Issue(ctx, "acct-1", authkit.PurposeEmailVerification, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := issuer.Consume(ctx, authkit.PurposeEmailVerification, token.Token); err != authkit.ErrTokenNotFound {
		t.Errorf("expired token: err = %v, want ErrTokenNotFound", err)
	}
}

func TestGenerateSecureTokenUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		token, err := authkit.GenerateSecureToken()
		if err != nil {
			t.Fatal(err)
		}
		if seen[token] {
			t.Fatal("duplicate token generated")
		}
		seen[token] = true
	}
}
