package authkit_test

import (
	"testing"
	"time"

	authkit "github.com/sandunsrimal/authkit"
)

func newTestSigner() *authkit.Signer {
	return (&authkit.Signer{
		AccessSecret:  []byte("access-secret-for-tests"),
		RefreshSecret: []byte("refresh-secret-for-tests"),
		Issuer:        "authkit-test",
	}).EnsureDefaults()
}

func testAccount() *authkit.Account {
	return &authkit.Account{
		ID:    "acct-1",
		Email: "user@example.com",
		Name:  "Test User",
		Role:  authkit.RoleUser,
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	signer := newTestSigner()

	token, err := signer.IssueAccessToken(testAccount())
	if err != nil {
		t.Fatalf("IssueAccessToken failed: %v", err)
	}

	claims, err := signer.Verify(token, authkit.TokenKindAccess)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.Subject != "acct-1" {
		t.Errorf("subject = %q, want acct-1", claims.Subject)
	}
	if claims.Email != "user@example.com" {
		t.Errorf("email = %q", claims.Email)
	}
	if claims.Role != authkit.RoleUser {
		t.Errorf("role = %q", claims.Role)
	}
	if claims.Kind != authkit.TokenKindAccess {
		t.Errorf("kind = %q", claims.Kind)
	}
}

func TestTokenKindsAreNotInterchangeable(t *testing.T) {
	signer := newTestSigner()

	access, err := signer.IssueAccessToken(testAccount())
	if err != nil {
		t.Fatal(err)
	}
	refresh, err := signer.IssueRefreshToken("acct-1")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := signer.Verify(access, authkit.TokenKindRefresh); err != authkit.ErrTokenInvalid {
		t.Errorf("access token verified as refresh: err = %v", err)
	}
	if _, err := signer.Verify(refresh, authkit.TokenKindAccess); err != authkit.ErrTokenInvalid {
		t.Errorf("refresh token verified as access: err = %v", err)
	}
}

func TestExpiredVsInvalid(t *testing.T) {
	signer := newTestSigner()
	signer.AccessTTL = -time.Minute

	expired, err := signer.IssueAccessToken(testAccount())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := signer.Verify(expired, authkit.TokenKindAccess); err != authkit.ErrTokenExpired {
		t.Errorf("expired token: err = %v, want ErrTokenExpired", err)
	}

	if _, err := signer.Verify("not.a.token", authkit.TokenKindAccess); err != authkit.ErrTokenInvalid {
		t.Errorf("garbage token: err = %v, want ErrTokenInvalid", err)
	}
	if _, err := signer.Verify("", authkit.TokenKindAccess); err != authkit.ErrTokenInvalid {
		t.Errorf("empty token: err = %v, want ErrTokenInvalid", err)
	}
}

func TestWrongKeyIsInvalidNotExpired(t *testing.T) {
	signer := newTestSigner()
	other := (&authkit.Signer{
		AccessSecret:  []byte("a-completely-different-key"),
		RefreshSecret: []byte("another-different-key"),
	}).EnsureDefaults()

	token, err := signer.IssueAccessToken(testAccount())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Verify(token, authkit.TokenKindAccess); err != authkit.ErrTokenInvalid {
		t.Errorf("foreign-key token: err = %v, want ErrTokenInvalid", err)
	}
}
