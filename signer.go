package authkit

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind tags a signed token with its purpose so an access token can
// never be substituted for a refresh token or vice versa.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Default bearer-token lifetimes.
const (
	TokenExpiryAccess  = 15 * time.Minute
	TokenExpiryRefresh = 7 * 24 * time.Hour
)

// Claims is the claim set carried by signed tokens. Access tokens carry the
// full identity (email, name, role); refresh tokens carry only the subject.
type Claims struct {
	jwt.RegisteredClaims
	Email string    `json:"email,omitempty"`
	Name  string    `json:"name,omitempty"`
	Role  Role      `json:"role,omitempty"`
	Kind  TokenKind `json:"kind"`
}

// Signer produces and verifies signed, time-bounded bearer tokens. Access and
// refresh tokens are signed with independent keys so leaking one cannot forge
// the other.
type Signer struct {
	AccessSecret  []byte
	RefreshSecret []byte

	// Issuer claim, e.g. the application name.
	Issuer string

	// AccessTTL defaults to 15 minutes, RefreshTTL to 7 days.
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// EnsureDefaults fills in zero-valued configuration. Call it once at
// construction; the signer's fields are read-only afterwards.
func (s *Signer) EnsureDefaults() *Signer {
	if s.AccessTTL <= 0 {
		s.AccessTTL = TokenExpiryAccess
	}
	if s.RefreshTTL <= 0 {
		s.RefreshTTL = TokenExpiryRefresh
	}
	return s
}

// IssueAccessToken signs a short-lived access token for the account.
func (s *Signer) IssueAccessToken(account *Account) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			Issuer:    s.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.AccessTTL)),
		},
		Email: account.Email,
		Name:  account.Name,
		Role:  account.Role,
		Kind:  TokenKindAccess,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.AccessSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefreshToken signs a long-lived refresh token for the account. The
// token is only honored for renewal while its RefreshTokenRecord exists.
func (s *Signer) IssueRefreshToken(accountID string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    s.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.RefreshTTL)),
		},
		Kind: TokenKindRefresh,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.RefreshSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token of the expected kind. It returns
// ErrTokenExpired for a well-formed token past its expiry and ErrTokenInvalid
// for everything else (bad signature, malformed payload, wrong kind or key).
// Callers must treat the two differently: expiry is a normal user-facing
// condition, invalidity is a security event.
func (s *Signer) Verify(tokenString string, kind TokenKind) (*Claims, error) {
	secret := s.AccessSecret
	if kind == TokenKindRefresh {
		secret = s.RefreshSecret
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	if claims.Kind != kind {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
