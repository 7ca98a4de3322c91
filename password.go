package authkit

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher wraps bcrypt hashing and verification. The digest embeds the
// salt and cost so no external configuration is needed to verify later.
type PasswordHasher struct {
	// Cost is the bcrypt work factor. Defaults to bcrypt.DefaultCost.
	Cost int
}

func (h *PasswordHasher) cost() int {
	if h == nil || h.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return h.Cost
}

// Hash produces a salted one-way digest of the plaintext.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost())
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches the stored digest. A malformed or
// empty digest is a verification failure, never an error.
func (h *PasswordHasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

var (
	emailRegex    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	upperRegex    = regexp.MustCompile(`[A-Z]`)
	lowerRegex    = regexp.MustCompile(`[a-z]`)
	digitRegex    = regexp.MustCompile(`[0-9]`)
	specialRegex  = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
	minPasswordLn = 8
)

// ValidateEmail checks basic email shape. Returns nil if acceptable.
func ValidateEmail(email string) *AuthError {
	if email == "" {
		return NewAuthError(ErrCodeMissingField, "Email is required", "email")
	}
	if !emailRegex.MatchString(email) {
		return NewAuthError(ErrCodeInvalidEmail, "Invalid email format", "email")
	}
	return nil
}

// ValidatePassword enforces the password strength policy: at least 8
// characters with an uppercase letter, a lowercase letter, a digit and a
// special character. The returned error names the first rule violated.
func ValidatePassword(password string) *AuthError {
	if len(password) < minPasswordLn {
		return NewAuthError(ErrCodeWeakPassword, fmt.Sprintf("Password must be at least %d characters long", minPasswordLn), "password")
	}
	if !upperRegex.MatchString(password) {
		return NewAuthError(ErrCodeWeakPassword, "Password must contain at least one uppercase letter", "password")
	}
	if !lowerRegex.MatchString(password) {
		return NewAuthError(ErrCodeWeakPassword, "Password must contain at least one lowercase letter", "password")
	}
	if !digitRegex.MatchString(password) {
		return NewAuthError(ErrCodeWeakPassword, "Password must contain at least one number", "password")
	}
	if !specialRegex.MatchString(password) {
		return NewAuthError(ErrCodeWeakPassword, "Password must contain at least one special character", "password")
	}
	return nil
}

// NormalizeEmail lowercases and trims an email for storage and lookup.
// Email uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
