package authkit

import "errors"

// Sentinel errors returned by the engine. Callers branch on these with
// errors.Is; the HTTP and gRPC adapters translate them into wire responses.
var (
	// ErrInvalidCredentials is returned for both an unknown email and a
	// password mismatch so the two are indistinguishable to callers.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailExists is returned when registering an email that already
	// has an account.
	ErrEmailExists = errors.New("email already registered")

	// ErrAccountNotFound is returned by stores when no account matches.
	ErrAccountNotFound = errors.New("account not found")

	// ErrTokenNotFound is returned by stores when a token record is
	// missing. Expired single-use tokens are reported identically.
	ErrTokenNotFound = errors.New("token not found")

	// ErrTokenExpired signals a well-formed token past its expiry. This is
	// a normal condition: clients should re-authenticate silently.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid signals a bad signature, malformed payload or wrong
	// token kind. Unlike expiry this should be treated as a security fault.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrAlreadyVerified is returned when requesting a verification resend
	// for an account whose email is already verified.
	ErrAlreadyVerified = errors.New("email already verified")

	// ErrProviderAuth covers any failure talking to an external identity
	// provider. Provider internals are logged, never exposed.
	ErrProviderAuth = errors.New("provider authentication failed")
)

// Error codes used in AuthError and in JSON error responses.
const (
	ErrCodeInvalidEmail = "invalid_email"
	ErrCodeWeakPassword = "weak_password"
	ErrCodeMissingField = "missing_field"
	ErrCodeEmailExists  = "email_exists"
	ErrCodeInvalidCreds = "invalid_credentials"
)

// AuthError is a validation failure with a machine-readable code and the
// field that caused it. The message names the specific rule violated.
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *AuthError) Error() string {
	return e.Message
}

// NewAuthError creates an AuthError with the given code, message and field.
func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field}
}
