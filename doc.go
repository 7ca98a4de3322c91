// Package authkit provides email/password and OAuth2 authentication with
// short-lived access tokens and rotating, server-revocable refresh tokens.
//
// The pieces compose around a few storage interfaces (AccountStore,
// RefreshTokenStore, SingleUseTokenStore) so persistence can be swapped; the
// stores/gorm and stores/memory subpackages provide ready implementations.
// SessionManager holds the flow logic, Service exposes it over HTTP, and the
// oauth2 subpackage supplies Google, Facebook and Microsoft login handlers
// that feed externally-verified identities into the Reconciler.
package authkit
