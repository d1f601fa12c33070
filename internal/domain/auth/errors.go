package auth

import "errors"

// Error codes surfaced through pkg/errors. Credential failures are
// deliberately collapsed to a single code so the API never acts as an
// account-enumeration oracle; only the access-token expired/invalid split
// is visible because the client retry contract depends on it.
const (
	CodeInvalidCredentials      = "invalid_credentials"
	CodeInvalidAccessToken      = "invalid_access_token"
	CodeExpiredAccessToken      = "expired_access_token"
	CodeInsufficientPermissions = "insufficient_permissions"
	CodeTooManyAttempts         = "too_many_attempts"
	CodeEmailExists             = "email_exists"
	CodeInternal                = "internal_error"
)

// ErrEmailExists indicates a duplicate email address.
var ErrEmailExists = errors.New("email already exists")

// ErrTokenExpired marks an access token that failed verification only
// because its expiry passed.
var ErrTokenExpired = errors.New("access token expired")

// ErrTokenInvalid covers every other verification failure: bad signature,
// unknown key version, malformed structure.
var ErrTokenInvalid = errors.New("access token invalid")
