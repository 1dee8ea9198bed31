package core

import "errors"

// Authentication errors are sentinels so callers can show the remediation
// message that matches the cause instead of a generic failure.
var (
	// ErrUnauthorized marks a 401 on an authenticated call: the session was
	// lost mid-flight and the user must generate a new access link.
	ErrUnauthorized = errors.New("unauthorized: generate a new access link")

	// ErrNotAuthenticated marks calls attempted before any credential was
	// resolved.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrTempTokenExpired marks a failed one-time token exchange. The token
	// is single use; the user must request a new link.
	ErrTempTokenExpired = errors.New("temporary token invalid or expired, request a new link")

	// ErrInvalidVaultToken marks a rejected long-lived vault access token.
	ErrInvalidVaultToken = errors.New("invalid access token")
)
