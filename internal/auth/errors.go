package auth

import "errors"

var (
	// Token validation failures. Distinct kinds so the entry point can log
	// precisely and clients can tell "refresh and retry" from "re-login".
	ErrTokenMalformed   = errors.New("auth: malformed token")
	ErrBadSignature     = errors.New("auth: bad token signature")
	ErrTokenExpired     = errors.New("auth: token expired")
	ErrUnsupportedToken = errors.New("auth: unsupported token")

	ErrBadCredentials  = errors.New("auth: bad credentials")
	ErrAccountNotFound = errors.New("auth: account not found")
	ErrAccountDisabled = errors.New("auth: account disabled")

	ErrInvalidRefreshToken = errors.New("auth: invalid refresh token")
	ErrRefreshTokenExpired = errors.New("auth: refresh token expired")
)
