package session

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidOrExpiredToken covers both signature and embedded-expiry
	// failures of the presented refresh token.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired refresh token")
	// ErrWrongTokenType is returned when an access token is presented where a
	// refresh token is required.
	ErrWrongTokenType  = errors.New("wrong token type")
	ErrAccountNotFound = errors.New("account not found")
	// ErrTokenMismatch means the presented refresh token is not the account's
	// current one: it was rotated away or never stored.
	ErrTokenMismatch = errors.New("refresh token mismatch")
	// ErrTokenExpiredServerSide is the store-side expiry, enforced
	// independently of the token's embedded expiry claim.
	ErrTokenExpiredServerSide = errors.New("refresh token expired server-side")
)
