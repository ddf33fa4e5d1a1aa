package token

import "errors"

var (
	// ErrInvalidToken covers signature, issuer and subject-claim failures.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the embedded expiry has passed.
	ErrExpiredToken = errors.New("token expired")
)
