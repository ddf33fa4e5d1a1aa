package users

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
	ErrEmailTaken    = errors.New("email already taken")
	// ErrTokenMismatch is returned by RotateRefreshToken when the stored
	// refresh token no longer equals the expected current value. Exactly one
	// of two concurrent rotations with the same token can succeed.
	ErrTokenMismatch = errors.New("refresh token mismatch")
)

type Repo interface {
	Create(user *User) error
	Save(user *User) error
	Delete(id string) error
	GetByID(id string) (*User, error)
	GetByUsername(username string) (*User, error)
	GetByEmail(email string) (*User, error)
	GetByOAuthIdentity(provider, oauthID string) (*User, error)
	ExistsByUsername(username string) (bool, error)
	List(offset, limit int) ([]*User, error)

	// Refresh-token slot operations. These are the only writers of the
	// RefreshToken/RefreshTokenExpiry pair.
	SetRefreshToken(username, token string, expiry time.Time) error
	RotateRefreshToken(username, current, next string, expiry time.Time) error
	ClearRefreshToken(username string) error
}
