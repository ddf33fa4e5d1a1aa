package session

import (
	"github.com/amazingshop/user-service/users"
	"github.com/pkg/errors"
)

// Authenticator verifies primary credentials. Implementations must return
// ErrInvalidCredentials when the pair does not match and may return any other
// error for infrastructure failures.
type Authenticator interface {
	Authenticate(username, password string) error
}

var _ Authenticator = (*PasswordAuthenticator)(nil)

// PasswordAuthenticator checks a username/password pair against the stored
// bcrypt hash. Unknown usernames and federated-only accounts (no password
// hash) fail identically to a wrong password.
type PasswordAuthenticator struct {
	users users.Repo
}

func NewPasswordAuthenticator(repo users.Repo) *PasswordAuthenticator {
	return &PasswordAuthenticator{users: repo}
}

func (a *PasswordAuthenticator) Authenticate(username, password string) error {
	user, err := a.users.GetByUsername(username)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return errors.Wrap(err, "[PasswordAuthenticator.Authenticate] GetByUsername")
	}
	if user.PasswordHash == nil || !users.CheckPasswordHash(password, *user.PasswordHash) {
		return ErrInvalidCredentials
	}
	return nil
}
