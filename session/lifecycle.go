package session

import (
	"strings"
	"time"

	"github.com/amazingshop/user-service/token"
	"github.com/amazingshop/user-service/users"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// TokenPair is the ephemeral result of login, registration and refresh. It is
// handed straight back to the caller and never persisted; only the refresh
// token value is mirrored onto the account row.
type TokenPair struct {
	AccessToken      string `json:"accessToken"`
	AccessExpiresIn  int64  `json:"accessExpiresIn"`
	RefreshToken     string `json:"refreshToken"`
	RefreshExpiresIn int64  `json:"refreshExpiresIn"`
	Username         string `json:"username"`
}

// Lifecycle orchestrates login, refresh and logout. It owns the refresh-token
// rotation protocol: a single outstanding refresh token per account,
// invalidated on every successful login or refresh.
type Lifecycle struct {
	codec   *token.Codec
	users   users.Repo
	auth    Authenticator
	nowFunc func() time.Time
}

type LifecycleOption func(*Lifecycle)

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) LifecycleOption {
	return func(l *Lifecycle) {
		l.nowFunc = now
	}
}

func NewLifecycle(codec *token.Codec, repo users.Repo, auth Authenticator, options ...LifecycleOption) (*Lifecycle, error) {
	if codec == nil {
		return nil, errors.New("[NewLifecycle] token codec is required")
	}
	if repo == nil {
		return nil, errors.New("[NewLifecycle] users repo is required")
	}
	if auth == nil {
		return nil, errors.New("[NewLifecycle] authenticator is required")
	}

	l := &Lifecycle{
		codec:   codec,
		users:   repo,
		auth:    auth,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(l)
	}
	return l, nil
}

// Login authenticates the credentials and issues a fresh token pair. The new
// refresh token overwrites any previous one, invalidating earlier sessions.
func (l *Lifecycle) Login(username, password string) (*TokenPair, error) {
	if err := l.auth.Authenticate(username, password); err != nil {
		return nil, err
	}
	// The authenticator accepted the credentials, so a missing account here
	// is a consistency defect rather than a bad request.
	if _, err := l.users.GetByUsername(username); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, errors.Wrap(err, "[Lifecycle.Login] GetByUsername")
	}
	return l.IssueFor(username)
}

// Register creates a credential-based account and issues its first token
// pair. Input is assumed validated by the caller (users.ValidateNewUser).
func (l *Lifecycle) Register(username, email, password string) (*TokenPair, error) {
	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, "[Lifecycle.Register] HashPassword")
	}
	user := &users.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: &hash,
		Role:         users.RoleUser,
		CreatedAt:    l.nowFunc(),
	}
	if err := l.users.Create(user); err != nil {
		return nil, err
	}
	return l.IssueFor(username)
}

// Refresh validates a presented refresh token and rotates it. The checks run
// in a fixed order and each failure is terminal:
//
//	codec verification -> type tag -> account -> stored-value equality ->
//	server-side expiry -> rotation.
//
// The rotation itself is a conditional store update, so of two concurrent
// refreshes with the same token exactly one wins; the loser observes a
// mismatch.
func (l *Lifecycle) Refresh(refreshToken string) (*TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)

	username, err := l.codec.Verify(refreshToken)
	if err != nil {
		return nil, ErrInvalidOrExpiredToken
	}

	typ, err := l.codec.TypeOf(refreshToken)
	if err != nil || typ != token.TypeRefresh {
		return nil, ErrWrongTokenType
	}

	user, err := l.users.GetByUsername(username)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, errors.Wrap(err, "[Lifecycle.Refresh] GetByUsername")
	}

	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		return nil, ErrTokenMismatch
	}

	if user.RefreshTokenExpiry == nil || user.RefreshTokenExpiry.Before(l.nowFunc()) {
		return nil, ErrTokenExpiredServerSide
	}

	newAccess, err := l.codec.IssueAccess(username)
	if err != nil {
		return nil, errors.Wrap(err, "[Lifecycle.Refresh] IssueAccess")
	}
	newRefresh, err := l.codec.IssueRefresh(username)
	if err != nil {
		return nil, errors.Wrap(err, "[Lifecycle.Refresh] IssueRefresh")
	}

	expiry := l.nowFunc().Add(l.codec.RefreshTTL())
	if err := l.users.RotateRefreshToken(username, refreshToken, newRefresh, expiry); err != nil {
		if errors.Is(err, users.ErrTokenMismatch) {
			return nil, ErrTokenMismatch
		}
		return nil, errors.Wrap(err, "[Lifecycle.Refresh] RotateRefreshToken")
	}

	return l.pair(username, newAccess, newRefresh), nil
}

// Logout clears the account's refresh-token slot. Clearing an already-empty
// slot is not an error, but the presented token must still verify at claims
// level.
func (l *Lifecycle) Logout(refreshToken string) error {
	username, err := l.codec.Verify(refreshToken)
	if err != nil {
		return ErrInvalidOrExpiredToken
	}

	user, err := l.users.GetByUsername(username)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return ErrAccountNotFound
		}
		return errors.Wrap(err, "[Lifecycle.Logout] GetByUsername")
	}

	if err := l.users.ClearRefreshToken(user.Username); err != nil {
		return errors.Wrap(err, "[Lifecycle.Logout] ClearRefreshToken")
	}
	return nil
}

// IssueFor mints a token pair for an already-authenticated subject and
// persists the refresh token. The federated login path lands here after the
// identity binder resolves an account.
func (l *Lifecycle) IssueFor(username string) (*TokenPair, error) {
	accessToken, err := l.codec.IssueAccess(username)
	if err != nil {
		return nil, errors.Wrap(err, "[Lifecycle.IssueFor] IssueAccess")
	}
	refreshToken, err := l.codec.IssueRefresh(username)
	if err != nil {
		return nil, errors.Wrap(err, "[Lifecycle.IssueFor] IssueRefresh")
	}

	expiry := l.nowFunc().Add(l.codec.RefreshTTL())
	if err := l.users.SetRefreshToken(username, refreshToken, expiry); err != nil {
		return nil, errors.Wrap(err, "[Lifecycle.IssueFor] SetRefreshToken")
	}

	return l.pair(username, accessToken, refreshToken), nil
}

func (l *Lifecycle) pair(username, accessToken, refreshToken string) *TokenPair {
	return &TokenPair{
		AccessToken:      accessToken,
		AccessExpiresIn:  int64(l.codec.AccessTTL().Seconds()),
		RefreshToken:     refreshToken,
		RefreshExpiresIn: int64(l.codec.RefreshTTL().Seconds()),
		Username:         username,
	}
}
