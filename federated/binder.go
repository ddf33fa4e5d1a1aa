package federated

import (
	"fmt"
	"strings"
	"time"

	"github.com/amazingshop/user-service/internal/utils"
	"github.com/amazingshop/user-service/users"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrProviderConflict means the verified email belongs to an account that is
// already bound to another federated provider.
var ErrProviderConflict = errors.New("email already bound to a different provider")

// Binder reconciles a verified third-party identity against local accounts:
// match by (provider, subject id), then link by email, then create.
type Binder struct {
	users   users.Repo
	nowFunc func() time.Time
}

type BinderOption func(*Binder)

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) BinderOption {
	return func(b *Binder) {
		b.nowFunc = now
	}
}

func NewBinder(repo users.Repo, options ...BinderOption) (*Binder, error) {
	if repo == nil {
		return nil, errors.New("[NewBinder] users repo is required")
	}
	b := &Binder{
		users:   repo,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(b)
	}
	return b, nil
}

// FindOrCreate resolves the account for a verified identity. Re-login with a
// known (provider, subject id) pair is idempotent and returns the account
// unchanged.
func (b *Binder) FindOrCreate(identity *VerifiedIdentity) (*users.User, error) {
	existing, err := b.users.GetByOAuthIdentity(identity.Provider, identity.SubjectID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, users.ErrNotFound) {
		return nil, errors.Wrap(err, "[Binder.FindOrCreate] GetByOAuthIdentity")
	}

	byEmail, err := b.users.GetByEmail(identity.Email)
	if err == nil {
		return b.bind(byEmail, identity)
	}
	if !errors.Is(err, users.ErrNotFound) {
		return nil, errors.Wrap(err, "[Binder.FindOrCreate] GetByEmail")
	}

	return b.create(identity)
}

// bind attaches the federated identity to an existing credential account. An
// account never carries two federated bindings.
func (b *Binder) bind(user *users.User, identity *VerifiedIdentity) (*users.User, error) {
	if user.HasFederatedIdentity() {
		return nil, ErrProviderConflict
	}
	user.OAuthProvider = utils.Ptr(identity.Provider)
	user.OAuthID = utils.Ptr(identity.SubjectID)
	if identity.PictureURL != "" {
		user.ProfilePictureURL = utils.Ptr(identity.PictureURL)
	}
	if err := b.users.Save(user); err != nil {
		return nil, errors.Wrap(err, "[Binder.bind] Save")
	}
	return user, nil
}

func (b *Binder) create(identity *VerifiedIdentity) (*users.User, error) {
	username, err := b.uniqueUsername(usernameFromEmail(identity.Email))
	if err != nil {
		return nil, errors.Wrap(err, "[Binder.create] uniqueUsername")
	}

	user := &users.User{
		ID:            uuid.New().String(),
		Username:      username,
		Email:         identity.Email,
		Role:          users.RoleUser,
		OAuthProvider: utils.Ptr(identity.Provider),
		OAuthID:       utils.Ptr(identity.SubjectID),
		CreatedAt:     b.nowFunc(),
	}
	if identity.PictureURL != "" {
		user.ProfilePictureURL = &identity.PictureURL
	}

	if err := b.users.Create(user); err != nil {
		return nil, errors.Wrap(err, "[Binder.create] Create")
	}
	return user, nil
}

// uniqueUsername appends 1, 2, ... to the base until no collision remains.
func (b *Binder) uniqueUsername(base string) (string, error) {
	username := base
	for counter := 1; ; counter++ {
		taken, err := b.users.ExistsByUsername(username)
		if err != nil {
			return "", err
		}
		if !taken {
			return username, nil
		}
		username = fmt.Sprintf("%s%d", base, counter)
	}
}

func usernameFromEmail(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
