package fakeuserrepo

import (
	"sort"
	"sync"
	"time"

	"github.com/amazingshop/user-service/users"
	"github.com/google/uuid"
)

var _ users.Repo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users map[string]*users.User // keyed by ID
	lock  sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users: make(map[string]*users.User),
	}
}

func (ur *FakeUserRepo) Create(user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	for _, existing := range ur.users {
		if existing.Username == user.Username {
			return users.ErrUsernameTaken
		}
		if existing.Email == user.Email {
			return users.ErrEmailTaken
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	ur.users[user.ID] = clone(user)
	return nil
}

func (ur *FakeUserRepo) Save(user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if _, ok := ur.users[user.ID]; !ok {
		return users.ErrNotFound
	}
	ur.users[user.ID] = clone(user)
	return nil
}

func (ur *FakeUserRepo) Delete(id string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if _, ok := ur.users[id]; !ok {
		return users.ErrNotFound
	}
	delete(ur.users, id)
	return nil
}

func (ur *FakeUserRepo) GetByID(id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return clone(user), nil
}

func (ur *FakeUserRepo) GetByUsername(username string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	return ur.findLocked(func(u *users.User) bool { return u.Username == username })
}

func (ur *FakeUserRepo) GetByEmail(email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	return ur.findLocked(func(u *users.User) bool { return u.Email == email })
}

func (ur *FakeUserRepo) GetByOAuthIdentity(provider, oauthID string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	return ur.findLocked(func(u *users.User) bool {
		return u.OAuthProvider != nil && *u.OAuthProvider == provider &&
			u.OAuthID != nil && *u.OAuthID == oauthID
	})
}

func (ur *FakeUserRepo) ExistsByUsername(username string) (bool, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	_, err := ur.findLocked(func(u *users.User) bool { return u.Username == username })
	return err == nil, nil
}

func (ur *FakeUserRepo) List(offset, limit int) ([]*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	userList := make([]*users.User, 0, len(ur.users))
	for _, u := range ur.users {
		userList = append(userList, clone(u))
	}
	sort.Slice(userList, func(i, j int) bool {
		return userList[i].Username < userList[j].Username
	})

	if offset >= len(userList) {
		return []*users.User{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(userList) {
		end = len(userList)
	}
	return userList[offset:end], nil
}

func (ur *FakeUserRepo) SetRefreshToken(username, token string, expiry time.Time) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, err := ur.findLocked(func(u *users.User) bool { return u.Username == username })
	if err != nil {
		return err
	}
	stored := ur.users[user.ID]
	stored.RefreshToken = &token
	stored.RefreshTokenExpiry = &expiry
	return nil
}

func (ur *FakeUserRepo) RotateRefreshToken(username, current, next string, expiry time.Time) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, err := ur.findLocked(func(u *users.User) bool { return u.Username == username })
	if err != nil {
		return err
	}
	stored := ur.users[user.ID]
	if stored.RefreshToken == nil || *stored.RefreshToken != current {
		return users.ErrTokenMismatch
	}
	stored.RefreshToken = &next
	stored.RefreshTokenExpiry = &expiry
	return nil
}

func (ur *FakeUserRepo) ClearRefreshToken(username string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, err := ur.findLocked(func(u *users.User) bool { return u.Username == username })
	if err != nil {
		return err
	}
	stored := ur.users[user.ID]
	stored.RefreshToken = nil
	stored.RefreshTokenExpiry = nil
	return nil
}

func (ur *FakeUserRepo) findLocked(match func(*users.User) bool) (*users.User, error) {
	for _, u := range ur.users {
		if match(u) {
			return clone(u), nil
		}
	}
	return nil, users.ErrNotFound
}

func clone(u *users.User) *users.User {
	copied := *u
	return &copied
}
