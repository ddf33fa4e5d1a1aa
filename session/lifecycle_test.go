package session_test

import (
	"sync"
	"testing"
	"time"

	"github.com/amazingshop/user-service/session"
	"github.com/amazingshop/user-service/token"
	"github.com/amazingshop/user-service/users"
	fakeuserrepo "github.com/amazingshop/user-service/users/repofakes"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "test-signing-secret"
	testIssuer   = "com.testissuer"
	testUsername = "johndoe"
	testEmail    = "john.doe@example.com"
	testPassword = "password123"
)

// testFixture holds the lifecycle under test with a fake store and a clock
// that advances one second per reading, so successive tokens never collide.
type testFixture struct {
	repo      *fakeuserrepo.FakeUserRepo
	codec     *token.Codec
	lifecycle *session.Lifecycle

	mu    sync.Mutex
	base  time.Time
	ticks int
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		repo: fakeuserrepo.NewFakeUserRepo(),
		base: time.Now(),
	}

	codec, err := token.NewCodec(testSecret, testIssuer, 15*time.Minute, 7*24*time.Hour, token.WithNowFunc(f.now))
	require.NoError(t, err)
	f.codec = codec

	lifecycle, err := session.NewLifecycle(codec, f.repo, session.NewPasswordAuthenticator(f.repo), session.WithNowFunc(f.now))
	require.NoError(t, err)
	f.lifecycle = lifecycle

	return f
}

func (f *testFixture) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks++
	return f.base.Add(time.Duration(f.ticks) * time.Second)
}

// createTestUser creates and stores a credential-based account
func (f *testFixture) createTestUser(t *testing.T, username, email, password string) {
	t.Helper()

	hash, err := users.HashPassword(password)
	require.NoError(t, err)

	err = f.repo.Create(&users.User{
		ID:           username + "-id",
		Username:     username,
		Email:        email,
		PasswordHash: &hash,
		Role:         users.RoleUser,
		CreatedAt:    time.Now(),
	})
	require.NoError(t, err)
}

// TestLogin_Success tests that valid credentials yield a usable token pair
func TestLogin_Success(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t, testUsername, testEmail, testPassword)

	pair, err := f.lifecycle.Login(testUsername, testPassword)

	require.NoError(t, err)
	require.Equal(t, testUsername, pair.Username)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, int64(900), pair.AccessExpiresIn)
	require.Equal(t, int64(604800), pair.RefreshExpiresIn)

	subject, err := f.codec.Verify(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, testUsername, subject)
}

// TestLogin_PersistsRefreshToken tests that login mirrors the refresh token onto the account
func TestLogin_PersistsRefreshToken(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t, testUsername, testEmail, testPassword)

	pair, err := f.lifecycle.Login(testUsername, testPassword)
	require.NoError(t, err)

	user, err := f.repo.GetByUsername(testUsername)
	require.NoError(t, err)
	require.NotNil(t, user.RefreshToken)
	require.Equal(t, pair.RefreshToken, *user.RefreshToken)
	require.NotNil(t, user.RefreshTokenExpiry)
	require.True(t, user.RefreshTokenExpiry.After(time.Now()))
}

// TestLogin_WrongPassword tests rejection of bad credentials
func TestLogin_WrongPassword(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t, testUsername, testEmail, testPassword)

	_, err := f.lifecycle.Login(testUsername, "wrong-password")

	require.ErrorIs(t, err, session.ErrInvalidCredentials)
}

// TestLogin_UnknownUser tests that a missing account reads the same as bad credentials
func TestLogin_UnknownUser(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.lifecycle.Login("nobody", testPassword)

	require.ErrorIs(t, err, session.ErrInvalidCredentials)
}

// TestLogin_InvalidatesPreviousSession tests that a second login revokes the first refresh token
func TestLogin_InvalidatesPreviousSession(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t, testUsername, testEmail, testPassword)

	first, err := f.lifecycle.Login(testUsername, testPassword)
	require.NoError(t, err)

	_, err = f.lifecycle.Login(testUsername, testPassword)
	require.NoError(t, err)

	_, err = f.lifecycle.Refresh(first.RefreshToken)
	require.ErrorIs(t, err, session.ErrTokenMismatch)
}

// TestRegister_Success tests account creation plus first token pair
func TestRegister_Success(t *testing.T) {
	f := setupTestFixture(t)

	pair, err := f.lifecycle.Register(testUsername, testEmail, testPassword)

	require.NoError(t, err)
	require.Equal(t, testUsername, pair.Username)

	user, err := f.repo.GetByUsername(testUsername)
	require.NoError(t, err)
	require.Equal(t, users.RoleUser, user.Role)
	require.Equal(t, testEmail, user.Email)
	require.NotNil(t, user.PasswordHash)
	require.True(t, users.CheckPasswordHash(testPassword, *user.PasswordHash))
}

// TestRegister_DuplicateUsername tests that a taken username surfaces the repo error
func TestRegister_DuplicateUsername(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t, testUsername, testEmail, testPassword)

	_, err := f.lifecycle.Register(testUsername, "other@example.com", testPassword)

	require.ErrorIs(t, err, users.ErrUsernameTaken)
}

// TestRefresh_RotatesToken tests single-use rotation of the refresh token
func TestRefresh_RotatesToken(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t, testUsername, testEmail, testPassword)

	first, err := f.lifecycle.Login(testUsername, testPassword)
	require.NoError(t, err)

	second, err := f.lifecycle.Refresh(first.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
	require.NotEqual(t, first.AccessToken, second.AccessToken)

	// The consumed token is spent.
	_, err = f.lifecycle.Refresh(first.RefreshToken)
	require.ErrorIs(t, err, session.ErrTokenMismatch)

	// The rotated token works.
	_, err = f.lifecycle.Refresh(second.RefreshToken)
	require.NoError(t, err)
}

// TestRefresh_TrimsWhitespace tests that surrounding whitespace on the presented token is tolerated
func TestRefresh_TrimsWhitespace(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t, testUsername, testEmail, testPassword)

	pair, err := f.lifecycle.Login(testUsername, testPassword)
	require.NoError(t, err)

	_, err = f.lifecycle.Refresh("  " + pair.RefreshToken + "\n")
	require.NoError(t, err)
}

// TestRefresh_AccessTokenRejected tests that an access token cannot be spent as a refresh token
func TestRefresh_AccessTokenRejected(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t, testUsername, testEmail, testPassword)

	pair, err := f.lifecycle.Login(testUsername, testPassword)
	require.NoError(t, err)

	_, err = f.lifecycle.Refresh(pair.AccessToken)
	require.ErrorIs(t, err, session.ErrWrongTokenType)
}

// TestRefresh_GarbageToken tests rejection of a token that fails claims verification
func TestRefresh_GarbageToken(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.lifecycle.Refresh("not-a-token")

	require.ErrorIs(t, err, session.ErrInvalidOrExpiredToken)
}

// TestRefresh_UnknownAccount tests a verifiable token whose subject has no account
func TestRefresh_UnknownAccount(t *testing.T) {
	f := setupTestFixture(t)

	ghost, err := f.codec.IssueRefresh("ghost")
	require.NoError(t, err)

	_, err = f.lifecycle.Refresh(ghost)
	require.ErrorIs(t, err, session.ErrAccountNotFound)
}

// TestRefresh_NoStoredToken tests refresh against an account with an empty token slot
func TestRefresh_NoStoredToken(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t, testUsername, testEmail, testPassword)

	stray, err := f.codec.IssueRefresh(testUsername)
	require.NoError(t, err)

	_, err = f.lifecycle.Refresh(stray)
	require.ErrorIs(t, err, session.ErrTokenMismatch)
}

// TestRefresh_ServerSideExpiry tests that the stored expiry gates refresh even
// while the embedded expiry is still in the future
func TestRefresh_ServerSideExpiry(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t, testUsername, testEmail, testPassword)

	pair, err := f.lifecycle.Login(testUsername, testPassword)
	require.NoError(t, err)

	past := time.Now().Add(-time.Minute)
	err = f.repo.SetRefreshToken(testUsername, pair.RefreshToken, past)
	require.NoError(t, err)

	_, err = f.lifecycle.Refresh(pair.RefreshToken)
	require.ErrorIs(t, err, session.ErrTokenExpiredServerSide)
}

// TestLogout_ClearsSession tests that logout empties the token slot and kills refresh
func TestLogout_ClearsSession(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t, testUsername, testEmail, testPassword)

	pair, err := f.lifecycle.Login(testUsername, testPassword)
	require.NoError(t, err)

	err = f.lifecycle.Logout(pair.RefreshToken)
	require.NoError(t, err)

	user, err := f.repo.GetByUsername(testUsername)
	require.NoError(t, err)
	require.Nil(t, user.RefreshToken)
	require.Nil(t, user.RefreshTokenExpiry)

	_, err = f.lifecycle.Refresh(pair.RefreshToken)
	require.ErrorIs(t, err, session.ErrTokenMismatch)
}

// TestLogout_Idempotent tests that clearing an already-empty slot is not an error
func TestLogout_Idempotent(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t, testUsername, testEmail, testPassword)

	pair, err := f.lifecycle.Login(testUsername, testPassword)
	require.NoError(t, err)

	require.NoError(t, f.lifecycle.Logout(pair.RefreshToken))
	require.NoError(t, f.lifecycle.Logout(pair.RefreshToken))
}

// TestLogout_InvalidToken tests that an unverifiable token cannot log anyone out
func TestLogout_InvalidToken(t *testing.T) {
	f := setupTestFixture(t)

	err := f.lifecycle.Logout("not-a-token")

	require.ErrorIs(t, err, session.ErrInvalidOrExpiredToken)
}

// TestIssueFor_PersistsRefreshToken tests direct issuance for a pre-authenticated subject
func TestIssueFor_PersistsRefreshToken(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t, testUsername, testEmail, testPassword)

	pair, err := f.lifecycle.IssueFor(testUsername)
	require.NoError(t, err)

	user, err := f.repo.GetByUsername(testUsername)
	require.NoError(t, err)
	require.NotNil(t, user.RefreshToken)
	require.Equal(t, pair.RefreshToken, *user.RefreshToken)
}

// TestNewLifecycle_MissingDependencies tests constructor validation
func TestNewLifecycle_MissingDependencies(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()
	codec, err := token.NewCodec(testSecret, testIssuer, time.Minute, time.Hour)
	require.NoError(t, err)
	auth := session.NewPasswordAuthenticator(repo)

	_, err = session.NewLifecycle(nil, repo, auth)
	require.Error(t, err)
	require.Contains(t, err.Error(), "codec is required")

	_, err = session.NewLifecycle(codec, nil, auth)
	require.Error(t, err)
	require.Contains(t, err.Error(), "repo is required")

	_, err = session.NewLifecycle(codec, repo, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "authenticator is required")
}
