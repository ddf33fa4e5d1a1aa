package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/amazingshop/user-service/federated"
	"github.com/amazingshop/user-service/server"
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

// testConfig satisfies the config surface with fixed values.
type testConfig struct{}

func (testConfig) GetPort() string                   { return ":0" }
func (testConfig) GetAppName() string                { return "User Service Test" }
func (testConfig) GetEnv() string                    { return "TEST" }
func (testConfig) GetDBPath() string                 { return "" }
func (testConfig) GetJWTSecret() string              { return testSecret }
func (testConfig) GetJWTIssuer() string              { return testIssuer }
func (testConfig) GetAccessTokenTTL() time.Duration  { return 15 * time.Minute }
func (testConfig) GetRefreshTokenTTL() time.Duration { return 7 * 24 * time.Hour }
func (testConfig) GetGoogleClientID() string         { return "" }

// fakeVerifier resolves preloaded raw tokens to verified identities.
type fakeVerifier struct {
	identities map[string]*federated.VerifiedIdentity
}

func newFakeVerifier() *fakeVerifier {
	return &fakeVerifier{identities: make(map[string]*federated.VerifiedIdentity)}
}

func (v *fakeVerifier) add(raw string, identity *federated.VerifiedIdentity) {
	v.identities[raw] = identity
}

func (v *fakeVerifier) Verify(_ context.Context, raw string) (*federated.VerifiedIdentity, error) {
	identity, ok := v.identities[raw]
	if !ok {
		return nil, token.ErrInvalidToken
	}
	return identity, nil
}

// testFixture wires the full HTTP surface over a fake store. The clock
// advances one second per reading, so successive tokens never collide.
type testFixture struct {
	repo     *fakeuserrepo.FakeUserRepo
	codec    *token.Codec
	server   *server.Server
	verifier *fakeVerifier

	mu    sync.Mutex
	base  time.Time
	ticks int
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		repo:     fakeuserrepo.NewFakeUserRepo(),
		verifier: newFakeVerifier(),
		base:     time.Now(),
	}

	codec, err := token.NewCodec(testSecret, testIssuer, 15*time.Minute, 7*24*time.Hour, token.WithNowFunc(f.now))
	require.NoError(t, err)
	f.codec = codec

	sessions, err := session.NewLifecycle(codec, f.repo, session.NewPasswordAuthenticator(f.repo))
	require.NoError(t, err)

	binder, err := federated.NewBinder(f.repo)
	require.NoError(t, err)

	srv, err := server.New(testConfig{}, f.repo, sessions, codec, binder, f.verifier)
	require.NoError(t, err)
	f.server = srv

	return f
}

func (f *testFixture) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks++
	return f.base.Add(time.Duration(f.ticks) * time.Second)
}

// createTestUser creates and stores a credential-based account
func (f *testFixture) createTestUser(t *testing.T, username, email, password string, role users.Role) *users.User {
	t.Helper()

	hash, err := users.HashPassword(password)
	require.NoError(t, err)

	user := &users.User{
		ID:           username + "-id",
		Username:     username,
		Email:        email,
		PasswordHash: &hash,
		Role:         role,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, f.repo.Create(user))
	return user
}

// do runs a request through the full middleware chain.
func (f *testFixture) do(t *testing.T, method, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	recorder := httptest.NewRecorder()
	f.server.ServeHTTP(recorder, req)
	return recorder
}

// decode unmarshals a recorded JSON response body
func decode[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &out))
	return out
}

// newServerWithoutVerifier rebuilds the HTTP surface with federated login unconfigured
func newServerWithoutVerifier(t *testing.T, f *testFixture) *server.Server {
	t.Helper()

	sessions, err := session.NewLifecycle(f.codec, f.repo, session.NewPasswordAuthenticator(f.repo))
	require.NoError(t, err)
	binder, err := federated.NewBinder(f.repo)
	require.NoError(t, err)

	srv, err := server.New(testConfig{}, f.repo, sessions, f.codec, binder, nil)
	require.NoError(t, err)
	return srv
}

// login authenticates through the HTTP surface and returns the token pair
func (f *testFixture) login(t *testing.T, username, password string) *session.TokenPair {
	t.Helper()

	recorder := f.do(t, http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, "")
	require.Equal(t, http.StatusOK, recorder.Code)

	pair := decode[session.TokenPair](t, recorder)
	return &pair
}
