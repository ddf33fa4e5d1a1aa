package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Type tags a token as an access or refresh token via the "typ" claim.
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

// Codec creates and verifies the signed tokens used for API access and
// session refresh. Tokens are self-contained HS256 JWTs carrying subject,
// type tag, issuer, issued-at and expiry; verification is a pure claims
// check and never consults a store.
type Codec struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	nowFunc    func() time.Time
}

type CodecOption func(*Codec)

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) CodecOption {
	return func(c *Codec) {
		c.nowFunc = now
	}
}

func NewCodec(secret, issuer string, accessTTL, refreshTTL time.Duration, options ...CodecOption) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("[NewCodec] signing secret is required")
	}
	if strings.TrimSpace(issuer) == "" {
		return nil, errors.New("[NewCodec] issuer is required")
	}

	c := &Codec{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		nowFunc:    time.Now,
	}

	if c.accessTTL == 0 {
		c.accessTTL = 15 * time.Minute
	}
	if c.refreshTTL == 0 {
		c.refreshTTL = 7 * 24 * time.Hour
	}

	for _, opt := range options {
		opt(c)
	}

	return c, nil
}

// AccessTTL returns the configured access-token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// Issue creates a signed token for the given subject with the given type tag
// and lifetime. The token has no identity beyond its embedded claims.
func (c *Codec) Issue(subject string, typ Type, ttl time.Duration) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("[Codec.Issue] subject is required")
	}

	now := c.nowFunc()
	claims := jwt.MapClaims{
		"sub": subject,
		"typ": string(typ),
		"iss": c.issuer,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", errors.Wrap(err, "[Codec.Issue] SignedString")
	}
	return signed, nil
}

// IssueAccess creates an access token using the configured lifetime.
func (c *Codec) IssueAccess(subject string) (string, error) {
	return c.Issue(subject, TypeAccess, c.accessTTL)
}

// IssueRefresh creates a refresh token using the configured lifetime.
func (c *Codec) IssueRefresh(subject string) (string, error) {
	return c.Issue(subject, TypeRefresh, c.refreshTTL)
}

// Verify checks signature, issuer and expiry and returns the subject claim.
// It returns ErrExpiredToken when the embedded expiry has passed and
// ErrInvalidToken for every other failure. Surrounding whitespace in the raw
// token is tolerated.
func (c *Codec) Verify(raw string) (string, error) {
	parsed, err := jwt.Parse(strings.TrimSpace(raw),
		func(t *jwt.Token) (any, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.nowFunc),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	subject, _ := claims["sub"].(string)
	if subject == "" {
		return "", ErrInvalidToken
	}
	return subject, nil
}

// TypeOf decodes the type tag without re-verifying the signature, so the two
// token kinds can be told apart structurally.
func (c *Codec) TypeOf(raw string) (Type, error) {
	unverified, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(raw), jwt.MapClaims{})
	if err != nil {
		return "", ErrInvalidToken
	}

	claims, ok := unverified.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	typ, _ := claims["typ"].(string)
	switch Type(typ) {
	case TypeAccess, TypeRefresh:
		return Type(typ), nil
	}
	return "", ErrInvalidToken
}
