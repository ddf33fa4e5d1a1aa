package federated

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
)

const googleIssuer = "https://accounts.google.com"

// VerifiedIdentity is the transient result of verifying a third-party
// identity token. It is produced by an IdentityVerifier and consumed once by
// the Binder.
type VerifiedIdentity struct {
	Provider   string
	SubjectID  string
	Email      string
	Name       string
	PictureURL string
}

// IdentityVerifier cryptographically validates a third-party identity token
// and returns its verified claims.
type IdentityVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*VerifiedIdentity, error)
}

var _ IdentityVerifier = (*GoogleVerifier)(nil)

// GoogleVerifier validates Google ID tokens against Google's published keys,
// with the configured OAuth2 client ID as the required audience.
type GoogleVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func NewGoogleVerifier(ctx context.Context, clientID string) (*GoogleVerifier, error) {
	if clientID == "" {
		return nil, errors.New("[NewGoogleVerifier] client ID is required")
	}
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, errors.Wrap(err, "[NewGoogleVerifier] oidc.NewProvider")
	}
	return &GoogleVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

func (g *GoogleVerifier) Verify(ctx context.Context, rawIDToken string) (*VerifiedIdentity, error) {
	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, errors.Wrap(err, "[GoogleVerifier.Verify] Verify")
	}

	var claims struct {
		Sub     string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, errors.Wrap(err, "[GoogleVerifier.Verify] Claims")
	}

	return &VerifiedIdentity{
		Provider:   "google",
		SubjectID:  claims.Sub,
		Email:      claims.Email,
		Name:       claims.Name,
		PictureURL: claims.Picture,
	}, nil
}
