package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"

	domainauth "github.com/graphetch/graphetch/internal/domain/auth"
)

const googleIssuer = "https://accounts.google.com"

const verifyTimeout = 5 * time.Second

// GoogleVerifier validates google-issued ID tokens. Discovery runs once at
// construction; per-request verification checks signature, expiry and that
// the audience equals our client id.
type GoogleVerifier struct {
	verifier *oidc.IDTokenVerifier
	log      *zap.Logger
}

var _ IdentityVerifier = (*GoogleVerifier)(nil)

func NewGoogleVerifier(ctx context.Context, clientID string, log *zap.Logger) (*GoogleVerifier, error) {
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("discover google oidc endpoints: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &GoogleVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
		log:      log,
	}, nil
}

// Verify maps every underlying failure to ErrInvalidAssertion: verification
// fails closed and leaves no local state behind.
func (v *GoogleVerifier) Verify(ctx context.Context, rawIDToken string) (domainauth.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	idToken, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		v.log.Debug("id token rejected", zap.Error(err))
		return domainauth.Identity{}, ErrInvalidAssertion
	}

	var claims struct {
		Email string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return domainauth.Identity{}, ErrInvalidAssertion
	}
	return domainauth.Identity{Subject: idToken.Subject, Email: claims.Email}, nil
}
