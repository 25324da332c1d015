// Package auth orchestrates the credential issuance flow: google identity
// verification, grant exchange, local user resolution and the refresh-token
// lifecycle.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	tokens "github.com/graphetch/graphetch/internal/auth"
	domainauth "github.com/graphetch/graphetch/internal/domain/auth"
	"github.com/graphetch/graphetch/internal/domain/user"
	"github.com/graphetch/graphetch/internal/obs"
)

// Client-visible failure modes. Refresh failures collapse to ErrInvalidToken
// regardless of cause so the API never reveals whether a presented token was
// unknown, expired, rotated or revoked.
var (
	ErrInvalidAssertion = errors.New("invalid identity token")
	ErrInvalidGrant     = errors.New("invalid authorization code")
	ErrInvalidToken     = errors.New("invalid token")
)

// IdentityVerifier validates an external identity assertion. Must fail closed:
// any verification problem is an error, never a degraded identity.
type IdentityVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (domainauth.Identity, error)
}

// GrantExchanger turns a one-time authorization code into a durable provider
// credential for the subject, or confirms one already exists.
type GrantExchanger interface {
	Exchange(ctx context.Context, subjectID, authCode string) error
}

type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

type Usecase struct {
	log       *zap.Logger
	users     user.Repo
	rt        domainauth.RefreshTokenRepo
	tx        domainauth.Transactor
	verifier  IdentityVerifier
	exchanger GrantExchanger
	events    domainauth.EventSink
	cfg       Config
}

func NewUsecase(
	log *zap.Logger,
	users user.Repo,
	rt domainauth.RefreshTokenRepo,
	tx domainauth.Transactor,
	verifier IdentityVerifier,
	exchanger GrantExchanger,
	events domainauth.EventSink,
	cfg Config,
) *Usecase {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{
		log:       log,
		users:     users,
		rt:        rt,
		tx:        tx,
		verifier:  verifier,
		exchanger: exchanger,
		events:    events,
		cfg:       cfg,
	}
}

// Authenticate exchanges (idToken, authCode) for a local session. Verifier and
// exchanger failures short-circuit before any local write.
func (u *Usecase) Authenticate(ctx context.Context, idToken, authCode string) (*user.User, string, string, error) {
	ident, err := u.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, "", "", err
	}
	if err := u.exchanger.Exchange(ctx, ident.Subject, authCode); err != nil {
		return nil, "", "", err
	}

	usr, err := u.findOrCreateUser(ctx, ident)
	if err != nil {
		return nil, "", "", err
	}

	access, refresh, err := u.issueTokens(ctx, usr.ID)
	if err != nil {
		return nil, "", "", err
	}

	u.publish(ctx, domainauth.EventUserAuthenticated, usr.ID)
	return usr, access, refresh, nil
}

func (u *Usecase) findOrCreateUser(ctx context.Context, ident domainauth.Identity) (*user.User, error) {
	usr, err := u.users.GetByGoogleID(ctx, ident.Subject)
	if err == nil {
		return usr, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	usr = &user.User{Mail: ident.Email, GoogleID: ident.Subject}
	if err := u.users.Create(ctx, usr); err != nil {
		// two first-time authentications for one subject raced; the loser
		// picks up the winner's row
		if errors.Is(err, user.ErrExists) {
			return u.users.GetByGoogleID(ctx, ident.Subject)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return usr, nil
}

// Refresh rotates the presented refresh token: the old token is revoked and
// linked to its successor in one transaction, so presenting a value twice can
// never mint credentials twice.
func (u *Usecase) Refresh(ctx context.Context, raw string) (string, string, int64, error) {
	if raw == "" {
		return "", "", 0, ErrInvalidToken
	}
	hash := tokens.HashValue(raw)
	now := u.cfg.Now()

	var (
		userID  int64
		access  string
		refresh string
	)
	err := u.tx.WithTx(ctx, func(ctx context.Context) error {
		old, err := u.rt.FindForUpdate(ctx, hash)
		if err != nil {
			return err
		}
		if !old.Active(now) {
			if old.Revoked() {
				// a previously invalidated token came back: either a stale
				// client or a stolen value being replayed
				obs.WithTrace(ctx, u.log).Warn("inactive refresh token presented",
					zap.Int64("user_id", old.UserID),
					zap.Int64("token_id", old.ID))
				u.publish(ctx, domainauth.EventTokenReuse, old.UserID)
			}
			return domainauth.ErrTokenInactive
		}

		userID = old.UserID
		var successor *domainauth.RefreshToken
		access, refresh, successor, err = u.issue(ctx, old.UserID)
		if err != nil {
			return err
		}
		return u.rt.MarkRotated(ctx, old.ID, successor.ID, now)
	})
	if err != nil {
		switch {
		case errors.Is(err, domainauth.ErrTokenNotFound), errors.Is(err, domainauth.ErrTokenInactive):
			return "", "", 0, ErrInvalidToken
		default:
			return "", "", 0, err
		}
	}

	u.publish(ctx, domainauth.EventTokenRotated, userID)
	return access, refresh, userID, nil
}

// Revoke terminates the presented token. Reports false for unknown or already
// inactive tokens; revocation never cascades along the replacement chain.
func (u *Usecase) Revoke(ctx context.Context, raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	hash := tokens.HashValue(raw)
	now := u.cfg.Now()

	var (
		revoked bool
		userID  int64
	)
	err := u.tx.WithTx(ctx, func(ctx context.Context) error {
		t, err := u.rt.FindForUpdate(ctx, hash)
		if err != nil {
			if errors.Is(err, domainauth.ErrTokenNotFound) {
				return nil
			}
			return err
		}
		if !t.Active(now) {
			return nil
		}
		if err := u.rt.MarkRevoked(ctx, t.ID, now); err != nil {
			if errors.Is(err, domainauth.ErrTokenInactive) {
				return nil
			}
			return err
		}
		revoked = true
		userID = t.UserID
		return nil
	})
	if err != nil {
		return false, err
	}
	if revoked {
		u.publish(ctx, domainauth.EventTokenRevoked, userID)
	}
	return revoked, nil
}

// Chain returns every refresh token a user has held, oldest first; successor
// links let an operator reconstruct the full replacement chain.
func (u *Usecase) Chain(ctx context.Context, userID int64) ([]*domainauth.RefreshToken, error) {
	return u.rt.ListByUser(ctx, userID)
}

func (u *Usecase) ParseAccess(token string) (int64, error) {
	id, err := tokens.ParseAccessToken(token, u.cfg.Secret)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return id, nil
}

func (u *Usecase) issueTokens(ctx context.Context, userID int64) (string, string, error) {
	access, refreshRaw, _, err := u.issue(ctx, userID)
	return access, refreshRaw, err
}

func (u *Usecase) issue(ctx context.Context, userID int64) (string, string, *domainauth.RefreshToken, error) {
	now := u.cfg.Now()
	access, err := tokens.NewAccessToken(userID, u.cfg.Secret, u.cfg.AccessTTL, now)
	if err != nil {
		return "", "", nil, fmt.Errorf("sign access: %w", err)
	}
	refreshRaw, err := tokens.NewRefreshValue()
	if err != nil {
		return "", "", nil, fmt.Errorf("gen refresh: %w", err)
	}
	rec := &domainauth.RefreshToken{
		UserID:    userID,
		TokenHash: tokens.HashValue(refreshRaw),
		CreatedAt: now,
		ExpiresAt: now.Add(u.cfg.RefreshTTL),
	}
	if err := u.rt.Create(ctx, rec); err != nil {
		return "", "", nil, fmt.Errorf("save refresh: %w", err)
	}
	return access, refreshRaw, rec, nil
}

func (u *Usecase) publish(ctx context.Context, typ string, userID int64) {
	if u.events == nil {
		return
	}
	ev := domainauth.Event{Type: typ, UserID: userID, At: u.cfg.Now()}
	if err := u.events.Publish(ctx, ev); err != nil {
		obs.WithTrace(ctx, u.log).Warn("publish auth event", zap.String("type", typ), zap.Error(err))
	}
}
