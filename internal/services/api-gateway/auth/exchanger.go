package auth

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const exchangeTimeout = 10 * time.Second

// CredentialStore keeps one durable provider credential per external subject.
type CredentialStore interface {
	Exists(ctx context.Context, subjectID string) (bool, error)
	Put(ctx context.Context, subjectID string, tok *oauth2.Token) error
}

type ExchangerConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// GoogleExchanger redeems one-time authorization codes for offline-access
// credentials. The exchange is skipped when a credential is already on file
// for the subject: authorization codes are single-use and must not be
// replayed once a grant exists.
type GoogleExchanger struct {
	store    CredentialStore
	log      *zap.Logger
	exchange func(ctx context.Context, code string) (*oauth2.Token, error)
}

var _ GrantExchanger = (*GoogleExchanger)(nil)

func NewGoogleExchanger(cfg ExchangerConfig, store CredentialStore, log *zap.Logger) *GoogleExchanger {
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"openid", "email", "https://www.googleapis.com/auth/drive.file"},
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &GoogleExchanger{
		store: store,
		log:   log,
		exchange: func(ctx context.Context, code string) (*oauth2.Token, error) {
			return oc.Exchange(ctx, code, oauth2.AccessTypeOffline)
		},
	}
}

func (e *GoogleExchanger) Exchange(ctx context.Context, subjectID, authCode string) error {
	ctx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()

	ok, err := e.store.Exists(ctx, subjectID)
	if err != nil {
		return fmt.Errorf("credential lookup: %w", err)
	}
	if ok {
		return nil
	}

	tok, err := e.exchange(ctx, authCode)
	if err != nil {
		e.log.Warn("authorization code rejected", zap.Error(err))
		return ErrInvalidGrant
	}
	if err := e.store.Put(ctx, subjectID, tok); err != nil {
		return fmt.Errorf("persist credential: %w", err)
	}
	return nil
}
