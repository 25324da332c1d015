// Package memory is an in-memory implementation of the user and refresh-token
// repositories. It backs unit tests and local runs without postgres.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/graphetch/graphetch/internal/domain/auth"
	"github.com/graphetch/graphetch/internal/domain/user"
)

// ErrConflict mirrors the postgres repo's unique-violation sentinel.
var ErrConflict = errors.New("conflict")

type Store struct {
	// txMu serializes transactional sections; every rotate/revoke goes
	// through WithTx, which is what makes read-check-mutate atomic here.
	txMu sync.Mutex

	mu            sync.RWMutex
	nextUserID    int64
	nextTokenID   int64
	usersByID     map[int64]user.User
	userIDBySub   map[string]int64
	tokensByID    map[int64]auth.RefreshToken
	tokenIDByHash map[string]int64
}

func NewStore() *Store {
	return &Store{
		usersByID:     make(map[int64]user.User),
		userIDBySub:   make(map[string]int64),
		tokensByID:    make(map[int64]auth.RefreshToken),
		tokenIDByHash: make(map[string]int64),
	}
}

var _ auth.Transactor = (*Store)(nil)

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx)
}

// Users returns the user repository view of the store.
func (s *Store) Users() user.Repo { return &userRepo{s: s} }

// RefreshTokens returns the refresh-token repository view of the store.
func (s *Store) RefreshTokens() auth.RefreshTokenRepo { return &refreshTokenRepo{s: s} }

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if u.GoogleID != "" {
		if _, ok := r.s.userIDBySub[u.GoogleID]; ok {
			return user.ErrExists
		}
	}
	r.s.nextUserID++
	u.ID = r.s.nextUserID
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	r.s.usersByID[u.ID] = *u
	if u.GoogleID != "" {
		r.s.userIDBySub[u.GoogleID] = u.ID
	}
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.usersByID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) GetByGoogleID(_ context.Context, googleID string) (*user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.userIDBySub[googleID]
	if !ok {
		return nil, user.ErrNotFound
	}
	u := r.s.usersByID[id]
	return &u, nil
}

type refreshTokenRepo struct{ s *Store }

func (r *refreshTokenRepo) Create(_ context.Context, t *auth.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tokenIDByHash[t.TokenHash]; ok {
		return ErrConflict
	}
	r.s.nextTokenID++
	t.ID = r.s.nextTokenID
	r.s.tokensByID[t.ID] = *t
	r.s.tokenIDByHash[t.TokenHash] = t.ID
	return nil
}

func (r *refreshTokenRepo) FindForUpdate(_ context.Context, tokenHash string) (*auth.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.tokenIDByHash[tokenHash]
	if !ok {
		return nil, auth.ErrTokenNotFound
	}
	t := r.s.tokensByID[id]
	return &t, nil
}

func (r *refreshTokenRepo) MarkRotated(_ context.Context, id, replacedBy int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tokensByID[id]
	if !ok || t.RevokedAt != nil {
		return auth.ErrTokenInactive
	}
	t.RevokedAt = &at
	t.ReplacedBy = &replacedBy
	r.s.tokensByID[id] = t
	return nil
}

func (r *refreshTokenRepo) MarkRevoked(_ context.Context, id int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tokensByID[id]
	if !ok || t.RevokedAt != nil {
		return auth.ErrTokenInactive
	}
	t.RevokedAt = &at
	r.s.tokensByID[id] = t
	return nil
}

func (r *refreshTokenRepo) ListByUser(_ context.Context, userID int64) ([]*auth.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*auth.RefreshToken
	for id := int64(1); id <= r.s.nextTokenID; id++ {
		t, ok := r.s.tokensByID[id]
		if !ok || t.UserID != userID {
			continue
		}
		cp := t
		out = append(out, &cp)
	}
	return out, nil
}
