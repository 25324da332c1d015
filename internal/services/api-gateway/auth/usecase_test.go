package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainauth "github.com/graphetch/graphetch/internal/domain/auth"
	"github.com/graphetch/graphetch/internal/domain/user"
	"github.com/graphetch/graphetch/internal/repository/memory"
)

type fakeVerifier struct {
	ident domainauth.Identity
	err   error
}

func (f *fakeVerifier) Verify(context.Context, string) (domainauth.Identity, error) {
	if f.err != nil {
		return domainauth.Identity{}, f.err
	}
	return f.ident, nil
}

type fakeExchanger struct {
	err   error
	calls int
}

func (f *fakeExchanger) Exchange(context.Context, string, string) error {
	f.calls++
	return f.err
}

type captureSink struct {
	mu     sync.Mutex
	events []domainauth.Event
}

func (s *captureSink) Publish(_ context.Context, ev domainauth.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *captureSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Type
	}
	return out
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	uc        *Usecase
	store     *memory.Store
	verifier  *fakeVerifier
	exchanger *fakeExchanger
	sink      *captureSink
	clock     *testClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	verifier := &fakeVerifier{ident: domainauth.Identity{Subject: "google-sub-1", Email: "u@example.com"}}
	exchanger := &fakeExchanger{}
	sink := &captureSink{}
	clock := &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	uc := NewUsecase(
		zap.NewNop(),
		store.Users(),
		store.RefreshTokens(),
		store,
		verifier,
		exchanger,
		sink,
		Config{
			Secret:     []byte("test-secret"),
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			Now:        clock.Now,
		},
	)
	return &fixture{uc: uc, store: store, verifier: verifier, exchanger: exchanger, sink: sink, clock: clock}
}

func TestAuthenticate_CreatesUserAndIssuesTokens(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	usr, access, refresh, err := f.uc.Authenticate(ctx, "id-token", "auth-code")
	require.NoError(t, err)
	require.NotZero(t, usr.ID)
	require.Equal(t, "u@example.com", usr.Mail)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	uid, err := f.uc.ParseAccess(access)
	require.NoError(t, err)
	require.Equal(t, usr.ID, uid)

	require.Equal(t, 1, f.exchanger.calls)
	require.Equal(t, []string{domainauth.EventUserAuthenticated}, f.sink.types())
}

func TestAuthenticate_SameSubjectReusesUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, _, r1, err := f.uc.Authenticate(ctx, "id-token", "code-1")
	require.NoError(t, err)
	second, _, r2, err := f.uc.Authenticate(ctx, "id-token", "code-2")
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.NotEqual(t, r1, r2)

	chain, err := f.uc.Chain(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, chain, 2)
}

func TestAuthenticate_VerifierFailureShortCircuits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.verifier.err = ErrInvalidAssertion

	_, _, _, err := f.uc.Authenticate(ctx, "bad", "code")
	require.ErrorIs(t, err, ErrInvalidAssertion)
	require.Zero(t, f.exchanger.calls)

	_, err = f.store.Users().GetByGoogleID(ctx, "google-sub-1")
	require.ErrorIs(t, err, user.ErrNotFound)
}

func TestAuthenticate_ExchangerFailureShortCircuits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.exchanger.err = ErrInvalidGrant

	_, _, _, err := f.uc.Authenticate(ctx, "id-token", "bad-code")
	require.ErrorIs(t, err, ErrInvalidGrant)

	_, err = f.store.Users().GetByGoogleID(ctx, "google-sub-1")
	require.ErrorIs(t, err, user.ErrNotFound)
	require.Empty(t, f.sink.types())
}

func TestRefresh_RotatesAndLinksSuccessor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	usr, _, r0, err := f.uc.Authenticate(ctx, "id-token", "code")
	require.NoError(t, err)

	access, r1, uid, err := f.uc.Refresh(ctx, r0)
	require.NoError(t, err)
	require.Equal(t, usr.ID, uid)
	require.NotEmpty(t, access)
	require.NotEqual(t, r0, r1)

	chain, err := f.uc.Chain(ctx, usr.ID)
	require.NoError(t, err)
	require.Len(t, chain, 2)

	old, successor := chain[0], chain[1]
	require.True(t, old.Revoked())
	require.NotNil(t, old.ReplacedBy)
	require.Equal(t, successor.ID, *old.ReplacedBy)
	require.True(t, successor.Active(f.clock.Now()))
}

func TestRefresh_SecondUseOfSameValueFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, _, r0, err := f.uc.Authenticate(ctx, "id-token", "code")
	require.NoError(t, err)

	_, _, _, err = f.uc.Refresh(ctx, r0)
	require.NoError(t, err)

	_, _, _, err = f.uc.Refresh(ctx, r0)
	require.ErrorIs(t, err, ErrInvalidToken)

	require.Contains(t, f.sink.types(), domainauth.EventTokenReuse)
}

func TestRefresh_ConcurrentUseSingleWinner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, _, r0, err := f.uc.Authenticate(ctx, "id-token", "code")
	require.NoError(t, err)

	const n = 16
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, _, _, errs[i] = f.uc.Refresh(ctx, r0)
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, ErrInvalidToken)
		}
	}
	require.Equal(t, 1, wins)

	// one successor was minted for the winner, nothing for the losers
	chain, err := f.uc.Chain(ctx, 1)
	require.NoError(t, err)
	require.Len(t, chain, 2)
}

func TestRefresh_UnknownOrEmptyValue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, _, _, err := f.uc.Refresh(ctx, "")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, _, _, err = f.uc.Refresh(ctx, "never-issued")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefresh_ExpiredToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, _, r0, err := f.uc.Authenticate(ctx, "id-token", "code")
	require.NoError(t, err)

	f.clock.Advance(7*24*time.Hour + time.Second)

	_, _, _, err = f.uc.Refresh(ctx, r0)
	require.ErrorIs(t, err, ErrInvalidToken)
	// expiry is not reuse
	require.NotContains(t, f.sink.types(), domainauth.EventTokenReuse)
}

func TestRefresh_AtExpiryBoundary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, _, r0, err := f.uc.Authenticate(ctx, "id-token", "code")
	require.NoError(t, err)

	// one second before the deadline the token still works
	f.clock.Advance(7*24*time.Hour - time.Second)

	_, _, _, err = f.uc.Refresh(ctx, r0)
	require.NoError(t, err)
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	usr, _, r0, err := f.uc.Authenticate(ctx, "id-token", "code")
	require.NoError(t, err)

	ok, err := f.uc.Revoke(ctx, r0)
	require.NoError(t, err)
	require.True(t, ok)

	// revoking twice reports nothing to do
	ok, err = f.uc.Revoke(ctx, r0)
	require.NoError(t, err)
	require.False(t, ok)

	// a revoked token no longer refreshes
	_, _, _, err = f.uc.Refresh(ctx, r0)
	require.ErrorIs(t, err, ErrInvalidToken)

	chain, err := f.uc.Chain(ctx, usr.ID)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	require.True(t, chain[0].Revoked())
	require.Nil(t, chain[0].ReplacedBy)
}

func TestRevoke_UnknownOrEmpty(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ok, err := f.uc.Revoke(ctx, "")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = f.uc.Revoke(ctx, "never-issued")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRevoke_DoesNotCascade(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, _, r0, err := f.uc.Authenticate(ctx, "id-token", "code")
	require.NoError(t, err)
	_, r1, _, err := f.uc.Refresh(ctx, r0)
	require.NoError(t, err)

	// revoking the rotated ancestor leaves the live successor untouched
	ok, err := f.uc.Revoke(ctx, r0)
	require.NoError(t, err)
	require.False(t, ok)

	_, _, _, err = f.uc.Refresh(ctx, r1)
	require.NoError(t, err)
}

func TestChain_TracksReplacementLinks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	usr, _, r0, err := f.uc.Authenticate(ctx, "id-token", "code")
	require.NoError(t, err)
	_, r1, _, err := f.uc.Refresh(ctx, r0)
	require.NoError(t, err)
	_, _, _, err = f.uc.Refresh(ctx, r1)
	require.NoError(t, err)

	chain, err := f.uc.Chain(ctx, usr.ID)
	require.NoError(t, err)
	require.Len(t, chain, 3)

	require.NotNil(t, chain[0].ReplacedBy)
	require.Equal(t, chain[1].ID, *chain[0].ReplacedBy)
	require.NotNil(t, chain[1].ReplacedBy)
	require.Equal(t, chain[2].ID, *chain[1].ReplacedBy)
	require.Nil(t, chain[2].ReplacedBy)
	require.True(t, chain[2].Active(f.clock.Now()))
}

func TestParseAccess_InvalidCollapses(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.ParseAccess("garbage")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticate_InfraErrorSurfaces(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.exchanger.err = errors.New("redis down")

	_, _, _, err := f.uc.Authenticate(ctx, "id-token", "code")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalidGrant)
}
