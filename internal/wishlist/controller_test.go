package wishlist_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"eazshop.com/eazshop-web/internal/auth"
	"eazshop.com/eazshop-web/internal/cart"
	"eazshop.com/eazshop-web/internal/commerce"
	"eazshop.com/eazshop-web/internal/guest"
	"eazshop.com/eazshop-web/internal/wishlist"
)

type stubAuth struct {
	mu        sync.Mutex
	authed    bool
	loggedOut int
}

func (a *stubAuth) IsAuthenticated(context.Context) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.authed
}

func (a *stubAuth) OnUnauthorized(context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loggedOut++
}

func (a *stubAuth) signIn() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.authed = true
}

type fixture struct {
	ctrl     *wishlist.Controller
	fake     *commerce.Fake
	sessions *guest.SessionProvider
	cache    *cart.Cache
	auth     *stubAuth
}

func newFixture(t *testing.T, api commerce.API) *fixture {
	t.Helper()
	kv, err := guest.NewStore(t.TempDir(), nil)
	require.NoError(t, err)

	f := &fixture{
		sessions: guest.NewSessionProvider(kv),
		cache:    cart.NewCache(),
		auth:     &stubAuth{},
	}
	if fake, ok := api.(*commerce.Fake); ok {
		f.fake = fake
	}
	f.ctrl, err = wishlist.NewController(wishlist.ControllerDeps{
		API:      api,
		Sessions: f.sessions,
		Cache:    f.cache,
		Auth:     f.auth,
	})
	require.NoError(t, err)
	return f
}

func TestSnapshotGuestWithoutSessionIsEmpty(t *testing.T) {
	t.Parallel()

	f := newFixture(t, commerce.NewFake())
	entries, err := f.ctrl.Snapshot(context.Background())
	require.NoError(t, err)
	require.Empty(t, entries)

	// Reading never mints a guest session.
	_, ok := f.sessions.CurrentID()
	require.False(t, ok)

	// The empty snapshot is cached.
	cached, ok := f.ctrl.Cached(context.Background())
	require.True(t, ok)
	require.Empty(t, cached)
}

func TestGuestToggleRoundTrip(t *testing.T) {
	t.Parallel()

	f := newFixture(t, commerce.NewFake())
	ctx := context.Background()

	added, err := f.ctrl.Toggle(ctx, "prod_1")
	require.NoError(t, err)
	require.True(t, added)

	// The first write-path call minted the session id.
	_, ok := f.sessions.CurrentID()
	require.True(t, ok)

	member, err := f.ctrl.IsInWishlist(ctx, "prod_1")
	require.NoError(t, err)
	require.True(t, member)

	added, err = f.ctrl.Toggle(ctx, "prod_1")
	require.NoError(t, err)
	require.False(t, added)

	member, err = f.ctrl.IsInWishlist(ctx, "prod_1")
	require.NoError(t, err)
	require.False(t, member)
}

func TestAccountToggle(t *testing.T) {
	t.Parallel()

	f := newFixture(t, commerce.NewFake())
	f.auth.signIn()
	ctx := auth.WithToken(context.Background(), "tok")

	added, err := f.ctrl.Toggle(ctx, "prod_1")
	require.NoError(t, err)
	require.True(t, added)

	entries, err := f.ctrl.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.True(t, entries[0].Product.Matches("prod_1"))

	added, err = f.ctrl.Toggle(ctx, "prod_1")
	require.NoError(t, err)
	require.False(t, added)
}

func TestToggleRejectsEmptyProduct(t *testing.T) {
	t.Parallel()

	f := newFixture(t, commerce.NewFake())
	_, err := f.ctrl.Toggle(context.Background(), "")
	require.ErrorIs(t, err, wishlist.ErrInvalidProduct)
	_, err = f.ctrl.IsInWishlist(context.Background(), "")
	require.ErrorIs(t, err, wishlist.ErrInvalidProduct)
}

// blockingAPI suspends guest adds until released, exposing the window in
// which a second toggle for the same product must be rejected.
type blockingAPI struct {
	*commerce.Fake
	entered chan struct{}
	release chan struct{}
}

func (b *blockingAPI) AddToGuestWishlist(ctx context.Context, sessionID, productRef string) (commerce.Payload, error) {
	b.entered <- struct{}{}
	<-b.release
	return b.Fake.AddToGuestWishlist(ctx, sessionID, productRef)
}

func TestToggleInFlightGuard(t *testing.T) {
	t.Parallel()

	api := &blockingAPI{
		Fake:    commerce.NewFake(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	f := newFixture(t, api)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := f.ctrl.Toggle(ctx, "prod_1")
		done <- err
	}()

	select {
	case <-api.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first toggle never reached the API")
	}

	_, err := f.ctrl.Toggle(ctx, "prod_1")
	require.ErrorIs(t, err, wishlist.ErrToggleInFlight)

	// A different product is unaffected by the guard.
	_, err = f.ctrl.IsInWishlist(ctx, "prod_2")
	require.NoError(t, err)

	close(api.release)
	require.NoError(t, <-done)

	// The guard lifts once the first toggle settles.
	member, err := f.ctrl.IsInWishlist(ctx, "prod_1")
	require.NoError(t, err)
	require.True(t, member)
}

func TestMergeToAccount(t *testing.T) {
	t.Parallel()

	f := newFixture(t, commerce.NewFake())
	ctx := context.Background()

	// Guest collects two products; the account already holds one of them.
	_, err := f.ctrl.Toggle(ctx, "prod_1")
	require.NoError(t, err)
	_, err = f.ctrl.Toggle(ctx, "prod_2")
	require.NoError(t, err)

	f.auth.signIn()
	authed := auth.WithToken(ctx, "tok")
	_, err = f.ctrl.Toggle(authed, "prod_2")
	require.NoError(t, err)

	require.NoError(t, f.ctrl.MergeToAccount(authed))

	// Session identity destroyed; union visible on the account.
	_, ok := f.sessions.CurrentID()
	require.False(t, ok)

	entries, err := f.ctrl.Snapshot(authed)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Merging again has nothing to merge.
	require.ErrorIs(t, f.ctrl.MergeToAccount(authed), wishlist.ErrNoGuestSession)
}

func TestMergeToAccountRequiresAuth(t *testing.T) {
	t.Parallel()

	f := newFixture(t, commerce.NewFake())
	require.ErrorIs(t, f.ctrl.MergeToAccount(context.Background()), wishlist.ErrNotAuthenticated)
}

func TestUnauthorizedSnapshotFiresLogout(t *testing.T) {
	t.Parallel()

	fake := commerce.NewFake()
	fake.RejectAuth = true
	f := newFixture(t, fake)
	f.auth.signIn()

	_, err := f.ctrl.Snapshot(auth.WithToken(context.Background(), "expired"))
	require.ErrorIs(t, err, commerce.ErrUnauthorized)

	f.auth.mu.Lock()
	logouts := f.auth.loggedOut
	f.auth.mu.Unlock()
	require.Equal(t, 1, logouts)
}
