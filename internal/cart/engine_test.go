package cart_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"eazshop.com/eazshop-web/internal/auth"
	"eazshop.com/eazshop-web/internal/cart"
	"eazshop.com/eazshop-web/internal/commerce"
	"eazshop.com/eazshop-web/internal/guest"
)

// stubAuth drives the engine's mode and records logout side effects.
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

func (a *stubAuth) logouts() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loggedOut
}

type engineFixture struct {
	engine   *cart.Engine
	fake     *commerce.Fake
	store    *guest.CartStore
	sessions *guest.SessionProvider
	cache    *cart.Cache
	auth     *stubAuth
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	kv, err := guest.NewStore(t.TempDir(), nil)
	require.NoError(t, err)

	f := &engineFixture{
		fake:     commerce.NewFake(),
		store:    guest.NewCartStore(kv, nil, nil),
		sessions: guest.NewSessionProvider(kv),
		cache:    cart.NewCache(),
		auth:     &stubAuth{},
	}
	f.engine, err = cart.NewEngine(cart.EngineDeps{
		API:       f.fake,
		GuestCart: f.store,
		Sessions:  f.sessions,
		Cache:     f.cache,
		Auth:      f.auth,
	})
	require.NoError(t, err)
	return f
}

func TestNewEngineRequiresDeps(t *testing.T) {
	t.Parallel()

	_, err := cart.NewEngine(cart.EngineDeps{})
	require.Error(t, err)
}

func TestGuestAddMergesByProductAndVariant(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.AddToCart(ctx, cart.AddInput{ProductRef: "prod_1", Quantity: 1, Name: "Kente Tote", Price: 120}))
	require.NoError(t, f.engine.AddToCart(ctx, cart.AddInput{ProductRef: "prod_1", Quantity: 2}))
	require.NoError(t, f.engine.AddToCart(ctx, cart.AddInput{ProductRef: "prod_1", VariantRef: "var_9", Quantity: 1}))

	items, err := f.engine.GetCart(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, 3, items[0].Quantity)
	require.Equal(t, "Kente Tote", items[0].Product.Name)
	require.Equal(t, "var_9", items[1].VariantRefID())

	// The merged state survives persistence.
	require.Len(t, f.store.Load(), 2)
}

func TestGuestAddRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	require.ErrorIs(t, f.engine.AddToCart(ctx, cart.AddInput{Quantity: 1}), cart.ErrInvalidInput)
	require.ErrorIs(t, f.engine.AddToCart(ctx, cart.AddInput{ProductRef: "p", Quantity: 0}), cart.ErrInvalidInput)
	require.ErrorIs(t, f.engine.UpdateQuantity(ctx, "", 2), cart.ErrInvalidInput)
	require.ErrorIs(t, f.engine.RemoveItem(ctx, ""), cart.ErrInvalidInput)
}

func TestGuestQuantityZeroRemovesLine(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.AddToCart(ctx, cart.AddInput{ProductRef: "prod_1", Quantity: 2}))
	require.NoError(t, f.engine.AddToCart(ctx, cart.AddInput{ProductRef: "prod_2", Quantity: 1}))

	require.NoError(t, f.engine.UpdateQuantity(ctx, "prod_1", 0))

	items, err := f.engine.GetCart(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "prod_2", items[0].Product.Ref())
}

func TestGuestUpdateAndRemoveByProductRef(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.AddToCart(ctx, cart.AddInput{ProductRef: "prod_1", Quantity: 1}))
	require.NoError(t, f.engine.UpdateQuantity(ctx, "prod_1", 5))

	items, err := f.engine.GetCart(ctx)
	require.NoError(t, err)
	require.Equal(t, 5, items[0].Quantity)

	require.NoError(t, f.engine.RemoveItem(ctx, "prod_1"))
	items, err = f.engine.GetCart(ctx)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestGuestClearCart(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.AddToCart(ctx, cart.AddInput{ProductRef: "prod_1", Quantity: 1}))
	require.NoError(t, f.engine.ClearCart(ctx))

	items, err := f.engine.GetCart(ctx)
	require.NoError(t, err)
	require.Empty(t, items)
	require.Empty(t, f.store.Load())
}

func TestAccountCartReadsThroughCache(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	f.auth.signIn()
	ctx := auth.WithToken(context.Background(), "tok")

	require.NoError(t, f.engine.AddToCart(ctx, cart.AddInput{ProductRef: "prod_1", Quantity: 2}))

	items, err := f.engine.GetCart(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 2, items[0].Quantity)

	// The cached snapshot serves the next read.
	snap, ok := f.cache.Get(cart.CartKey(cart.ModeAccount))
	require.True(t, ok)
	require.Len(t, snap.Items, 1)

	// Removal invalidates; the following read refetches the emptied cart.
	require.NoError(t, f.engine.RemoveItem(ctx, items[0].ID))
	_, ok = f.cache.Get(cart.CartKey(cart.ModeAccount))
	require.False(t, ok)

	items, err = f.engine.GetCart(ctx)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestUnauthorizedFiresLogout(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	f.auth.signIn()
	f.fake.RejectAuth = true
	ctx := auth.WithToken(context.Background(), "expired")

	_, err := f.engine.GetCart(ctx)
	require.ErrorIs(t, err, commerce.ErrUnauthorized)
	require.Equal(t, 1, f.auth.logouts())
}

func TestSyncRequiresAuthentication(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	_, err := f.engine.SyncGuestCartToAccount(context.Background())
	require.ErrorIs(t, err, cart.ErrNotAuthenticated)
}

func TestSyncEmptyGuestCartIsNoop(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	f.auth.signIn()
	ctx := auth.WithToken(context.Background(), "tok")

	report, err := f.engine.SyncGuestCartToAccount(ctx)
	require.NoError(t, err)
	require.Equal(t, cart.SyncReport{}, report)
	require.Empty(t, f.fake.CartItems(ctx))
}

func TestSyncMovesGuestItemsIntoAccount(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()
	require.NoError(t, f.engine.AddToCart(ctx, cart.AddInput{ProductRef: "prod_1", Quantity: 2}))
	require.NoError(t, f.engine.AddToCart(ctx, cart.AddInput{ProductRef: "prod_2", VariantRef: "var_9", Quantity: 1}))
	_ = f.sessions.GetOrCreateID()

	f.auth.signIn()
	authed := auth.WithToken(ctx, "tok")

	report, err := f.engine.SyncGuestCartToAccount(authed)
	require.NoError(t, err)
	require.Equal(t, cart.SyncReport{Success: 2, Failed: 0}, report)

	// Local store drained and session identity destroyed.
	require.Empty(t, f.store.Load())
	_, ok := f.sessions.CurrentID()
	require.False(t, ok)

	// Account cart carries the merged lines, variant included. Arrival order
	// is not guaranteed; the adds run concurrently.
	merged := f.fake.CartItems(authed)
	require.Len(t, merged, 2)
	byRef := map[string]commerce.CartItem{}
	for _, it := range merged {
		byRef[it.Product.Ref()] = it
	}
	require.Equal(t, 2, byRef["prod_1"].Quantity)
	require.Equal(t, "var_9", byRef["prod_2"].VariantRefID())

	items, err := f.engine.GetCart(authed)
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestSyncPartialFailureKeepsOnlyFailedItems(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()
	for _, ref := range []string{"prod_1", "prod_2", "prod_3"} {
		require.NoError(t, f.engine.AddToCart(ctx, cart.AddInput{ProductRef: ref, Quantity: 1}))
	}
	_ = f.sessions.GetOrCreateID()

	f.fake.AddFailures = map[string]error{"prod_2": errors.New("out of stock")}
	f.auth.signIn()
	authed := auth.WithToken(ctx, "tok")

	report, err := f.engine.SyncGuestCartToAccount(authed)
	require.NoError(t, err)
	require.Equal(t, cart.SyncReport{Success: 2, Failed: 1}, report)

	// Exactly the failed line stays local; the session id survives with it.
	remaining := f.store.Load()
	require.Len(t, remaining, 1)
	require.Equal(t, "prod_2", remaining[0].Product.Ref())
	_, ok := f.sessions.CurrentID()
	require.True(t, ok)

	require.Len(t, f.fake.CartItems(authed), 2)

	// A retry resubmits only the failed line; nothing merged twice.
	f.fake.AddFailures = nil
	report, err = f.engine.SyncGuestCartToAccount(authed)
	require.NoError(t, err)
	require.Equal(t, cart.SyncReport{Success: 1, Failed: 0}, report)

	require.Empty(t, f.store.Load())
	_, ok = f.sessions.CurrentID()
	require.False(t, ok)

	merged := f.fake.CartItems(authed)
	require.Len(t, merged, 3)
	for _, it := range merged {
		require.Equal(t, 1, it.Quantity)
	}
}

func TestSyncRefreshesBothCacheEntries(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()
	require.NoError(t, f.engine.AddToCart(ctx, cart.AddInput{ProductRef: "prod_1", Quantity: 1}))

	f.auth.signIn()
	authed := auth.WithToken(ctx, "tok")
	// Seed a stale account snapshot.
	f.cache.PutCart(cart.CartKey(cart.ModeAccount), f.cache.Begin(), nil)

	_, err := f.engine.SyncGuestCartToAccount(authed)
	require.NoError(t, err)

	guestSnap, ok := f.cache.Get(cart.CartKey(cart.ModeGuest))
	require.True(t, ok)
	require.Empty(t, guestSnap.Items)

	_, ok = f.cache.Get(cart.CartKey(cart.ModeAccount))
	require.False(t, ok)
}
