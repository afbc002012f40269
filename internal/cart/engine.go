// Package cart owns cart state for both anonymous and authenticated
// shoppers: guest mutations against the local persisted store, account
// mutations against the commerce API, the process-wide read cache, and the
// one-shot merge of guest items into an account at login.
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"eazshop.com/eazshop-web/internal/commerce"
)

var (
	// ErrInvalidInput indicates a missing product ref or non-positive quantity.
	ErrInvalidInput = errors.New("cart: invalid input")
	// ErrNotAuthenticated is returned when the merge protocol is invoked
	// without a signed-in customer to merge into.
	ErrNotAuthenticated = errors.New("cart: not authenticated")

	errAPIRequired       = errors.New("cart: commerce API is required")
	errGuestCartRequired = errors.New("cart: guest cart store is required")
	errCacheRequired     = errors.New("cart: cache is required")
	errAuthRequired      = errors.New("cart: auth state is required")
)

// AuthState is the authentication collaborator: a pass/fail signal plus the
// session-invalidation side effect fired on credential failure.
type AuthState interface {
	IsAuthenticated(ctx context.Context) bool
	OnUnauthorized(ctx context.Context)
}

// GuestCart is the local persisted guest cart.
type GuestCart interface {
	Load() []commerce.CartItem
	Save(items []commerce.CartItem) error
}

// SessionIdentity is the guest session identifier lifecycle.
type SessionIdentity interface {
	CurrentID() (string, bool)
	Clear() error
}

// AddInput describes a product being added to the cart, including the
// display snapshot captured for guest-created line items.
type AddInput struct {
	ProductRef string
	VariantRef string
	Quantity   int
	Name       string
	Price      float64
	ImageURL   string
}

// SyncReport summarizes one run of the guest-to-account merge. A partial
// failure is a normal outcome, not an error: failed items stay in the local
// store and are resubmitted by the next run.
type SyncReport struct {
	Success int
	Failed  int
}

// EngineDeps wires the engine's collaborators.
type EngineDeps struct {
	API       commerce.API
	GuestCart GuestCart
	Sessions  SessionIdentity
	Cache     *Cache
	Auth      AuthState
	Normalize *commerce.Normalizer
	Logger    *zap.Logger
	Clock     func() time.Time
}

// Engine is the dual-mode cart state machine.
type Engine struct {
	api       commerce.API
	guest     GuestCart
	sessions  SessionIdentity
	cache     *Cache
	auth      AuthState
	normalize *commerce.Normalizer
	log       *zap.Logger
	now       func() time.Time
}

// NewEngine validates dependencies and constructs the engine.
func NewEngine(deps EngineDeps) (*Engine, error) {
	if deps.API == nil {
		return nil, errAPIRequired
	}
	if deps.GuestCart == nil {
		return nil, errGuestCartRequired
	}
	if deps.Cache == nil {
		return nil, errCacheRequired
	}
	if deps.Auth == nil {
		return nil, errAuthRequired
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	normalize := deps.Normalize
	if normalize == nil {
		normalize = commerce.NewNormalizer(log)
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &Engine{
		api:       deps.API,
		guest:     deps.GuestCart,
		sessions:  deps.Sessions,
		cache:     deps.Cache,
		auth:      deps.Auth,
		normalize: normalize,
		log:       log,
		now:       now,
	}, nil
}

// Mode reports which cart the request operates on.
func (e *Engine) Mode(ctx context.Context) OwnerMode {
	if e.auth.IsAuthenticated(ctx) {
		return ModeAccount
	}
	return ModeGuest
}

// GetCart returns the active cart's items, reading through the cache.
func (e *Engine) GetCart(ctx context.Context) ([]commerce.CartItem, error) {
	mode := e.Mode(ctx)
	key := CartKey(mode)
	if snap, ok := e.cache.Get(key); ok {
		return snap.Items, nil
	}
	if mode == ModeGuest {
		items := e.guest.Load()
		e.cache.PutCart(key, e.cache.Begin(), items)
		return items, nil
	}
	seq := e.cache.Begin()
	payload, err := e.api.GetCart(ctx)
	if err != nil {
		return nil, e.remoteErr(ctx, err)
	}
	items := e.normalize.CartItems(payload)
	e.cache.PutCart(key, seq, items)
	return items, nil
}

// AddToCart adds the product to the active cart. An existing line with the
// same (product, variant) pair is incremented instead of duplicated.
func (e *Engine) AddToCart(ctx context.Context, in AddInput) error {
	if in.ProductRef == "" || in.Quantity < 1 {
		return ErrInvalidInput
	}
	if e.Mode(ctx) == ModeGuest {
		items := e.guest.Load()
		found := false
		for i := range items {
			if items[i].Product.Ref() == in.ProductRef && items[i].VariantRefID() == in.VariantRef {
				items[i].Quantity += in.Quantity
				found = true
				break
			}
		}
		if !found {
			item := commerce.CartItem{
				ID: fmt.Sprintf("guest-%d-%s", e.now().UnixMilli(), in.ProductRef),
				Product: commerce.ProductRef{
					ID:       in.ProductRef,
					Name:     in.Name,
					Price:    in.Price,
					ImageURL: in.ImageURL,
				},
				Quantity: in.Quantity,
			}
			if in.VariantRef != "" {
				item.Variant = &commerce.VariantRef{ID: in.VariantRef}
			}
			items = append(items, item)
		}
		e.saveGuest(items)
		e.cache.PutCart(CartKey(ModeGuest), e.cache.Begin(), items)
		return nil
	}

	seq := e.cache.Begin()
	payload, err := e.api.AddToCart(ctx, in.ProductRef, in.Quantity, in.VariantRef)
	if err != nil {
		return e.remoteErr(ctx, err)
	}
	e.cache.PutCart(CartKey(ModeAccount), seq, e.normalize.CartItems(payload))
	return nil
}

// UpdateQuantity sets a line's quantity. Quantity zero (or less) removes the
// line; the cart never holds a non-positive quantity.
func (e *Engine) UpdateQuantity(ctx context.Context, itemID string, quantity int) error {
	if itemID == "" {
		return ErrInvalidInput
	}
	if quantity <= 0 {
		return e.RemoveItem(ctx, itemID)
	}
	if e.Mode(ctx) == ModeGuest {
		items := e.guest.Load()
		for i := range items {
			if matchesLine(items[i], itemID) {
				items[i].Quantity = quantity
				break
			}
		}
		e.saveGuest(items)
		e.cache.PutCart(CartKey(ModeGuest), e.cache.Begin(), items)
		return nil
	}

	seq := e.cache.Begin()
	payload, err := e.api.UpdateCartItem(ctx, itemID, quantity)
	if err != nil {
		return e.remoteErr(ctx, err)
	}
	e.cache.PutCart(CartKey(ModeAccount), seq, e.normalize.CartItems(payload))
	return nil
}

// RemoveItem deletes a line from the active cart.
func (e *Engine) RemoveItem(ctx context.Context, itemID string) error {
	if itemID == "" {
		return ErrInvalidInput
	}
	if e.Mode(ctx) == ModeGuest {
		items := e.guest.Load()
		kept := items[:0]
		for _, it := range items {
			if !matchesLine(it, itemID) {
				kept = append(kept, it)
			}
		}
		e.saveGuest(kept)
		e.cache.PutCart(CartKey(ModeGuest), e.cache.Begin(), kept)
		return nil
	}

	if err := e.api.RemoveCartItem(ctx, itemID); err != nil {
		return e.remoteErr(ctx, err)
	}
	// The removal response carries no cart document; drop the entry so the
	// next read refetches the authoritative state.
	e.cache.Invalidate(CartKey(ModeAccount))
	return nil
}

// ClearCart empties the active cart.
func (e *Engine) ClearCart(ctx context.Context) error {
	if e.Mode(ctx) == ModeGuest {
		e.saveGuest([]commerce.CartItem{})
		e.cache.PutCart(CartKey(ModeGuest), e.cache.Begin(), []commerce.CartItem{})
		return nil
	}
	seq := e.cache.Begin()
	if err := e.api.ClearCart(ctx); err != nil {
		return e.remoteErr(ctx, err)
	}
	e.cache.PutCart(CartKey(ModeAccount), seq, []commerce.CartItem{})
	return nil
}

// SyncGuestCartToAccount merges the persisted guest cart into the signed-in
// customer's account cart:
//
//  1. every guest line is submitted as an independent, concurrent remote add;
//  2. once all have settled, the local store is rewritten to hold only the
//     failed lines, so a retry resubmits nothing already merged;
//  3. the account cart cache entry is invalidated for refetch;
//  4. when no unresolved lines remain, the guest session identity is cleared.
func (e *Engine) SyncGuestCartToAccount(ctx context.Context) (SyncReport, error) {
	if !e.auth.IsAuthenticated(ctx) {
		return SyncReport{}, ErrNotAuthenticated
	}

	items := e.guest.Load()
	if len(items) == 0 {
		e.clearSessionIfDrained()
		return SyncReport{}, nil
	}

	results := make([]error, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for i := range items {
		i, it := i, items[i]
		g.Go(func() error {
			_, err := e.api.AddToCart(gctx, it.Product.Ref(), it.Quantity, it.VariantRefID())
			results[i] = err
			// Item outcomes are independent; never cancel the batch.
			return nil
		})
	}
	_ = g.Wait()

	failed := make([]commerce.CartItem, 0, len(items))
	for i, it := range items {
		if results[i] != nil {
			e.log.Warn("cart: merge item failed",
				zap.String("product", it.Product.Ref()),
				zap.Error(results[i]))
			failed = append(failed, it)
		}
	}

	e.saveGuest(failed)
	e.cache.PutCart(CartKey(ModeGuest), e.cache.Begin(), failed)
	e.cache.Invalidate(CartKey(ModeAccount))

	if len(failed) == 0 {
		e.clearSessionIfDrained()
	}

	report := SyncReport{Success: len(items) - len(failed), Failed: len(failed)}
	e.log.Info("cart: guest merge finished",
		zap.Int("success", report.Success),
		zap.Int("failed", report.Failed))
	return report, nil
}

// clearSessionIfDrained destroys the guest session id once the persisted
// guest cart is observed empty. It never runs while unresolved items remain.
func (e *Engine) clearSessionIfDrained() {
	if e.sessions == nil {
		return
	}
	if _, ok := e.sessions.CurrentID(); !ok {
		return
	}
	if remaining := e.guest.Load(); len(remaining) > 0 {
		return
	}
	if err := e.sessions.Clear(); err != nil {
		e.log.Warn("cart: guest session clear failed", zap.Error(err))
	}
}

// saveGuest persists guest items best-effort: a persistence failure is
// surfaced in the log, never to the shopper.
func (e *Engine) saveGuest(items []commerce.CartItem) {
	if err := e.guest.Save(items); err != nil {
		e.log.Warn("cart: guest persistence failed", zap.Error(err))
	}
}

// remoteErr maps a failed API call to its caller-visible error, firing the
// session-invalidation side effect on credential failure.
func (e *Engine) remoteErr(ctx context.Context, err error) error {
	if errors.Is(err, commerce.ErrUnauthorized) {
		e.auth.OnUnauthorized(ctx)
	}
	return err
}

// matchesLine matches a guest line by its client id or its product ref;
// callers historically passed either.
func matchesLine(item commerce.CartItem, id string) bool {
	return item.ID == id || item.Product.Ref() == id
}
