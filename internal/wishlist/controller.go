// Package wishlist is the single-membership counterpart of the cart engine:
// the same guest/account dual mode over a set-semantics collection, with a
// server-side merge at login instead of a per-item replay.
package wishlist

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"eazshop.com/eazshop-web/internal/cart"
	"eazshop.com/eazshop-web/internal/commerce"
)

var (
	// ErrInvalidProduct indicates an empty product ref.
	ErrInvalidProduct = errors.New("wishlist: invalid product")
	// ErrToggleInFlight rejects a second toggle for a product whose first
	// toggle has not settled, so a double-click cannot issue an add and a
	// remove concurrently.
	ErrToggleInFlight = errors.New("wishlist: toggle in flight")
	// ErrNoGuestSession is returned by MergeToAccount when there is no
	// guest wishlist to merge.
	ErrNoGuestSession = errors.New("wishlist: no guest wishlist to merge")
	// ErrNotAuthenticated is returned when the merge is invoked without a
	// signed-in customer.
	ErrNotAuthenticated = errors.New("wishlist: not authenticated")

	errAPIRequired   = errors.New("wishlist: commerce API is required")
	errCacheRequired = errors.New("wishlist: cache is required")
	errAuthRequired  = errors.New("wishlist: auth state is required")
)

// Sessions is the guest session identity surface the controller consumes.
type Sessions interface {
	GetOrCreateID() string
	CurrentID() (string, bool)
	Clear() error
}

// ControllerDeps wires the controller's collaborators.
type ControllerDeps struct {
	API       commerce.API
	Sessions  Sessions
	Cache     *cart.Cache
	Auth      cart.AuthState
	Normalize *commerce.Normalizer
	Logger    *zap.Logger
}

// Controller owns wishlist membership for both owner modes.
type Controller struct {
	api       commerce.API
	sessions  Sessions
	cache     *cart.Cache
	auth      cart.AuthState
	normalize *commerce.Normalizer
	log       *zap.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewController validates dependencies and constructs the controller.
func NewController(deps ControllerDeps) (*Controller, error) {
	if deps.API == nil {
		return nil, errAPIRequired
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
	return &Controller{
		api:       deps.API,
		sessions:  deps.Sessions,
		cache:     deps.Cache,
		auth:      deps.Auth,
		normalize: normalize,
		log:       log,
		inflight:  map[string]struct{}{},
	}, nil
}

func (c *Controller) mode(ctx context.Context) cart.OwnerMode {
	if c.auth.IsAuthenticated(ctx) {
		return cart.ModeAccount
	}
	return cart.ModeGuest
}

// Snapshot fetches the current wishlist, normalizes it, and refreshes the
// cache. A guest without a session id owns no server-side wishlist and gets
// an empty snapshot without creating one.
func (c *Controller) Snapshot(ctx context.Context) ([]commerce.WishlistEntry, error) {
	mode := c.mode(ctx)
	key := cart.WishlistKey(mode)
	seq := c.cache.Begin()

	var (
		payload commerce.Payload
		err     error
	)
	if mode == cart.ModeAccount {
		payload, err = c.api.GetWishlist(ctx)
	} else {
		id, ok := c.sessions.CurrentID()
		if !ok {
			entries := []commerce.WishlistEntry{}
			c.cache.PutWishlist(key, seq, entries)
			return entries, nil
		}
		payload, err = c.api.GetOrCreateGuestWishlist(ctx, id)
	}
	if err != nil {
		return nil, c.remoteErr(ctx, err)
	}
	entries := c.normalize.WishlistEntries(payload)
	c.cache.PutWishlist(key, seq, entries)
	return entries, nil
}

// Cached returns the last cached entries without a network round trip.
func (c *Controller) Cached(ctx context.Context) ([]commerce.WishlistEntry, bool) {
	snap, ok := c.cache.Get(cart.WishlistKey(c.mode(ctx)))
	if !ok {
		return nil, false
	}
	return snap.Entries, true
}

// IsInWishlist reports membership from a freshly fetched snapshot, matching
// both bare product ids and nested product references.
func (c *Controller) IsInWishlist(ctx context.Context, productRef string) (bool, error) {
	if productRef == "" {
		return false, ErrInvalidProduct
	}
	entries, err := c.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	return membership(entries, productRef), nil
}

// Toggle adds the product when absent and removes it when present. Exactly
// one of the two operations executes per call, decided by a fresh membership
// check; concurrent toggles for the same product are rejected.
func (c *Controller) Toggle(ctx context.Context, productRef string) (added bool, err error) {
	if productRef == "" {
		return false, ErrInvalidProduct
	}

	c.mu.Lock()
	if _, busy := c.inflight[productRef]; busy {
		c.mu.Unlock()
		return false, ErrToggleInFlight
	}
	c.inflight[productRef] = struct{}{}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.inflight, productRef)
		c.mu.Unlock()
	}()

	member, err := c.IsInWishlist(ctx, productRef)
	if err != nil {
		return false, err
	}

	mode := c.mode(ctx)
	key := cart.WishlistKey(mode)
	seq := c.cache.Begin()

	var payload commerce.Payload
	if member {
		if mode == cart.ModeAccount {
			payload, err = c.api.RemoveFromWishlist(ctx, productRef)
		} else {
			id, ok := c.sessions.CurrentID()
			if !ok {
				return false, ErrNoGuestSession
			}
			payload, err = c.api.RemoveFromGuestWishlist(ctx, id, productRef)
		}
	} else {
		if mode == cart.ModeAccount {
			payload, err = c.api.AddToWishlist(ctx, productRef)
		} else {
			payload, err = c.api.AddToGuestWishlist(ctx, c.sessions.GetOrCreateID(), productRef)
		}
	}
	if err != nil {
		return false, c.remoteErr(ctx, err)
	}

	c.cache.PutWishlist(key, seq, c.normalize.WishlistEntries(payload))
	return !member, nil
}

// MergeToAccount folds the guest wishlist into the signed-in customer's
// wishlist (server-side set union), then destroys the guest session id and
// invalidates both wishlist cache entries.
func (c *Controller) MergeToAccount(ctx context.Context) error {
	if !c.auth.IsAuthenticated(ctx) {
		return ErrNotAuthenticated
	}
	id, ok := c.sessions.CurrentID()
	if !ok {
		return ErrNoGuestSession
	}
	if _, err := c.api.MergeWishlists(ctx, id); err != nil {
		return c.remoteErr(ctx, err)
	}
	if err := c.sessions.Clear(); err != nil {
		c.log.Warn("wishlist: guest session clear failed", zap.Error(err))
	}
	c.cache.Invalidate(cart.WishlistKey(cart.ModeAccount))
	c.cache.Invalidate(cart.WishlistKey(cart.ModeGuest))
	return nil
}

func (c *Controller) remoteErr(ctx context.Context, err error) error {
	if errors.Is(err, commerce.ErrUnauthorized) {
		c.auth.OnUnauthorized(ctx)
	}
	return err
}

func membership(entries []commerce.WishlistEntry, productRef string) bool {
	for _, e := range entries {
		if e.Product.Matches(productRef) {
			return true
		}
	}
	return false
}
