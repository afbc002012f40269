package commerce

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/oklog/ulid/v2"

	"eazshop.com/eazshop-web/internal/auth"
)

// Fake is an in-memory API implementation. It backs the storefront when no
// API base URL is configured and doubles as the test double for the
// reconciliation suites. Responses reuse the backend's real envelope shapes
// so the Normalizer is exercised on every path.
type Fake struct {
	mu sync.Mutex

	carts     map[string][]CartItem      // account key -> items
	wishlists map[string][]WishlistEntry // account key or guest session id -> entries
	tokens    map[string]string          // email -> issued token

	// AddFailures maps productRef -> error returned from AddToCart, letting
	// tests simulate per-item merge failures.
	AddFailures map[string]error
	// RejectAuth makes every account-scoped call fail with a 401 APIError.
	RejectAuth bool
}

// NewFake returns an empty in-memory backend.
func NewFake() *Fake {
	return &Fake{
		carts:     map[string][]CartItem{},
		wishlists: map[string][]WishlistEntry{},
	}
}

func accountKey(ctx context.Context) string {
	if token, ok := auth.TokenFromContext(ctx); ok {
		return token
	}
	return "anonymous"
}

func (f *Fake) authErr() error {
	if f.RejectAuth {
		return &APIError{Status: http.StatusUnauthorized, Message: "token expired"}
	}
	return nil
}

// cartEnvelope mirrors the backend's {status, data:{cart:{products}}} shape.
func cartEnvelope(items []CartItem) Payload {
	if items == nil {
		items = []CartItem{}
	}
	doc := map[string]any{
		"status": "success",
		"data": map[string]any{
			"cart": map[string]any{"products": items},
		},
	}
	raw, _ := json.Marshal(doc)
	return raw
}

// wishlistEnvelope mirrors the backend's {data:{wishlist:{products}}} shape.
func wishlistEnvelope(entries []WishlistEntry) Payload {
	if entries == nil {
		entries = []WishlistEntry{}
	}
	doc := map[string]any{
		"data": map[string]any{
			"wishlist": map[string]any{"products": entries},
		},
	}
	raw, _ := json.Marshal(doc)
	return raw
}

// GetCart returns the account cart.
func (f *Fake) GetCart(ctx context.Context) (Payload, error) {
	if err := f.authErr(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return cartEnvelope(f.carts[accountKey(ctx)]), nil
}

// AddToCart appends or increments a line on the account cart.
func (f *Fake) AddToCart(ctx context.Context, productRef string, quantity int, variantRef string) (Payload, error) {
	if err := f.authErr(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.AddFailures[productRef]; ok && err != nil {
		return nil, err
	}
	key := accountKey(ctx)
	items := f.carts[key]
	for i := range items {
		if items[i].Product.Ref() == productRef && items[i].VariantRefID() == variantRef {
			items[i].Quantity += quantity
			f.carts[key] = items
			return cartEnvelope(items), nil
		}
	}
	item := CartItem{
		ID:       "item_" + ulid.Make().String(),
		Product:  ProductRef{ID: productRef},
		Quantity: quantity,
	}
	if variantRef != "" {
		item.Variant = &VariantRef{ID: variantRef}
	}
	items = append(items, item)
	f.carts[key] = items
	return cartEnvelope(items), nil
}

// UpdateCartItem sets a line's quantity; quantity 0 removes the line.
func (f *Fake) UpdateCartItem(ctx context.Context, itemID string, quantity int) (Payload, error) {
	if err := f.authErr(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := accountKey(ctx)
	items := f.carts[key]
	out := items[:0]
	for i := range items {
		if items[i].ID == itemID {
			if quantity <= 0 {
				continue
			}
			items[i].Quantity = quantity
		}
		out = append(out, items[i])
	}
	f.carts[key] = out
	return cartEnvelope(out), nil
}

// RemoveCartItem deletes a line from the account cart.
func (f *Fake) RemoveCartItem(ctx context.Context, itemID string) error {
	if err := f.authErr(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := accountKey(ctx)
	items := f.carts[key]
	out := items[:0]
	for i := range items {
		if items[i].ID != itemID {
			out = append(out, items[i])
		}
	}
	f.carts[key] = out
	return nil
}

// ClearCart empties the account cart.
func (f *Fake) ClearCart(ctx context.Context) error {
	if err := f.authErr(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.carts[accountKey(ctx)] = nil
	return nil
}

// GetWishlist returns the account wishlist.
func (f *Fake) GetWishlist(ctx context.Context) (Payload, error) {
	if err := f.authErr(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return wishlistEnvelope(f.wishlists[accountKey(ctx)]), nil
}

// GetOrCreateGuestWishlist returns the wishlist stored under a session id.
func (f *Fake) GetOrCreateGuestWishlist(ctx context.Context, sessionID string) (Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.wishlists[sessionID]; !ok {
		f.wishlists[sessionID] = []WishlistEntry{}
	}
	return wishlistEnvelope(f.wishlists[sessionID]), nil
}

// AddToWishlist adds a product to the account wishlist.
func (f *Fake) AddToWishlist(ctx context.Context, productRef string) (Payload, error) {
	if err := f.authErr(); err != nil {
		return nil, err
	}
	return f.add(accountKey(ctx), productRef)
}

// AddToGuestWishlist adds a product to a guest wishlist.
func (f *Fake) AddToGuestWishlist(ctx context.Context, sessionID, productRef string) (Payload, error) {
	return f.add(sessionID, productRef)
}

func (f *Fake) add(key, productRef string) (Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := f.wishlists[key]
	for _, e := range entries {
		if e.Product.Matches(productRef) {
			return wishlistEnvelope(entries), nil
		}
	}
	entries = append(entries, WishlistEntry{Product: ProductHandle{ID: productRef}})
	f.wishlists[key] = entries
	return wishlistEnvelope(entries), nil
}

// RemoveFromWishlist removes a product from the account wishlist.
func (f *Fake) RemoveFromWishlist(ctx context.Context, productRef string) (Payload, error) {
	if err := f.authErr(); err != nil {
		return nil, err
	}
	return f.remove(accountKey(ctx), productRef), nil
}

// RemoveFromGuestWishlist removes a product from a guest wishlist.
func (f *Fake) RemoveFromGuestWishlist(ctx context.Context, sessionID, productRef string) (Payload, error) {
	return f.remove(sessionID, productRef), nil
}

func (f *Fake) remove(key, productRef string) Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := f.wishlists[key]
	out := entries[:0]
	for _, e := range entries {
		if !e.Product.Matches(productRef) {
			out = append(out, e)
		}
	}
	f.wishlists[key] = out
	return wishlistEnvelope(out)
}

// MergeWishlists unions the guest wishlist into the account wishlist and
// drops the guest record.
func (f *Fake) MergeWishlists(ctx context.Context, sessionID string) (Payload, error) {
	if err := f.authErr(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := accountKey(ctx)
	merged := f.wishlists[key]
	for _, e := range f.wishlists[sessionID] {
		present := false
		for _, have := range merged {
			if have.Product.Matches(e.Product.ID) {
				present = true
				break
			}
		}
		if !present {
			merged = append(merged, e)
		}
	}
	f.wishlists[key] = merged
	delete(f.wishlists, sessionID)
	return wishlistEnvelope(merged), nil
}

// Login accepts any non-empty credentials and mints a bearer token. Account
// state is keyed by token, so two logins with the same email share a cart
// only when the caller reuses the token.
func (f *Fake) Login(ctx context.Context, email, password string) (AccountSession, error) {
	if email == "" || password == "" {
		return AccountSession{}, ErrBadCredentials
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tokens == nil {
		f.tokens = map[string]string{}
	}
	if token, ok := f.tokens[email]; ok {
		return AccountSession{Token: token, UserID: "user_" + token, Email: email}, nil
	}
	token := "tok_" + ulid.Make().String()
	f.tokens[email] = token
	return AccountSession{Token: token, UserID: "user_" + token, Email: email}, nil
}

// CartItems exposes the stored account items for assertions in tests.
func (f *Fake) CartItems(ctx context.Context) []CartItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.carts[accountKey(ctx)]
	dup := make([]CartItem, len(items))
	copy(dup, items)
	return dup
}
