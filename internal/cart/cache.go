package cart

import (
	"sync"
	"time"

	"eazshop.com/eazshop-web/internal/commerce"
)

// OwnerMode distinguishes whose collection a cache entry describes.
type OwnerMode string

const (
	// ModeGuest is the anonymous shopper backed by local persistence.
	ModeGuest OwnerMode = "guest"
	// ModeAccount is the authenticated customer backed by the remote API.
	ModeAccount OwnerMode = "account"
)

// Kind is the entity family stored under a cache key.
type Kind string

const (
	KindCart     Kind = "cart"
	KindWishlist Kind = "wishlist"
)

// Key addresses one cache entry: a (entity kind, owner mode) pair.
type Key struct {
	Kind Kind
	Mode OwnerMode
}

// CartKey is shorthand for the cart entry of a mode.
func CartKey(mode OwnerMode) Key { return Key{Kind: KindCart, Mode: mode} }

// WishlistKey is shorthand for the wishlist entry of a mode.
func WishlistKey(mode OwnerMode) Key { return Key{Kind: KindWishlist, Mode: mode} }

// Snapshot is one cached collection state. Items is populated for cart keys
// and Entries for wishlist keys.
type Snapshot struct {
	Items     []commerce.CartItem
	Entries   []commerce.WishlistEntry
	Seq       uint64
	UpdatedAt time.Time
}

// Cache is the process-wide read model the UI renders from. It is an
// explicit object handed to the engine and handlers, not package state.
// Writes carry a sequence number allocated before the async operation began;
// a write whose sequence is older than the last applied write for that key
// is rejected, so a slow response can never clobber a fresher one.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]Snapshot
	applied map[Key]uint64
	nextSeq uint64
	now     func() time.Time

	subMu   sync.Mutex
	subs    map[int]func(Key)
	nextSub int
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries: map[Key]Snapshot{},
		applied: map[Key]uint64{},
		now:     time.Now,
		subs:    map[int]func(Key){},
	}
}

// Begin allocates the write sequence for an operation about to suspend on
// the network. Call it before issuing the request and pass the sequence to
// the eventual Put.
func (c *Cache) Begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSeq++
	return c.nextSeq
}

// PutCart applies a cart write. It reports false when the write is stale
// (an operation begun later already wrote this key).
func (c *Cache) PutCart(key Key, seq uint64, items []commerce.CartItem) bool {
	return c.put(key, seq, Snapshot{Items: items})
}

// PutWishlist applies a wishlist write under the same staleness rule.
func (c *Cache) PutWishlist(key Key, seq uint64, entries []commerce.WishlistEntry) bool {
	return c.put(key, seq, Snapshot{Entries: entries})
}

func (c *Cache) put(key Key, seq uint64, snap Snapshot) bool {
	c.mu.Lock()
	if seq < c.applied[key] {
		c.mu.Unlock()
		return false
	}
	snap.Seq = seq
	snap.UpdatedAt = c.now()
	c.entries[key] = snap
	c.applied[key] = seq
	c.mu.Unlock()
	c.notify(key)
	return true
}

// Get returns the snapshot for key, when present.
func (c *Cache) Get(key Key) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.entries[key]
	return snap, ok
}

// Invalidate drops the entry so the next read refetches from its source.
// The staleness watermark is kept: in-flight writes begun before the
// invalidation still apply in order.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	c.notify(key)
}

// Subscribe registers fn to run after every write or invalidation of any
// key. The returned cancel func removes the subscription.
func (c *Cache) Subscribe(fn func(Key)) func() {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()
	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Cache) notify(key Key) {
	c.subMu.Lock()
	fns := make([]func(Key), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()
	for _, fn := range fns {
		fn(key)
	}
}
