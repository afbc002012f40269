// Package guest holds the anonymous shopper's local state: the persisted
// guest cart and the guest session identifier. It is the Go analogue of the
// browser's localStorage/sessionStorage pair: a small key/value store rooted
// at a data directory, surviving process restarts.
package guest

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"eazshop.com/eazshop-web/internal/commerce"
)

// Persisted keys. Each key maps to one file under the store directory.
const (
	keyGuestCart    = "guestCart"
	keyGuestSession = "guestSessionId"
)

// Store is a file-backed key/value persistence layer for guest-scoped state.
type Store struct {
	dir string
	log *zap.Logger
}

// NewStore opens (creating if needed) a store rooted at dir.
func NewStore(dir string, log *zap.Logger) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("guest: store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{dir: dir, log: log}, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Get reads the raw value stored under key.
func (s *Store) Get(key string) ([]byte, bool) {
	raw, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, false
	}
	return raw, true
}

// Put writes value under key atomically (temp file + rename).
func (s *Store) Put(key string, value []byte) error {
	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path(key))
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// CartStore wraps the raw store with the guest-cart schema and the fail-soft
// contract: corrupted local state resets to an empty cart and never surfaces
// an error to the shopper-facing path.
type CartStore struct {
	store     *Store
	normalize *commerce.Normalizer
	log       *zap.Logger
}

// NewCartStore builds a CartStore over the shared key/value store.
func NewCartStore(store *Store, normalize *commerce.Normalizer, log *zap.Logger) *CartStore {
	if log == nil {
		log = zap.NewNop()
	}
	if normalize == nil {
		normalize = commerce.NewNormalizer(log)
	}
	return &CartStore{store: store, normalize: normalize, log: log}
}

// Load reads the guest cart. Missing or unparsable data resets persistence
// to an empty cart document and returns the empty item list.
func (c *CartStore) Load() []commerce.CartItem {
	raw, ok := c.store.Get(keyGuestCart)
	if !ok {
		c.reset()
		return []commerce.CartItem{}
	}
	if !json.Valid(raw) {
		c.log.Warn("guest: cart data unparsable, resetting")
		c.reset()
		return []commerce.CartItem{}
	}
	// Historical saves wrapped the document in extra envelopes; extract
	// through the shared normalizer rather than assuming one schema.
	return c.normalize.CartItems(raw)
}

// Save persists items under the canonical {"cart":{"products":[...]}}
// schema. Persistence is best-effort for guests: the error is returned for
// observability but callers log it and continue.
func (c *CartStore) Save(items []commerce.CartItem) error {
	doc := commerce.NewGuestCartDocument(items)
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if err := c.store.Put(keyGuestCart, raw); err != nil {
		c.log.Warn("guest: cart save failed", zap.Error(err))
		return err
	}
	return nil
}

func (c *CartStore) reset() {
	raw, _ := json.Marshal(commerce.NewGuestCartDocument(nil))
	if err := c.store.Put(keyGuestCart, raw); err != nil {
		c.log.Warn("guest: cart reset failed", zap.Error(err))
	}
}
