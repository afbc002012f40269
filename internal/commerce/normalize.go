package commerce

import (
	"encoding/json"

	"go.uber.org/zap"
)

// shape names a known payload nesting and the object path leading to the
// embedded products array. An empty path matches a bare top-level array.
type shape struct {
	name string
	path []string
}

// cartShapes lists every cart nesting the backend and the local store have
// produced, in match priority order. Adding support for a new response shape
// is a one-line change here.
var cartShapes = []shape{
	{name: "bare_array", path: nil},
	{name: "data.cart.products", path: []string{"data", "cart", "products"}},
	{name: "cart.products", path: []string{"cart", "products"}},
	{name: "products", path: []string{"products"}},
	{name: "data.products", path: []string{"data", "products"}},
	{name: "data.data.products", path: []string{"data", "data", "products"}},
	{name: "data.data.cart.products", path: []string{"data", "data", "cart", "products"}},
}

// wishlistShapes lists the known wishlist nestings.
var wishlistShapes = []shape{
	{name: "data.wishlist.products", path: []string{"data", "wishlist", "products"}},
	{name: "data.products", path: []string{"data", "products"}},
	{name: "wishlist.products", path: []string{"wishlist", "products"}},
}

// Normalizer extracts canonical item lists from loosely shaped payloads.
// It is total over arbitrary input: an unrecognized or malformed payload
// yields an empty list and a diagnostic log entry, never an error.
type Normalizer struct {
	log *zap.Logger
}

// NewNormalizer builds a Normalizer. A nil logger disables diagnostics.
func NewNormalizer(log *zap.Logger) *Normalizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Normalizer{log: log}
}

// CartItems extracts the cart line items embedded in raw, trying each known
// shape in priority order and returning the first structural match.
func (n *Normalizer) CartItems(raw Payload) []CartItem {
	arr, shapeName, ok := matchShapes(raw, cartShapes)
	if !ok {
		n.diagnose("cart", raw)
		return []CartItem{}
	}
	var items []CartItem
	if err := json.Unmarshal(arr, &items); err != nil {
		n.log.Warn("normalize: cart items decode failed",
			zap.String("shape", shapeName), zap.Error(err))
		return []CartItem{}
	}
	if items == nil {
		items = []CartItem{}
	}
	return items
}

// WishlistEntries extracts wishlist membership records from raw.
func (n *Normalizer) WishlistEntries(raw Payload) []WishlistEntry {
	arr, shapeName, ok := matchShapes(raw, wishlistShapes)
	if !ok {
		n.diagnose("wishlist", raw)
		return []WishlistEntry{}
	}
	var entries []WishlistEntry
	if err := json.Unmarshal(arr, &entries); err != nil {
		n.log.Warn("normalize: wishlist entries decode failed",
			zap.String("shape", shapeName), zap.Error(err))
		return []WishlistEntry{}
	}
	if entries == nil {
		entries = []WishlistEntry{}
	}
	return entries
}

func (n *Normalizer) diagnose(kind string, raw Payload) {
	sample := string(raw)
	if len(sample) > 256 {
		sample = sample[:256]
	}
	n.log.Warn("normalize: unknown payload shape",
		zap.String("kind", kind), zap.String("payload", sample))
}

// matchShapes walks each candidate path through the decoded payload and
// returns the raw array found at the first structurally matching one. The
// input is never mutated; the walk operates on a freshly decoded tree.
func matchShapes(raw Payload, candidates []shape) (json.RawMessage, string, bool) {
	if len(raw) == 0 {
		return nil, "", false
	}
	var root any
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, "", false
	}
	for _, s := range candidates {
		if arr, ok := valueAtPath(root, s.path); ok {
			// Re-encode just the matched array so the caller can decode it
			// into typed items without touching the rest of the payload.
			b, err := json.Marshal(arr)
			if err != nil {
				continue
			}
			return b, s.name, true
		}
	}
	return nil, "", false
}

// valueAtPath descends obj along path and reports the array found there.
// A non-object intermediate or a non-array leaf is not a match.
func valueAtPath(obj any, path []string) ([]any, bool) {
	cur := obj
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	arr, ok := cur.([]any)
	return arr, ok
}
