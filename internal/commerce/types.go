package commerce

import (
	"encoding/json"
	"strings"
	"time"
)

// Payload is an undecoded response body from the commerce API (or the local
// guest store). Cart and wishlist payloads arrive in several historical
// nesting shapes, so callers extract items through the Normalizer rather
// than decoding into a fixed envelope.
type Payload = json.RawMessage

// ProductRef carries the product identity plus the display snapshot captured
// when the line item was created. The backend has emitted the identifier
// under both "_id" and "id" over time, so Ref() resolves whichever is set.
type ProductRef struct {
	ID       string  `json:"_id,omitempty"`
	AltID    string  `json:"id,omitempty"`
	Name     string  `json:"name,omitempty"`
	Price    float64 `json:"defaultPrice,omitempty"`
	ImageURL string  `json:"imageCover,omitempty"`
}

// Ref returns the canonical product identifier.
func (p ProductRef) Ref() string {
	if p.ID != "" {
		return p.ID
	}
	return p.AltID
}

// VariantRef identifies a chosen product variant.
type VariantRef struct {
	ID string `json:"_id"`
}

// CartItem is a single cart line. ID is server-assigned for account carts and
// client-generated ("guest-<unix-ms>-<productRef>") for guest carts until the
// item is merged into an account.
type CartItem struct {
	ID       string      `json:"_id"`
	Product  ProductRef  `json:"product"`
	Variant  *VariantRef `json:"variant,omitempty"`
	Quantity int         `json:"quantity"`
}

// VariantRefID returns the variant identifier or "" when the item has none.
func (i CartItem) VariantRefID() string {
	if i.Variant == nil {
		return ""
	}
	return i.Variant.ID
}

// GuestCartDocument is the canonical persisted shape of the guest cart,
// matching the "guestCart" local schema: {"cart":{"products":[...]}}.
type GuestCartDocument struct {
	Cart struct {
		Products []CartItem `json:"products"`
	} `json:"cart"`
}

// NewGuestCartDocument wraps items in the persisted envelope.
func NewGuestCartDocument(items []CartItem) GuestCartDocument {
	var doc GuestCartDocument
	doc.Cart.Products = items
	if doc.Cart.Products == nil {
		doc.Cart.Products = []CartItem{}
	}
	return doc
}

// WishlistEntry is a single wishlist membership record.
type WishlistEntry struct {
	Product ProductHandle `json:"product"`
	AddedAt time.Time     `json:"addedAt,omitempty"`
}

// ProductHandle tolerates the two product encodings seen in wishlist
// payloads: a bare id string, or a nested object carrying "_id"/"id".
type ProductHandle struct {
	ID       string
	Name     string
	Price    float64
	ImageURL string
}

func (h *ProductHandle) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if strings.HasPrefix(trimmed, `"`) {
		var id string
		if err := json.Unmarshal(b, &id); err != nil {
			return err
		}
		h.ID = id
		return nil
	}
	var ref ProductRef
	if err := json.Unmarshal(b, &ref); err != nil {
		return err
	}
	h.ID = ref.Ref()
	h.Name = ref.Name
	h.Price = ref.Price
	h.ImageURL = ref.ImageURL
	return nil
}

func (h ProductHandle) MarshalJSON() ([]byte, error) {
	ref := ProductRef{ID: h.ID, Name: h.Name, Price: h.Price, ImageURL: h.ImageURL}
	return json.Marshal(ref)
}

// Matches reports whether the entry refers to the given product.
func (h ProductHandle) Matches(productRef string) bool {
	return productRef != "" && h.ID == productRef
}
