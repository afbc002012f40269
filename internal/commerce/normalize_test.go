package commerce_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"eazshop.com/eazshop-web/internal/commerce"
)

const lineItemsJSON = `[
	{"_id":"item_1","product":{"_id":"prod_1","name":"Kente Tote","defaultPrice":120,"imageCover":"/img/tote.jpg"},"quantity":2},
	{"_id":"item_2","product":{"_id":"prod_2","name":"Shea Butter"},"variant":{"_id":"var_9"},"quantity":1}
]`

func TestCartItemsAcrossEnvelopes(t *testing.T) {
	t.Parallel()

	payloads := map[string]string{
		"bare array":          lineItemsJSON,
		"data.cart.products":  fmt.Sprintf(`{"status":"success","data":{"cart":{"products":%s}}}`, lineItemsJSON),
		"cart.products":       fmt.Sprintf(`{"cart":{"products":%s}}`, lineItemsJSON),
		"products":            fmt.Sprintf(`{"products":%s}`, lineItemsJSON),
		"data.products":       fmt.Sprintf(`{"data":{"products":%s}}`, lineItemsJSON),
		"data.data.products":  fmt.Sprintf(`{"data":{"data":{"products":%s}}}`, lineItemsJSON),
		"data.data.cart":      fmt.Sprintf(`{"data":{"data":{"cart":{"products":%s}}}}`, lineItemsJSON),
	}

	n := commerce.NewNormalizer(nil)
	for name, payload := range payloads {
		payload := payload
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			items := n.CartItems(commerce.Payload(payload))
			require.Len(t, items, 2)
			require.Equal(t, "item_1", items[0].ID)
			require.Equal(t, "prod_1", items[0].Product.Ref())
			require.Equal(t, "Kente Tote", items[0].Product.Name)
			require.Equal(t, 120.0, items[0].Product.Price)
			require.Equal(t, 2, items[0].Quantity)
			require.Equal(t, "var_9", items[1].VariantRefID())
		})
	}
}

func TestCartItemsPrefersDeepestEnvelope(t *testing.T) {
	t.Parallel()

	// A payload that matches more than one shape resolves by shape priority,
	// never by merging.
	payload := fmt.Sprintf(`{"data":{"cart":{"products":%s}},"products":[]}`, lineItemsJSON)
	items := commerce.NewNormalizer(nil).CartItems(commerce.Payload(payload))
	require.Len(t, items, 2)
}

func TestCartItemsUnknownShape(t *testing.T) {
	t.Parallel()

	n := commerce.NewNormalizer(nil)
	for _, payload := range []string{
		`{"status":"success"}`,
		`{"data":{"cart":{}}}`,
		`"nope"`,
		`42`,
		``,
		`{"products":"not-an-array"}`,
	} {
		items := n.CartItems(commerce.Payload(payload))
		require.NotNil(t, items)
		require.Empty(t, items, "payload %q", payload)
	}
}

func TestCartItemsDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	raw := commerce.Payload(fmt.Sprintf(`{"cart":{"products":%s}}`, lineItemsJSON))
	before := string(raw)
	_ = commerce.NewNormalizer(nil).CartItems(raw)
	require.Equal(t, before, string(raw))
}

func TestWishlistEntriesAcrossEnvelopes(t *testing.T) {
	t.Parallel()

	entries := `[
		{"product":{"_id":"prod_7","name":"Bolga Basket","defaultPrice":85}},
		{"product":"prod_8"}
	]`
	payloads := map[string]string{
		"data.wishlist.products": fmt.Sprintf(`{"data":{"wishlist":{"products":%s}}}`, entries),
		"data.products":          fmt.Sprintf(`{"data":{"products":%s}}`, entries),
		"wishlist.products":      fmt.Sprintf(`{"wishlist":{"products":%s}}`, entries),
	}

	n := commerce.NewNormalizer(nil)
	for name, payload := range payloads {
		payload := payload
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := n.WishlistEntries(commerce.Payload(payload))
			require.Len(t, got, 2)
			require.Equal(t, "prod_7", got[0].Product.ID)
			require.Equal(t, "Bolga Basket", got[0].Product.Name)
			require.True(t, got[1].Product.Matches("prod_8"))
		})
	}
}

func TestWishlistEntriesUnknownShape(t *testing.T) {
	t.Parallel()

	got := commerce.NewNormalizer(nil).WishlistEntries(commerce.Payload(`{"data":{}}`))
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestProductHandleDecoding(t *testing.T) {
	t.Parallel()

	var bare commerce.ProductHandle
	require.NoError(t, json.Unmarshal([]byte(`"prod_1"`), &bare))
	require.Equal(t, "prod_1", bare.ID)
	require.True(t, bare.Matches("prod_1"))
	require.False(t, bare.Matches(""))

	var nested commerce.ProductHandle
	require.NoError(t, json.Unmarshal([]byte(`{"id":"prod_2","name":"Cocoa Soap"}`), &nested))
	require.Equal(t, "prod_2", nested.ID)
	require.Equal(t, "Cocoa Soap", nested.Name)
}
