package commerce_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"eazshop.com/eazshop-web/internal/auth"
	"eazshop.com/eazshop-web/internal/commerce"
)

func TestClientAddToCart(t *testing.T) {
	t.Parallel()

	var (
		gotPath string
		gotAuth string
		gotIdem string
		gotBody map[string]any
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotIdem = r.Header.Get("Idempotency-Key")
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"cart":{"products":[{"_id":"item_1","product":{"_id":"prod_1"},"quantity":3}]}}}`))
	}))
	t.Cleanup(ts.Close)

	c := commerce.NewClient(ts.URL)
	ctx := auth.WithToken(context.Background(), "tok-123")
	payload, err := c.AddToCart(ctx, "prod_1", 3, "var_9")
	require.NoError(t, err)

	require.Equal(t, "POST /cart", gotPath)
	require.Equal(t, "Bearer tok-123", gotAuth)
	require.NotEmpty(t, gotIdem)
	require.Equal(t, "prod_1", gotBody["productId"])
	require.Equal(t, 3.0, gotBody["quantity"])
	require.Equal(t, "var_9", gotBody["variantId"])

	items := commerce.NewNormalizer(nil).CartItems(payload)
	require.Len(t, items, 1)
	require.Equal(t, 3, items[0].Quantity)
}

func TestClientGetCartOmitsMutationHeaders(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/cart", r.URL.Path)
		require.Empty(t, r.Header.Get("Idempotency-Key"))
		require.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(ts.Close)

	_, err := commerce.NewClient(ts.URL).GetCart(context.Background())
	require.NoError(t, err)
}

func TestClientUnauthorized(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "token expired", http.StatusUnauthorized)
	}))
	t.Cleanup(ts.Close)

	_, err := commerce.NewClient(ts.URL).GetWishlist(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, commerce.ErrUnauthorized)

	var apiErr *commerce.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.Equal(t, "token expired", apiErr.Message)
}

func TestClientServerError(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(ts.Close)

	err := commerce.NewClient(ts.URL).ClearCart(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, commerce.ErrUnauthorized)
}

func TestClientWishlistRoutes(t *testing.T) {
	t.Parallel()

	var calls []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"wishlist":{"products":[]}}}`))
	}))
	t.Cleanup(ts.Close)

	c := commerce.NewClient(ts.URL)
	ctx := context.Background()

	_, err := c.GetOrCreateGuestWishlist(ctx, "guest_1_ab")
	require.NoError(t, err)
	_, err = c.AddToGuestWishlist(ctx, "guest_1_ab", "prod_1")
	require.NoError(t, err)
	_, err = c.RemoveFromGuestWishlist(ctx, "guest_1_ab", "prod_1")
	require.NoError(t, err)
	_, err = c.RemoveFromWishlist(ctx, "prod_2")
	require.NoError(t, err)
	_, err = c.MergeWishlists(ctx, "guest_1_ab")
	require.NoError(t, err)

	require.Equal(t, []string{
		"POST /wishlist/guest",
		"POST /wishlist/guest/add",
		"POST /wishlist/guest/remove",
		"DELETE /wishlist/prod_2",
		"POST /wishlist/merge",
	}, calls)
}
