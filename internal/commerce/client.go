package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"eazshop.com/eazshop-web/internal/auth"
)

// Default HTTP timeout for commerce API interactions.
const (
	defaultTimeout    = 8 * time.Second
	idempotencyHeader = "Idempotency-Key"
)

// ErrUnauthorized is returned when the API rejects the caller's credential.
// Callers treat it as the signal to tear down the local session.
var ErrUnauthorized = errors.New("commerce: unauthorized")

// APIError carries the HTTP status and message of a failed API call.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("commerce: status %d: %s", e.Status, e.Message)
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// API is the remote cart/wishlist surface consumed by the storefront. The
// Client implementation talks to the EazShop commerce service; Fake serves
// in-memory data for tests and backend-less development.
type API interface {
	GetCart(ctx context.Context) (Payload, error)
	AddToCart(ctx context.Context, productRef string, quantity int, variantRef string) (Payload, error)
	UpdateCartItem(ctx context.Context, itemID string, quantity int) (Payload, error)
	RemoveCartItem(ctx context.Context, itemID string) error
	ClearCart(ctx context.Context) error

	GetWishlist(ctx context.Context) (Payload, error)
	GetOrCreateGuestWishlist(ctx context.Context, sessionID string) (Payload, error)
	AddToWishlist(ctx context.Context, productRef string) (Payload, error)
	AddToGuestWishlist(ctx context.Context, sessionID, productRef string) (Payload, error)
	RemoveFromWishlist(ctx context.Context, productRef string) (Payload, error)
	RemoveFromGuestWishlist(ctx context.Context, sessionID, productRef string) (Payload, error)
	MergeWishlists(ctx context.Context, sessionID string) (Payload, error)
}

// Client issues cart and wishlist calls against the commerce API service.
type Client struct {
	baseURL string
	http    *http.Client
	newKey  func() string
}

// NewClient constructs an API client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http: &http.Client{
			Timeout: defaultTimeout,
		},
		newKey: func() string { return "idem_" + ulid.Make().String() },
	}
}

// GetCart fetches the authenticated customer's cart.
func (c *Client) GetCart(ctx context.Context) (Payload, error) {
	return c.do(ctx, http.MethodGet, nil, "cart")
}

// AddToCart adds or increments a line on the authenticated customer's cart.
func (c *Client) AddToCart(ctx context.Context, productRef string, quantity int, variantRef string) (Payload, error) {
	body := map[string]any{
		"productId": strings.TrimSpace(productRef),
		"quantity":  quantity,
	}
	if v := strings.TrimSpace(variantRef); v != "" {
		body["variantId"] = v
	}
	return c.do(ctx, http.MethodPost, body, "cart")
}

// UpdateCartItem sets the quantity of an existing cart line.
func (c *Client) UpdateCartItem(ctx context.Context, itemID string, quantity int) (Payload, error) {
	body := map[string]any{"quantity": quantity}
	return c.do(ctx, http.MethodPatch, body, "cart", "items", itemID)
}

// RemoveCartItem deletes a cart line.
func (c *Client) RemoveCartItem(ctx context.Context, itemID string) error {
	_, err := c.do(ctx, http.MethodDelete, nil, "cart", "items", itemID)
	return err
}

// ClearCart empties the authenticated customer's cart.
func (c *Client) ClearCart(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodDelete, nil, "cart")
	return err
}

// GetWishlist fetches the authenticated customer's wishlist.
func (c *Client) GetWishlist(ctx context.Context) (Payload, error) {
	return c.do(ctx, http.MethodGet, nil, "wishlist")
}

// GetOrCreateGuestWishlist fetches (creating on first use) the wishlist
// keyed by a guest session identifier.
func (c *Client) GetOrCreateGuestWishlist(ctx context.Context, sessionID string) (Payload, error) {
	body := map[string]any{"sessionId": strings.TrimSpace(sessionID)}
	return c.do(ctx, http.MethodPost, body, "wishlist", "guest")
}

// AddToWishlist adds a product to the authenticated customer's wishlist.
func (c *Client) AddToWishlist(ctx context.Context, productRef string) (Payload, error) {
	body := map[string]any{"productId": strings.TrimSpace(productRef)}
	return c.do(ctx, http.MethodPost, body, "wishlist")
}

// AddToGuestWishlist adds a product to a session-scoped guest wishlist.
func (c *Client) AddToGuestWishlist(ctx context.Context, sessionID, productRef string) (Payload, error) {
	body := map[string]any{
		"sessionId": strings.TrimSpace(sessionID),
		"productId": strings.TrimSpace(productRef),
	}
	return c.do(ctx, http.MethodPost, body, "wishlist", "guest", "add")
}

// RemoveFromWishlist removes a product from the authenticated customer's wishlist.
func (c *Client) RemoveFromWishlist(ctx context.Context, productRef string) (Payload, error) {
	return c.do(ctx, http.MethodDelete, nil, "wishlist", productRef)
}

// RemoveFromGuestWishlist removes a product from a guest wishlist.
func (c *Client) RemoveFromGuestWishlist(ctx context.Context, sessionID, productRef string) (Payload, error) {
	body := map[string]any{
		"sessionId": strings.TrimSpace(sessionID),
		"productId": strings.TrimSpace(productRef),
	}
	return c.do(ctx, http.MethodPost, body, "wishlist", "guest", "remove")
}

// MergeWishlists folds the guest wishlist identified by sessionID into the
// authenticated customer's wishlist (server-side set union).
func (c *Client) MergeWishlists(ctx context.Context, sessionID string) (Payload, error) {
	body := map[string]any{"sessionId": strings.TrimSpace(sessionID)}
	return c.do(ctx, http.MethodPost, body, "wishlist", "merge")
}

// do performs a JSON request against the API and returns the raw body.
// Mutating calls carry an idempotency key; the bearer token, when present in
// the request context, is forwarded as-is.
func (c *Client) do(ctx context.Context, method string, body any, segments ...string) (Payload, error) {
	if c == nil || c.baseURL == "" {
		return nil, errors.New("commerce: client not configured")
	}
	endpoint, err := url.JoinPath(c.baseURL, segments...)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set(idempotencyHeader, c.newKey())
	}
	if token, ok := auth.TokenFromContext(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, &APIError{Status: resp.StatusCode, Message: drainError(resp.Body)}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	return Payload(raw), nil
}

func drainError(r io.Reader) string {
	if r == nil {
		return ""
	}
	b, _ := io.ReadAll(io.LimitReader(r, 256))
	return strings.TrimSpace(string(b))
}
