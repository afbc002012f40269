// Package cms serves the storefront's static content pages (shipping,
// returns, privacy, about) from a remote CMS when configured, with local
// markdown files as the fallback source.
package cms

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// ErrNotFound is returned when a CMS resource cannot be located.
var ErrNotFound = errors.New("cms: not found")

// Client provides read-only access to CMS content endpoints.
type Client struct {
	baseURL    string
	http       *http.Client
	contentDir string
}

// NewClient constructs a Client with the provided base URL. An empty base
// URL serves content from local markdown only.
func NewClient(baseURL string) *Client {
	baseURL = strings.TrimSpace(baseURL)
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

func normalizeLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return "en"
	}
	return lang
}
