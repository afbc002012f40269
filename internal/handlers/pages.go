package handlers

import (
	"eazshop.com/eazshop-web/internal/nav"
)

// PageData is a generic view model for simple pages using the shared layout.
type PageData struct {
	Title     string
	Lang      string
	SEO       SEOData
	Analytics Analytics

	Path        string
	Nav         []nav.RenderedItem
	Breadcrumbs []nav.Crumb

	// Optional per-page view model payloads
	Shop     any
	Product  any
	Cart     any
	Wishlist any
	Account  any
	Content  any
}
