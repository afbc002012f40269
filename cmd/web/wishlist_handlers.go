package main

import (
	"errors"
	"net/http"

	"eazshop.com/eazshop-web/internal/commerce"
	"eazshop.com/eazshop-web/internal/format"
	mw "eazshop.com/eazshop-web/internal/middleware"
	"eazshop.com/eazshop-web/internal/wishlist"
)

// wishlistItem is one rendered wishlist entry.
type wishlistItem struct {
	Ref      string
	Name     string
	Price    string
	ImageURL string
}

// wishlistView is the wishlist page view model.
type wishlistView struct {
	Items []wishlistItem
	Empty bool
}

// toggleView renders the heart button fragment after a toggle.
type toggleView struct {
	Ref  string
	In   bool
	CSRF string
	Lang string
}

func buildWishlistView(entries []commerce.WishlistEntry, lang string) wishlistView {
	var v wishlistView
	for _, e := range entries {
		name := e.Product.Name
		if name == "" {
			name = e.Product.ID
		}
		v.Items = append(v.Items, wishlistItem{
			Ref:      e.Product.ID,
			Name:     name,
			Price:    format.FmtPrice(e.Product.Price, lang),
			ImageURL: e.Product.ImageURL,
		})
	}
	v.Empty = len(v.Items) == 0
	return v
}

func (a *app) handleWishlistPage(w http.ResponseWriter, r *http.Request) {
	entries, err := a.wishes.Snapshot(r.Context())
	if err != nil {
		a.wishlistError(w, r, err)
		return
	}
	lang := mw.Lang(r)
	data := a.baseView(r, a.bundle.T(lang, "wishlist.title"))
	data.Wishlist = buildWishlistView(entries, lang)
	a.render(w, r, http.StatusOK, "wishlist", data)
}

func (a *app) handleWishlistToggle(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.clientError(w, r, http.StatusBadRequest, "invalid form")
		return
	}
	ref := r.PostFormValue("product_ref")
	added, err := a.wishes.Toggle(r.Context(), ref)
	if err != nil {
		a.wishlistError(w, r, err)
		return
	}
	if mw.IsHTMX(r.Context()) {
		s := mw.GetSession(r)
		a.render(w, r, http.StatusOK, "frag_wishlist_button", toggleView{
			Ref:  ref,
			In:   added,
			CSRF: s.CSRFToken,
			Lang: mw.Lang(r),
		})
		return
	}
	http.Redirect(w, r, "/wishlist", http.StatusSeeOther)
}

func (a *app) wishlistError(w http.ResponseWriter, r *http.Request, err error) {
	lang := mw.Lang(r)
	switch {
	case errors.Is(err, wishlist.ErrInvalidProduct), errors.Is(err, wishlist.ErrNoGuestSession):
		a.clientError(w, r, http.StatusBadRequest, "invalid product")
	case errors.Is(err, wishlist.ErrToggleInFlight):
		a.clientError(w, r, http.StatusConflict, "toggle already in progress")
	case errors.Is(err, commerce.ErrUnauthorized):
		if mw.IsHTMX(r.Context()) {
			a.clientError(w, r, http.StatusUnauthorized, a.bundle.T(lang, "error.unauthorized"))
			return
		}
		http.Redirect(w, r, "/account/login", http.StatusSeeOther)
	default:
		a.serverError(w, r, err)
	}
}
