package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"eazshop.com/eazshop-web/internal/cart"
	"eazshop.com/eazshop-web/internal/commerce"
	mw "eazshop.com/eazshop-web/internal/middleware"
)

func (a *app) handleCartPage(w http.ResponseWriter, r *http.Request) {
	items, err := a.engine.GetCart(r.Context())
	if err != nil {
		a.cartError(w, r, err)
		return
	}
	lang := mw.Lang(r)
	data := a.baseView(r, a.bundle.T(lang, "cart.title"))
	data.Cart = buildCartView(items, lang)
	switch r.URL.Query().Get("sync") {
	case "ok":
		data.Flash = a.bundle.T(lang, "cart.synced")
	case "partial":
		data.Flash = a.bundle.T(lang, "cart.sync_partial")
	}
	a.render(w, r, http.StatusOK, "cart", data)
}

// handleCartTable serves the htmx fragment refreshed after every mutation.
func (a *app) handleCartTable(w http.ResponseWriter, r *http.Request) {
	items, err := a.engine.GetCart(r.Context())
	if err != nil {
		a.cartError(w, r, err)
		return
	}
	lang := mw.Lang(r)
	data := a.baseView(r, "")
	data.Cart = buildCartView(items, lang)
	a.render(w, r, http.StatusOK, "frag_cart_table", data)
}

func (a *app) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.clientError(w, r, http.StatusBadRequest, "invalid form")
		return
	}
	qty := 1
	if raw := r.PostFormValue("quantity"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			a.clientError(w, r, http.StatusBadRequest, "invalid quantity")
			return
		}
		qty = n
	}
	price, _ := strconv.ParseFloat(r.PostFormValue("price"), 64)
	in := cart.AddInput{
		ProductRef: r.PostFormValue("product_ref"),
		VariantRef: r.PostFormValue("variant_ref"),
		Quantity:   qty,
		Name:       r.PostFormValue("name"),
		Price:      price,
		ImageURL:   r.PostFormValue("image_url"),
	}
	if err := a.engine.AddToCart(r.Context(), in); err != nil {
		a.cartError(w, r, err)
		return
	}
	a.respondCart(w, r)
}

func (a *app) handleCartUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.clientError(w, r, http.StatusBadRequest, "invalid form")
		return
	}
	qty, err := strconv.Atoi(r.PostFormValue("quantity"))
	if err != nil {
		a.clientError(w, r, http.StatusBadRequest, "invalid quantity")
		return
	}
	itemID := chi.URLParam(r, "itemID")
	if err := a.engine.UpdateQuantity(r.Context(), itemID, qty); err != nil {
		a.cartError(w, r, err)
		return
	}
	a.respondCart(w, r)
}

func (a *app) handleCartRemove(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	if err := a.engine.RemoveItem(r.Context(), itemID); err != nil {
		a.cartError(w, r, err)
		return
	}
	a.respondCart(w, r)
}

func (a *app) handleCartClear(w http.ResponseWriter, r *http.Request) {
	if err := a.engine.ClearCart(r.Context()); err != nil {
		a.cartError(w, r, err)
		return
	}
	a.respondCart(w, r)
}

// respondCart finishes a cart mutation: fragment for htmx, redirect for
// regular form posts.
func (a *app) respondCart(w http.ResponseWriter, r *http.Request) {
	if mw.IsHTMX(r.Context()) {
		a.handleCartTable(w, r)
		return
	}
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

// cartError maps engine errors onto responses. A 401 from the API already
// tore the session down; send the shopper to the login page.
func (a *app) cartError(w http.ResponseWriter, r *http.Request, err error) {
	lang := mw.Lang(r)
	switch {
	case errors.Is(err, cart.ErrInvalidInput):
		a.clientError(w, r, http.StatusBadRequest, "invalid input")
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
