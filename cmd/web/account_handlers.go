package main

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"eazshop.com/eazshop-web/internal/auth"
	"eazshop.com/eazshop-web/internal/commerce"
	mw "eazshop.com/eazshop-web/internal/middleware"
	"eazshop.com/eazshop-web/internal/wishlist"
)

// accountView is the signed-in account page view model.
type accountView struct {
	Email string
}

func (a *app) handleAccount(w http.ResponseWriter, r *http.Request) {
	s := mw.GetSession(r)
	if s.AccessToken == "" {
		http.Redirect(w, r, "/account/login", http.StatusSeeOther)
		return
	}
	lang := mw.Lang(r)
	data := a.baseView(r, a.bundle.T(lang, "nav.account"))
	data.Account = accountView{Email: s.Email}
	a.render(w, r, http.StatusOK, "account", data)
}

func (a *app) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	lang := mw.Lang(r)
	data := a.baseView(r, a.bundle.T(lang, "account.signin"))
	a.render(w, r, http.StatusOK, "login", data)
}

// handleLogin signs the customer in and then runs the guest-to-account
// handover: wishlist merge first (server-side union keyed by the guest
// session id), then the per-item cart replay. A partial cart merge is
// surfaced as a flash, never as a failed login.
func (a *app) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.clientError(w, r, http.StatusBadRequest, "invalid form")
		return
	}
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	sess, err := a.identity.Login(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, commerce.ErrBadCredentials) {
			lang := mw.Lang(r)
			data := a.baseView(r, a.bundle.T(lang, "account.signin"))
			data.Flash = a.bundle.T(lang, "error.generic")
			a.render(w, r, http.StatusUnauthorized, "login", data)
			return
		}
		a.serverError(w, r, err)
		return
	}

	s := mw.GetSession(r)
	s.SignIn(sess.UserID, sess.Email, sess.Token)

	// The request context predates the sign-in; attach the fresh token for
	// the merge calls below.
	ctx := auth.WithToken(r.Context(), sess.Token)

	if err := a.wishes.MergeToAccount(ctx); err != nil && !errors.Is(err, wishlist.ErrNoGuestSession) {
		a.log.Warn("wishlist merge failed", zap.Error(err))
	}
	report, err := a.engine.SyncGuestCartToAccount(ctx)
	if err != nil {
		a.log.Warn("cart merge failed", zap.Error(err))
	}

	switch {
	case report.Failed > 0:
		http.Redirect(w, r, "/cart?sync=partial", http.StatusSeeOther)
	case report.Success > 0:
		http.Redirect(w, r, "/cart?sync=ok", http.StatusSeeOther)
	default:
		http.Redirect(w, r, "/account", http.StatusSeeOther)
	}
}

func (a *app) handleLogout(w http.ResponseWriter, r *http.Request) {
	mw.GetSession(r).SignOut()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
