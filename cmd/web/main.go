// Command web is the EazShop storefront server: guest and account carts,
// wishlists, static content pages, and the login-time merge of guest state
// into a customer account.
package main

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMid "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"eazshop.com/eazshop-web/internal/auth"
	"eazshop.com/eazshop-web/internal/cart"
	"eazshop.com/eazshop-web/internal/cms"
	"eazshop.com/eazshop-web/internal/commerce"
	"eazshop.com/eazshop-web/internal/config"
	"eazshop.com/eazshop-web/internal/guest"
	"eazshop.com/eazshop-web/internal/handlers"
	"eazshop.com/eazshop-web/internal/i18n"
	mw "eazshop.com/eazshop-web/internal/middleware"
	"eazshop.com/eazshop-web/internal/status"
	"eazshop.com/eazshop-web/internal/wishlist"
)

// app holds the wired storefront: one instance per process, shared by all
// handlers.
type app struct {
	cfg       config.Config
	log       *zap.Logger
	bundle    *i18n.Bundle
	analytics handlers.Analytics

	api      commerce.API
	identity commerce.Identity
	verifier *auth.Verifier
	engine   *cart.Engine
	wishes   *wishlist.Controller
	cms      *cms.Client
	status   *status.Client

	tmplMu sync.RWMutex
	tmpl   *template.Template
}

func newApp(cfg config.Config, log *zap.Logger) (*app, error) {
	mw.Configure(cfg.SessionSigningKey, cfg.IsProd(), log)

	bundle, err := i18n.Load(cfg.LocalesDir, "en", []string{"en", "fr"})
	if err != nil {
		return nil, err
	}

	store, err := guest.NewStore(cfg.DataDir, log)
	if err != nil {
		return nil, err
	}
	normalize := commerce.NewNormalizer(log)
	cartStore := guest.NewCartStore(store, normalize, log)
	sessions := guest.NewSessionProvider(store)

	var (
		api      commerce.API
		identity commerce.Identity
	)
	if cfg.APIBaseURL == "" {
		log.Warn("no API base URL configured, using in-memory backend")
		fake := commerce.NewFake()
		api, identity = fake, fake
	} else {
		client := commerce.NewClient(cfg.APIBaseURL)
		api, identity = client, client
	}

	var verifier *auth.Verifier
	if cfg.TokenSecret != "" {
		verifier = auth.NewVerifier([]byte(cfg.TokenSecret))
	}
	authState := auth.NewState(verifier, func(ctx context.Context) {
		if s := mw.SessionFromContext(ctx); s != nil {
			s.SignOut()
		}
	}, log)

	cache := cart.NewCache()
	engine, err := cart.NewEngine(cart.EngineDeps{
		API:       api,
		GuestCart: cartStore,
		Sessions:  sessions,
		Cache:     cache,
		Auth:      authState,
		Normalize: normalize,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}
	wishes, err := wishlist.NewController(wishlist.ControllerDeps{
		API:       api,
		Sessions:  sessions,
		Cache:     cache,
		Auth:      authState,
		Normalize: normalize,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}

	cmsClient := cms.NewClient(cfg.CMSBaseURL)
	cmsClient.SetContentDir(cfg.ContentDir)

	a := &app{
		cfg:       cfg,
		log:       log,
		bundle:    bundle,
		analytics: handlers.LoadAnalyticsFromEnv(),
		api:       api,
		identity:  identity,
		verifier:  verifier,
		engine:    engine,
		wishes:    wishes,
		cms:       cmsClient,
		status:    status.NewClient(cfg.StatusBaseURL),
	}
	if cfg.IsProd() {
		// Parse once; dev mode reparses per request for template editing.
		t, err := a.parseTemplates()
		if err != nil {
			return nil, err
		}
		a.tmpl = t
	}
	return a, nil
}

func (a *app) router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMid.RequestID)
	// RealIP trusts X-Forwarded-For; only the edge proxy may set it in prod.
	r.Use(chiMid.RealIP)
	r.Use(mw.Logger(a.log))
	r.Use(chiMid.Recoverer)
	r.Use(chiMid.Compress(5))
	r.Use(chiMid.Timeout(30 * time.Second))
	r.Use(mw.Session)
	r.Use(mw.HTMX)
	r.Use(mw.Auth(a.verifier))
	r.Use(mw.Locale(a.bundle))
	r.Use(mw.VaryLocale)
	r.Use(mw.CSRF)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	assets := mw.AssetsWithCache(filepath.Join(a.cfg.PublicDir, "assets"))
	r.Handle("/assets/*", http.StripPrefix("/assets", assets))

	r.Get("/", a.handleHome)

	r.Get("/cart", a.handleCartPage)
	r.Get("/cart/table", a.handleCartTable)
	r.Post("/cart/items", a.handleCartAdd)
	r.Post("/cart/items/{itemID}", a.handleCartUpdate)
	r.Post("/cart/items/{itemID}/delete", a.handleCartRemove)
	r.Post("/cart/clear", a.handleCartClear)

	r.Get("/wishlist", a.handleWishlistPage)
	r.Post("/wishlist/toggle", a.handleWishlistToggle)

	r.Get("/account", a.handleAccount)
	r.Get("/account/login", a.handleLoginPage)
	r.Post("/account/login", a.handleLogin)
	r.Post("/account/logout", a.handleLogout)

	r.Get("/pages/{slug}", a.handleContentPage)
	r.Get("/status", a.handleStatusPage)

	return r
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.IsProd() {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	if lvl, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zc.Build()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	log, err := newLogger(cfg)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	a, err := newApp(cfg, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("storefront listening", zap.String("addr", cfg.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown incomplete", zap.Error(err))
	}
	log.Info("storefront stopped")
}
