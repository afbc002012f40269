package main

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"eazshop.com/eazshop-web/internal/format"
	"eazshop.com/eazshop-web/internal/handlers"
	mw "eazshop.com/eazshop-web/internal/middleware"
	"eazshop.com/eazshop-web/internal/nav"
)

// viewData is the layout-level view model: the shared page fields plus the
// session-derived bits every template needs.
type viewData struct {
	handlers.PageData
	CSRF      string
	Flash     string
	SignedIn  bool
	UserEmail string
}

// baseView assembles the fields shared by every rendered page.
func (a *app) baseView(r *http.Request, title string) viewData {
	lang := mw.Lang(r)
	s := mw.GetSession(r)

	var v viewData
	v.Title = title
	v.Lang = lang
	v.Path = r.URL.Path
	v.Nav = nav.Build(r.URL.Path)
	v.Breadcrumbs = nav.Breadcrumbs(r.URL.Path)
	v.Analytics = a.analytics
	v.SEO = handlers.SEOData{Title: title + " | EazShop"}
	v.CSRF = s.CSRFToken
	if s.AccessToken != "" {
		v.SignedIn = true
		v.UserEmail = s.Email
	}
	return v
}

// parseTemplates discovers and parses every .tmpl file under the templates
// directory. ParseGlob cannot recurse, so walk instead.
func (a *app) parseTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"t":     a.bundle.T,
		"price": format.FmtPrice,
		"date":  format.FmtDate,
		"now":   time.Now,
	}
	var files []string
	if err := filepath.WalkDir(a.cfg.TemplatesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".tmpl") {
			files = append(files, path)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no templates found under %s", a.cfg.TemplatesDir)
	}
	return template.New("_root").Funcs(funcMap).ParseFiles(files...)
}

func (a *app) templates() (*template.Template, error) {
	a.tmplMu.RLock()
	t := a.tmpl
	a.tmplMu.RUnlock()
	if t != nil && a.cfg.IsProd() {
		return t, nil
	}
	t, err := a.parseTemplates()
	if err != nil {
		return nil, err
	}
	a.tmplMu.Lock()
	a.tmpl = t
	a.tmplMu.Unlock()
	return t, nil
}

// render executes the named template into a buffer first so a mid-render
// failure never emits a half page.
func (a *app) render(w http.ResponseWriter, r *http.Request, code int, name string, data any) {
	t, err := a.templates()
	if err != nil {
		a.log.Error("template parse failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		a.log.Error("template exec failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = buf.WriteTo(w)
}

// clientError reports a request-level failure: JSON for htmx callers, plain
// text otherwise.
func (a *app) clientError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	if mw.IsHTMX(r.Context()) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(`{"error":` + fmt.Sprintf("%q", msg) + `}`))
		return
	}
	http.Error(w, msg, code)
}

func (a *app) notFound(w http.ResponseWriter, r *http.Request) {
	data := a.baseView(r, "Not found")
	a.render(w, r, http.StatusNotFound, "error", data)
}

func (a *app) serverError(w http.ResponseWriter, r *http.Request, err error) {
	a.log.Error("handler failed", zap.String("path", r.URL.Path), zap.Error(err))
	lang := mw.Lang(r)
	a.clientError(w, r, http.StatusInternalServerError, a.bundle.T(lang, "error.generic"))
}
