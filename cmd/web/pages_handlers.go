package main

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"eazshop.com/eazshop-web/internal/cms"
	"eazshop.com/eazshop-web/internal/format"
	"eazshop.com/eazshop-web/internal/handlers"
	mw "eazshop.com/eazshop-web/internal/middleware"
	"eazshop.com/eazshop-web/internal/seo"
	"eazshop.com/eazshop-web/internal/status"
)

const siteURL = "https://www.eazshop.com"

func (a *app) handleHome(w http.ResponseWriter, r *http.Request) {
	lang := mw.Lang(r)
	home := handlers.BuildHomeData(lang)
	data := a.baseView(r, home.Title)
	data.SEO = home.SEO
	data.SEO.JSONLD = []template.JS{
		template.JS(seo.JSON(seo.Organization("EazShop", siteURL, siteURL+"/assets/img/logo.png"))),
		template.JS(seo.JSON(seo.WebSite("EazShop", siteURL, ""))),
	}
	data.Content = home
	a.render(w, r, http.StatusOK, "home", data)
}

// contentView carries a CMS page plus its sanitized body.
type contentView struct {
	Page    cms.ContentPage
	Body    template.HTML
	Updated string
}

func (a *app) handleContentPage(w http.ResponseWriter, r *http.Request) {
	lang := mw.Lang(r)
	slug := chi.URLParam(r, "slug")
	page, err := a.cms.GetContentPage(r.Context(), "pages", slug, lang)
	if err != nil {
		if errors.Is(err, cms.ErrNotFound) {
			a.notFound(w, r)
			return
		}
		a.serverError(w, r, err)
		return
	}
	body, err := cms.RenderBody(page)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	data := a.baseView(r, page.Title)
	if page.SEO.Title != "" {
		data.SEO.Title = page.SEO.Title
	}
	data.SEO.Description = page.SEO.Description
	cv := contentView{Page: page, Body: body}
	if !page.UpdatedAt.IsZero() {
		cv.Updated = format.FmtDate(page.UpdatedAt, lang)
		data.SEO.JSONLD = []template.JS{
			template.JS(seo.JSON(seo.Article(page.Title, siteURL+r.URL.Path, page.SEO.OGImage, "", page.UpdatedAt.Format("2006-01-02")))),
		}
	}
	data.Content = cv
	a.render(w, r, http.StatusOK, "content", data)
}

// statusView carries the platform status summary for rendering.
type statusView struct {
	Summary status.Summary
	Updated string
}

func (a *app) handleStatusPage(w http.ResponseWriter, r *http.Request) {
	lang := mw.Lang(r)
	summary, err := a.status.FetchSummary(r.Context(), lang)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	data := a.baseView(r, summary.StateLabel)
	data.Content = statusView{
		Summary: summary,
		Updated: format.FmtDate(summary.UpdatedAt, lang),
	}
	a.render(w, r, http.StatusOK, "status", data)
}
