package handlers

import (
    "html/template"

    "eazshop.com/eazshop-web/internal/nav"
)

// HomeData is the view model for the home page.
type HomeData struct {
    Title     string
    Message   string
    Lang      string
    SEO       SEOData
    Analytics Analytics
    // Common layout fields
    Path        string
    Nav         []nav.RenderedItem
    Breadcrumbs []nav.Crumb
}

// BuildHomeData constructs the default view model for the landing page.
func BuildHomeData(lang string) HomeData {
    return HomeData{
        Title:   "EazShop",
        Message: "Welcome to EazShop",
        Lang:    lang,
        SEO: SEOData{
            Title:       "EazShop – Everyday essentials, delivered across Ghana",
            Description: "EazShop - Shop groceries, fashion, and home goods online",
        },
    }
}

// SEOData is a lightweight copy to avoid importing the seo package here.
type SEOData struct {
    Title       string
    Description string
    Canonical   string
    Robots      string
    OG          struct{
        Title       string
        Description string
        Image       string
        Type        string
        URL         string
        SiteName    string
    }
    Twitter     struct{
        Card  string
        Site  string
        Image string
    }
    Alternates []struct{ Href, Hreflang string }
    // JSONLD entries are emitted verbatim into ld+json script tags; values
    // must come from the seo package's marshaller, never user input.
    JSONLD     []template.JS
}
