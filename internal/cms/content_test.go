package cms

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const shippingMarkdown = `---
title: Shipping & Delivery
summary: How EazShop delivers nationwide.
updated_at: 2025-03-01
seo:
  description: Delivery timelines and fees.
---
We deliver to **all regions** within 2-5 business days.

## Fees

Orders above GH₵200 ship free.
`

func writePage(t *testing.T, dir, kind, lang, slug, body string) {
	t.Helper()
	path := filepath.Join(dir, kind, lang)
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(path, slug+".md"), []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestGetContentPageLocalFallback(t *testing.T) {
	SetContentCacheDuration(time.Millisecond)
	dir := t.TempDir()
	writePage(t, dir, "pages", "en", "shipping", shippingMarkdown)

	c := NewClient("")
	c.SetContentDir(dir)

	page, err := c.GetContentPage(context.Background(), "pages", "shipping", "en")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if page.Title != "Shipping & Delivery" {
		t.Fatalf("title: %q", page.Title)
	}
	if page.SEO.Description != "Delivery timelines and fees." {
		t.Fatalf("seo: %q", page.SEO.Description)
	}
	if page.UpdatedAt.IsZero() {
		t.Fatal("expected updated_at parsed")
	}
	if !strings.Contains(page.Body, "all regions") {
		t.Fatalf("body: %q", page.Body)
	}
}

func TestGetContentPageLangFallsBackToEnglish(t *testing.T) {
	SetContentCacheDuration(time.Millisecond)
	dir := t.TempDir()
	writePage(t, dir, "pages", "en", "returns", "---\ntitle: Returns\n---\nReturn within 14 days.")

	c := NewClient("")
	c.SetContentDir(dir)

	page, err := c.GetContentPage(context.Background(), "pages", "returns", "fr")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if page.Title != "Returns" {
		t.Fatalf("title: %q", page.Title)
	}
}

func TestGetContentPageUnknownSlug(t *testing.T) {
	SetContentCacheDuration(time.Millisecond)
	c := NewClient("")
	c.SetContentDir(t.TempDir())

	if _, err := c.GetContentPage(context.Background(), "pages", "missing", "en"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := c.GetContentPage(context.Background(), "pages", "../escape", "en"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for traversal, got %v", err)
	}
}

func TestRenderBodySanitizes(t *testing.T) {
	page := ContentPage{Body: "Hello **world**\n\n<script>alert(1)</script>", Format: "markdown"}
	out, err := RenderBody(page)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, "<strong>world</strong>") {
		t.Fatalf("markdown not rendered: %q", s)
	}
	if strings.Contains(s, "<script>") {
		t.Fatalf("script not stripped: %q", s)
	}

	htmlPage := ContentPage{Body: `<p onclick="x()">hi</p>`, Format: "html"}
	out, err = RenderBody(htmlPage)
	if err != nil {
		t.Fatalf("render html: %v", err)
	}
	if strings.Contains(string(out), "onclick") {
		t.Fatalf("attribute not stripped: %q", out)
	}
}
