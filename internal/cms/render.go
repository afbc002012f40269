package cms

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

// RenderBody converts a content page body to sanitized HTML. Markdown pages
// go through goldmark first; pages authored as HTML are sanitized as-is.
func RenderBody(page ContentPage) (template.HTML, error) {
	body := strings.TrimSpace(page.Body)
	if body == "" {
		return "", nil
	}
	if strings.EqualFold(page.Format, "html") {
		return template.HTML(sanitizer.Sanitize(body)), nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(body), &buf); err != nil {
		return "", err
	}
	return template.HTML(sanitizer.SanitizeBytes(buf.Bytes())), nil
}
