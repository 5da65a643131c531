// Rendering: plain-text extraction from markup, plus the optional
// readability and Markdown output paths.
package main

import (
	"fmt"
	gohtml "html"
	"net/url"
	"regexp"
	"strings"
	"sync"

	readability "codeberg.org/readeck/go-readability"
	"github.com/JohannesKaufmann/dom"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// renderText strips markup from src: text outside tags is emitted with
// entities resolved, script and style contents are skipped, tags and
// comments are dropped. Whitespace in text is kept as-is; there is no
// layout. Plain text passes through unchanged apart from entity
// resolution.
func renderText(src string) string {
	z := html.NewTokenizer(strings.NewReader(src))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			if a := atom.Lookup(name); a == atom.Script || a == atom.Style {
				skip++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if a := atom.Lookup(name); a == atom.Script || a == atom.Style {
				if skip > 0 {
					skip--
				}
			}
		}
	}
}

var (
	mdConverter     *converter.Converter
	mdConverterOnce sync.Once
)

// markdownConverter returns a shared converter that replaces data URI
// images with alt-text placeholders instead of embedding the raw URI.
func markdownConverter() *converter.Converter {
	mdConverterOnce.Do(func() {
		mdConverter = converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		)
		// PriorityEarly (100) runs before the commonmark plugin's img
		// handler (PriorityStandard 500).
		mdConverter.Register.RendererFor("img", converter.TagTypeInline,
			func(ctx converter.Context, w converter.Writer, n *html.Node) converter.RenderStatus {
				src := dom.GetAttributeOr(n, "src", "")
				if !strings.HasPrefix(src, "data:") {
					// Regular URL, let the default handler take over.
					return converter.RenderTryNext
				}
				alt := strings.TrimSpace(dom.GetAttributeOr(n, "alt", ""))
				if alt != "" {
					w.WriteString("[Image: " + alt + "]")
				}
				return converter.RenderSuccess
			},
			converter.PriorityEarly,
		)
	})
	return mdConverter
}

// renderMarkdown converts HTML to CommonMark Markdown.
func renderMarkdown(src string) (string, error) {
	md, err := markdownConverter().ConvertString(src)
	if err != nil {
		return "", fmt.Errorf("markdown conversion: %w", err)
	}
	return strings.TrimSpace(md) + "\n", nil
}

// extractReadable runs readability extraction on a page and returns the
// article HTML and title.
func extractReadable(src string, u *URL) (string, string, error) {
	article, err := readability.FromReader(strings.NewReader(src), stdURL(u))
	if err != nil {
		return "", "", fmt.Errorf("readability extraction: %w", err)
	}
	if article.Content == "" {
		return "", "", fmt.Errorf("readability extracted no content from %s", u)
	}
	return article.Content, article.Title, nil
}

// stdURL converts u to a net/url URL for libraries that resolve relative
// references against the page location.
func stdURL(u *URL) *url.URL {
	switch u.Scheme {
	case "http", "https":
		host := u.Host
		if !u.defaultPort() {
			host = u.hostPort()
		}
		return &url.URL{Scheme: u.Scheme, Host: host, Path: u.Path}
	case "file":
		return &url.URL{Scheme: "file", Path: u.Path}
	default:
		return &url.URL{Scheme: u.Scheme}
	}
}

var (
	titleTagRe = regexp.MustCompile(`(?i)<title[^>]*>([^<]+)</title>`)
	firstH1Re  = regexp.MustCompile(`(?is)<h1[^>]*>(.*?)</h1>`)
	htmlTagRe  = regexp.MustCompile(`<[^>]+>`)
)

// extractTitle pulls a display title from the <title> tag or the first
// <h1>, falling back to "Untitled".
func extractTitle(src string) string {
	if m := titleTagRe.FindStringSubmatch(src); m != nil {
		if title := strings.TrimSpace(gohtml.UnescapeString(m[1])); title != "" {
			return title
		}
	}
	if m := firstH1Re.FindStringSubmatch(src); m != nil {
		if title := strings.TrimSpace(htmlTagRe.ReplaceAllString(m[1], "")); title != "" {
			return title
		}
	}
	return "Untitled"
}
