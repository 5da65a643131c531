// Epub export: packages one rendered page as an epub3 with a generated
// cover, using go-epub.
package main

import (
	"encoding/base64"
	"fmt"
	gohtml "html"
	"strings"

	epub "github.com/go-shiori/go-epub"
)

// epubPage is the rendered page content and metadata going into the book.
type epubPage struct {
	Title string
	URL   string
	Text  string // rendered text, not HTML
}

// pageCSS keeps the text readable on e-readers. Paragraphs preserve the
// renderer's whitespace.
const pageCSS = `body { margin: 1em; line-height: 1.5; }
h1 { font-size: 1.4em; }
.source { font-size: 0.85em; color: #666; margin-bottom: 2em; }
.source a { color: #666; }
img.cover { width: 100%; height: auto; }
p { margin: 0 0 1em 0; white-space: pre-wrap; }`

// textToXHTML converts rendered text into valid XHTML: paragraphs split
// on blank lines, each escaped and wrapped in <p>. Escaping makes the
// result well-formed by construction, so no sanitizer pass is needed.
func textToXHTML(text string) string {
	var b strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.Trim(para, "\n")
		if strings.TrimSpace(para) == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(gohtml.EscapeString(para))
		b.WriteString("</p>\n")
	}
	return b.String()
}

// buildPageBody renders the section XHTML: title, source line, then the
// escaped text paragraphs.
func buildPageBody(page epubPage) string {
	var b strings.Builder
	b.WriteString("<h1>")
	b.WriteString(gohtml.EscapeString(page.Title))
	b.WriteString("</h1>\n")
	if page.URL != "" {
		display := page.URL
		for _, prefix := range []string{"https://", "http://"} {
			display = strings.TrimPrefix(display, prefix)
		}
		fmt.Fprintf(&b, "<p class=\"source\"><a href=\"%s\">%s</a></p>\n",
			gohtml.EscapeString(page.URL), gohtml.EscapeString(display))
	}
	b.WriteString(textToXHTML(page.Text))
	return b.String()
}

// buildEpub writes page as a one-section epub3. The first section is a
// cover page with a PNG generated from the title.
func buildEpub(page epubPage, outputPath string) error {
	if page.Title == "" {
		page.Title = "Untitled"
	}

	e, err := epub.NewEpub(page.Title)
	if err != nil {
		return fmt.Errorf("creating epub: %w", err)
	}
	e.SetLang("en")
	e.SetAuthor("simple-browser")

	cssDataURI := "data:text/css;base64," + base64.StdEncoding.EncodeToString([]byte(pageCSS))
	cssPath, err := e.AddCSS(cssDataURI, "styles.css")
	if err != nil {
		// CSS is optional, continue without it.
		fmt.Fprintf(logOut, "Warning: could not add CSS: %v\n", err)
		cssPath = ""
	}

	if coverPNG, err := generateCover(page.Title); err != nil {
		fmt.Fprintf(logOut, "Warning: could not generate cover: %v\n", err)
	} else {
		coverURI := "data:image/png;base64," + base64.StdEncoding.EncodeToString(coverPNG)
		imgPath, err := e.AddImage(coverURI, "cover.png")
		if err != nil {
			fmt.Fprintf(logOut, "Warning: could not embed cover: %v\n", err)
		} else {
			coverBody := fmt.Sprintf("<img class=\"cover\" src=\"%s\" alt=\"%s\"/>",
				imgPath, gohtml.EscapeString(page.Title))
			if _, err := e.AddSection(coverBody, "Cover", "cover.xhtml", cssPath); err != nil {
				fmt.Fprintf(logOut, "Warning: could not add cover page: %v\n", err)
			}
		}
	}

	if _, err := e.AddSection(buildPageBody(page), page.Title, "page001.xhtml", cssPath); err != nil {
		return fmt.Errorf("adding page section: %w", err)
	}

	if err := e.Write(outputPath); err != nil {
		return fmt.Errorf("writing epub: %w", err)
	}
	return nil
}
