package main

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestMain(m *testing.M) {
	logOut = io.Discard
	os.Exit(m.Run())
}

// httpResponse builds a 200 response with Content-Length framing.
func httpResponse(contentType, body string) string {
	return fmt.Sprintf("HTTP/1.1 200 OK\r\nContent-Type: %s\r\nContent-Length: %d\r\n\r\n%s",
		contentType, len(body), body)
}

func testConfig(args ...string) cliConfig {
	return cliConfig{
		timeout:   5 * time.Second,
		userAgent: "test-agent",
		args:      args,
	}
}

// runToFile runs cfg with output pointed at a temp file and returns what
// was written.
func runToFile(t *testing.T, cfg cliConfig) string {
	t.Helper()
	cfg.output = filepath.Join(t.TempDir(), "out.txt")
	if err := run(cfg); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(cfg.output)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestRun_TextOutput(t *testing.T) {
	page := `<html><head><title>Greeting</title></head><body><h1>Hi</h1><p>there</p></body></html>`
	s := newFakeServer(t, serveOnce(httpResponse("text/html; charset=utf-8", page)))

	got := runToFile(t, testConfig("http://"+s.ln.Addr().String()+"/"))
	if !strings.Contains(got, "Hi") || !strings.Contains(got, "there") {
		t.Errorf("output = %q, want the page text", got)
	}
	if strings.Contains(got, "<h1>") {
		t.Errorf("output = %q, tags should be stripped", got)
	}
}

func TestRun_ViewSource(t *testing.T) {
	page := `<html><body><h1>Hi</h1></body></html>`
	s := newFakeServer(t, serveOnce(httpResponse("text/html", page)))

	got := runToFile(t, testConfig("view-source:http://"+s.ln.Addr().String()+"/"))
	if got != page {
		t.Errorf("got %q, want raw source %q", got, page)
	}
}

func TestRun_DataURL(t *testing.T) {
	got := runToFile(t, testConfig("data:text/html,<b>bold</b> text"))
	if got != "bold text" {
		t.Errorf("got %q, want %q", got, "bold text")
	}
}

func TestRun_FileURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	if err := os.WriteFile(path, []byte("plain file contents\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got := runToFile(t, testConfig("file://"+path))
	if got != "plain file contents\n" {
		t.Errorf("got %q, want the file contents", got)
	}
}

func TestRun_Markdown(t *testing.T) {
	page := `<html><body><h1>Hello</h1><p>Visit <a href="https://example.com">the site</a>.</p></body></html>`
	s := newFakeServer(t, serveOnce(httpResponse("text/html", page)))

	cfg := testConfig("http://" + s.ln.Addr().String() + "/")
	cfg.markdown = true
	got := runToFile(t, cfg)
	if !strings.Contains(got, "# Hello") {
		t.Errorf("output = %q, want a markdown heading", got)
	}
	if !strings.Contains(got, "[the site](https://example.com)") {
		t.Errorf("output = %q, want a markdown link", got)
	}
}

func TestRun_Reader(t *testing.T) {
	page := `<!DOCTYPE html>
<html>
<head><title>Reader Test - Example Site</title></head>
<body>
	<nav><a href="/">Home</a> | <a href="/blog">Blog</a></nav>
	<article>
		<h1>Reader Test</h1>
		<p>This is the main article content that should be preserved by the
		reader mode extraction. It needs to be long enough that readability
		identifies it as the primary content of the page.</p>
		<p>A second paragraph with additional discussion and analysis to
		further establish this as the main content area. Readability uses
		text density heuristics so substantial text is required here.</p>
		<p>Third paragraph continuing the article with important information
		that should definitely be kept in the final output.</p>
	</article>
	<footer><p>Copyright 2024 | Privacy Policy</p></footer>
</body>
</html>`
	s := newFakeServer(t, serveOnce(httpResponse("text/html; charset=utf-8", page)))

	cfg := testConfig("http://" + s.ln.Addr().String() + "/")
	cfg.reader = true
	got := runToFile(t, cfg)
	if !strings.Contains(got, "main article content") {
		t.Errorf("output = %q, want the article body", got)
	}
	if strings.Contains(got, "Privacy Policy") {
		t.Error("boilerplate should be dropped in reader mode")
	}
}

func TestRun_Epub(t *testing.T) {
	page := `<html><head><title>Example Domain</title></head><body><h1>Example Domain</h1><p>Some text.</p></body></html>`
	s := newFakeServer(t, serveOnce(httpResponse("text/html", page)))

	cfg := testConfig("http://" + s.ln.Addr().String() + "/")
	cfg.epubMode = true
	cfg.output = filepath.Join(t.TempDir(), "page.epub")
	if err := run(cfg); err != nil {
		t.Fatal(err)
	}

	zr, err := zip.OpenReader(cfg.output)
	if err != nil {
		t.Fatalf("not a valid epub: %v", err)
	}
	defer zr.Close()

	pageFile := findZipFile(zr, "EPUB/xhtml/page001.xhtml")
	if !strings.Contains(pageFile, "Example Domain") {
		t.Error("epub page should contain the title")
	}
	if !strings.Contains(pageFile, "Some text.") {
		t.Error("epub page should contain the rendered text")
	}
}

func TestRun_EpubTitleOverride(t *testing.T) {
	page := `<html><head><title>Original</title></head><body><p>text</p></body></html>`
	s := newFakeServer(t, serveOnce(httpResponse("text/html", page)))

	cfg := testConfig("http://" + s.ln.Addr().String() + "/")
	cfg.epubMode = true
	cfg.titleOverride = "Custom Title"
	cfg.output = filepath.Join(t.TempDir(), "custom.epub")
	if err := run(cfg); err != nil {
		t.Fatal(err)
	}

	zr, err := zip.OpenReader(cfg.output)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	pageFile := findZipFile(zr, "EPUB/xhtml/page001.xhtml")
	if !strings.Contains(pageFile, "Custom Title") {
		t.Error("epub page should use the overridden title")
	}
}

func TestRun_ArgErrors(t *testing.T) {
	epubNoOutput := testConfig("data:text/plain,x")
	epubNoOutput.epubMode = true

	tests := []struct {
		name string
		cfg  cliConfig
	}{
		{"no arguments", testConfig()},
		{"two arguments", testConfig("http://a.example/", "http://b.example/")},
		{"epub without -o", epubNoOutput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := run(tt.cfg); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestRun_MalformedURL(t *testing.T) {
	err := run(testConfig("notaurl"))
	if !errors.Is(err, ErrMalformedURL) {
		t.Errorf("err = %v, want ErrMalformedURL", err)
	}
}

func TestRun_ConnectError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	cfg := testConfig("http://" + addr + "/")
	cfg.timeout = 2 * time.Second
	err = run(cfg)
	if !errors.Is(err, ErrConnect) {
		t.Errorf("err = %v, want ErrConnect", err)
	}
}
