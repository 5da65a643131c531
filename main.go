// simple-browser: fetch a URL and render it as readable text.
//
//	simple-browser [options] <URL>
//
// Supports http, https, file and data URLs, plus the view-source: prefix
// for raw page source. Output modes: plain text (default), markdown
// (-md), reader mode (-reader), or a one-page epub (-epub).
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"
)

// logOut is the writer for informational/progress output.
// In silent mode it is set to io.Discard so only errors reach the user.
var logOut io.Writer = os.Stderr

// cliConfig holds parsed command-line options.
type cliConfig struct {
	output        string
	titleOverride string
	timeout       time.Duration
	userAgent     string
	insecure      bool
	reader        bool
	markdown      bool
	epubMode      bool
	args          []string
}

// run executes the main application logic, returning any error.
func run(cfg cliConfig) error {
	if len(cfg.args) != 1 {
		return fmt.Errorf("exactly one URL argument required")
	}
	if cfg.epubMode && cfg.output == "" {
		return fmt.Errorf("-epub requires -o output.epub")
	}

	u, err := ParseURL(cfg.args[0])
	if err != nil {
		return err
	}

	conns := NewManager(cfg.timeout, cfg.insecure)
	defer conns.CloseAll()
	client := &Client{Conns: conns, UserAgent: cfg.userAgent, Timeout: cfg.timeout}
	loader := &Loader{Client: client}

	_, body, err := loader.Load(context.Background(), u)
	if err != nil {
		return err
	}

	title := cfg.titleOverride
	if title == "" {
		title = extractTitle(body)
	}

	if cfg.reader && !u.ViewSource {
		content, rTitle, err := extractReadable(body, u)
		if err != nil {
			fmt.Fprintf(logOut, "Reader mode unavailable: %v\n", err)
		} else {
			body = content
			if cfg.titleOverride == "" && rTitle != "" {
				title = rTitle
			}
		}
	}

	var out string
	switch {
	case u.ViewSource:
		out = body
	case cfg.markdown:
		out, err = renderMarkdown(body)
		if err != nil {
			return fmt.Errorf("rendering markdown: %w", err)
		}
	default:
		out = renderText(body)
	}

	if cfg.epubMode {
		page := epubPage{Title: title, URL: u.String(), Text: out}
		if err := buildEpub(page, cfg.output); err != nil {
			return fmt.Errorf("building epub: %w", err)
		}
		fmt.Fprintf(logOut, "✓ %s\n", cfg.output)
		return nil
	}

	if cfg.output != "" {
		if err := os.WriteFile(cfg.output, []byte(out), 0644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		return nil
	}
	os.Stdout.WriteString(out)
	return nil
}

func main() {
	output := flag.String("o", "", "Output file (default: stdout)")
	titleOverride := flag.String("title", "", "Override the page title")
	timeout := flag.Duration("timeout", 30*time.Second, "Connect and response timeout")
	userAgent := flag.String("user-agent", defaultUA, "HTTP User-Agent header")
	maxSize := flag.Int64("max-response-size", maxResponseBytes, "Largest response body accepted, in bytes")
	insecure := flag.Bool("insecure", false, "Skip TLS certificate verification")
	reader := flag.Bool("reader", false, "Extract the main article before rendering")
	markdown := flag.Bool("md", false, "Render as markdown instead of plain text")
	epubMode := flag.Bool("epub", false, "Write the page as an epub (requires -o)")
	silent := flag.Bool("silent", false, "Suppress all output except errors (for pipeline use)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: simple-browser [options] <URL>\n\n")
		fmt.Fprintf(os.Stderr, "Fetch a URL (http, https, file or data, with an optional view-source:\nprefix) and render it as text.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *silent {
		logOut = io.Discard
	}
	maxResponseBytes = *maxSize

	cfg := cliConfig{
		output:        *output,
		titleOverride: *titleOverride,
		timeout:       *timeout,
		userAgent:     *userAgent,
		insecure:      *insecure,
		reader:        *reader,
		markdown:      *markdown,
		epubMode:      *epubMode,
		args:          flag.Args(),
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
