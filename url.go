// URL parsing for the schemes the browser speaks: http, https, file and
// data, optionally prefixed with view-source:.
package main

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// defaultMediaType is assumed for data: URLs that omit the media type,
// per RFC 2397.
const defaultMediaType = "text/plain;charset=US-ASCII"

// URL is a parsed resource locator. Host, Port and Path are set for
// http/https, Path alone for file, MediaType and Data for data.
type URL struct {
	Scheme     string // "http", "https", "file" or "data"
	ViewSource bool   // show raw source instead of rendered text
	Host       string
	Port       int    // 80 for http and 443 for https unless explicit
	Path       string // request path (http/https) or filesystem path (file)
	MediaType  string
	Data       string // payload after the comma, still encoded
}

// ParseURL parses raw into a URL. Unsupported schemes, missing hosts, bad
// ports and data URLs without a comma all fail with ErrMalformedURL.
func ParseURL(raw string) (*URL, error) {
	raw = strings.TrimSpace(raw)

	if rest, ok := strings.CutPrefix(raw, "view-source:"); ok {
		u, err := ParseURL(rest)
		if err != nil {
			return nil, err
		}
		u.ViewSource = true
		return u, nil
	}

	if rest, ok := strings.CutPrefix(raw, "data:"); ok {
		mediaType, payload, ok := strings.Cut(rest, ",")
		if !ok {
			return nil, fmt.Errorf("%w: data URL %q has no comma", ErrMalformedURL, raw)
		}
		if mediaType == "" {
			mediaType = defaultMediaType
		}
		return &URL{Scheme: "data", MediaType: mediaType, Data: payload}, nil
	}

	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return nil, fmt.Errorf("%w: missing scheme in %q", ErrMalformedURL, raw)
	}

	switch scheme {
	case "file":
		if rest == "" {
			return nil, fmt.Errorf("%w: empty file path in %q", ErrMalformedURL, raw)
		}
		return &URL{Scheme: scheme, Path: rest}, nil
	case "http", "https":
		return parseAuthority(scheme, rest)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrMalformedURL, scheme)
	}
}

// parseAuthority splits "host[:port][/path]" for http and https URLs.
func parseAuthority(scheme, rest string) (*URL, error) {
	authority, path, _ := strings.Cut(rest, "/")
	path = "/" + path

	host := authority
	port := 80
	if scheme == "https" {
		port = 443
	}
	// An explicit port is everything after the last colon.
	if i := strings.LastIndex(authority, ":"); i >= 0 {
		p, err := strconv.Atoi(authority[i+1:])
		if err != nil || p < 1 || p > 65535 {
			return nil, fmt.Errorf("%w: bad port in %q", ErrMalformedURL, authority)
		}
		host = authority[:i]
		port = p
	}
	if host == "" {
		return nil, fmt.Errorf("%w: empty host", ErrMalformedURL)
	}
	return &URL{Scheme: scheme, Host: host, Port: port, Path: path}, nil
}

// String reconstructs the URL. Default ports are omitted; parsing the
// result yields an equivalent URL.
func (u *URL) String() string {
	var b strings.Builder
	if u.ViewSource {
		b.WriteString("view-source:")
	}
	switch u.Scheme {
	case "data":
		b.WriteString("data:")
		b.WriteString(u.MediaType)
		b.WriteByte(',')
		b.WriteString(u.Data)
	case "file":
		b.WriteString("file://")
		b.WriteString(u.Path)
	default:
		b.WriteString(u.Scheme)
		b.WriteString("://")
		b.WriteString(u.Host)
		if !u.defaultPort() {
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(u.Port))
		}
		b.WriteString(u.Path)
	}
	return b.String()
}

func (u *URL) defaultPort() bool {
	return (u.Scheme == "http" && u.Port == 80) || (u.Scheme == "https" && u.Port == 443)
}

// hostPort is the dial address for http and https URLs.
func (u *URL) hostPort() string {
	return net.JoinHostPort(u.Host, strconv.Itoa(u.Port))
}
