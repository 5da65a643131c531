// Loading resources by scheme: http and https through the HTTP client,
// file from the local filesystem, data from the URL itself.
package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"strings"

	"github.com/vincent-petithory/dataurl"
	"golang.org/x/text/encoding/htmlindex"
)

// Loader turns a parsed URL into response headers and a text body.
type Loader struct {
	Client *Client
}

// Load resolves u and returns the headers and the body as text. File
// errors keep their os error kinds (fs.ErrNotExist, fs.ErrPermission);
// network and framing failures carry the client's error kinds. Status
// codes are not filtered: an error page renders like any other page.
func (l *Loader) Load(ctx context.Context, u *URL) (map[string]string, string, error) {
	switch u.Scheme {
	case "http", "https":
		resp, err := l.Client.Fetch(ctx, u)
		if err != nil {
			return nil, "", err
		}
		return resp.Headers, decodeText(resp.Body, charsetParam(resp.Headers["content-type"])), nil

	case "file":
		b, err := os.ReadFile(u.Path)
		if err != nil {
			return nil, "", err
		}
		return map[string]string{}, string(b), nil

	case "data":
		headers := map[string]string{"content-type": u.MediaType}
		// The payload is used as-is unless the media type demands base64.
		if !strings.HasSuffix(u.MediaType, ";base64") {
			return headers, u.Data, nil
		}
		du, err := dataurl.DecodeString("data:" + u.MediaType + "," + u.Data)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrMalformedURL, err)
		}
		// The bare base64 marker is not a media type parameter; strip it
		// before extracting the charset.
		charset := charsetParam(strings.TrimSuffix(u.MediaType, ";base64"))
		return headers, decodeText(du.Data, charset), nil

	default:
		return nil, "", fmt.Errorf("%w: no loader for scheme %q", ErrMalformedURL, u.Scheme)
	}
}

// charsetParam extracts the charset parameter from a Content-Type value,
// or "" when absent or unparseable.
func charsetParam(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}

// decodeText decodes raw bytes using a WHATWG charset label, defaulting
// to UTF-8. Decoding never fails: unknown labels fall back to UTF-8 and
// invalid sequences become U+FFFD.
func decodeText(raw []byte, label string) string {
	if label == "" {
		label = "utf-8"
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		fmt.Fprintf(logOut, "Unknown charset %q, decoding as UTF-8\n", label)
		return strings.ToValidUTF8(string(raw), "�")
	}
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), "�")
	}
	return strings.ToValidUTF8(string(decoded), "�")
}
