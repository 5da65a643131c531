// Manual HTTP/1.1 exchange over managed connections. One GET request and
// one response per call, the body framed by Content-Length or connection
// close. No redirects, no decompression, no chunked transfer.
package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

const defaultUA = "Mozilla/5.0 (X11; Linux x86_64; rv:133.0) Gecko/20100101 Firefox/133.0"

// maxResponseBytes caps the response body: a declared content-length
// beyond it is refused, and a close-delimited body stops at it. Set
// from the -max-response-size CLI flag; 0 means unlimited.
var maxResponseBytes int64 = 128 * 1024 * 1024 // 128 MB default

// maxLineBytes bounds a single status or header line.
const maxLineBytes = 8 << 10

// Response is one HTTP response with the body still in raw bytes.
type Response struct {
	Proto      string
	StatusCode int
	Reason     string // may be empty
	// Headers holds lower-cased field names; when a field repeats, the
	// last value wins.
	Headers map[string]string
	Body    []byte
}

// Client speaks HTTP/1.1 over connections leased from Conns.
type Client struct {
	Conns     *Manager
	UserAgent string
	Timeout   time.Duration // per-exchange I/O deadline; 0 means none
}

// Fetch performs one GET exchange for u. A connection handed out from the
// cache may have been closed by the peer while idle, so if the exchange
// fails on a reused connection before the server demonstrably answered,
// Fetch retries exactly once on a fresh connection.
func (c *Client) Fetch(ctx context.Context, u *URL) (*Response, error) {
	conn, err := c.Conns.Get(ctx, u)
	if err != nil {
		return nil, err
	}

	resp, keepAlive, err := c.exchange(ctx, conn, u)
	if err != nil {
		c.Conns.Discard(conn)
		if !conn.reused || errors.Is(err, ErrProtocol) || errors.Is(err, ErrUnsupportedEncoding) {
			return nil, err
		}
		conn, err = c.Conns.Get(ctx, u)
		if err != nil {
			return nil, err
		}
		resp, keepAlive, err = c.exchange(ctx, conn, u)
		if err != nil {
			c.Conns.Discard(conn)
			return nil, err
		}
	}

	if !keepAlive {
		c.Conns.Discard(conn)
	}
	fmt.Fprintf(logOut, "Fetched %s: HTTP %d (%s)\n", u, resp.StatusCode, humanSize(int64(len(resp.Body))))
	return resp, nil
}

// exchange writes one request and reads one response on conn. keepAlive
// reports whether the connection may serve another request afterwards.
func (c *Client) exchange(ctx context.Context, conn *Connection, u *URL) (resp *Response, keepAlive bool, err error) {
	if deadline, ok := exchangeDeadline(ctx, c.Timeout); ok {
		conn.nc.SetDeadline(deadline)
		defer conn.nc.SetDeadline(time.Time{})
	}

	if _, err := conn.nc.Write(requestBytes(u, c.userAgent())); err != nil {
		return nil, false, fmt.Errorf("writing request: %w", err)
	}

	resp, bodyToEOF, err := readResponse(conn.br)
	if err != nil {
		return nil, false, err
	}
	keepAlive = !bodyToEOF && !strings.EqualFold(resp.Headers["connection"], "close")
	return resp, keepAlive, nil
}

// exchangeDeadline picks the earlier of the context deadline and
// now+timeout; ok is false when neither applies.
func exchangeDeadline(ctx context.Context, timeout time.Duration) (time.Time, bool) {
	var d time.Time
	if timeout > 0 {
		d = time.Now().Add(timeout)
	}
	if cd, ok := ctx.Deadline(); ok && (d.IsZero() || cd.Before(d)) {
		d = cd
	}
	return d, !d.IsZero()
}

func (c *Client) userAgent() string {
	if c.UserAgent != "" {
		return c.UserAgent
	}
	return defaultUA
}

// requestBytes renders the one request shape the client sends. Header
// order is fixed; Host carries no port.
func requestBytes(u *URL, userAgent string) []byte {
	var b strings.Builder
	b.WriteString("GET ")
	b.WriteString(u.Path)
	b.WriteString(" HTTP/1.1\r\n")
	b.WriteString("Host: ")
	b.WriteString(u.Host)
	b.WriteString("\r\nConnection: keep-alive\r\nUser-Agent: ")
	b.WriteString(userAgent)
	b.WriteString("\r\n\r\n")
	return []byte(b.String())
}

// readResponse reads a status line, headers and body from br. bodyToEOF
// reports that the body was delimited by connection close, which consumes
// the connection.
func readResponse(br *bufio.Reader) (*Response, bool, error) {
	resp := &Response{Headers: make(map[string]string)}

	line, err := readLine(br)
	if err != nil {
		// io.EOF here means the peer closed an idle connection before
		// the first status byte; the caller decides whether to retry.
		return nil, false, fmt.Errorf("reading status line: %w", err)
	}
	if err := parseStatusLine(line, resp); err != nil {
		return nil, false, err
	}
	if err := readHeaders(br, resp.Headers); err != nil {
		return nil, false, err
	}

	// The client decodes neither transfer nor content codings; refuse
	// anything it would silently garble.
	if v, ok := resp.Headers["transfer-encoding"]; ok {
		return nil, false, fmt.Errorf("%w: transfer-encoding %q", ErrUnsupportedEncoding, v)
	}
	if v, ok := resp.Headers["content-encoding"]; ok && v != "identity" {
		return nil, false, fmt.Errorf("%w: content-encoding %q", ErrUnsupportedEncoding, v)
	}

	bodyToEOF := false
	switch cl, ok := resp.Headers["content-length"]; {
	case !statusAllowsBody(resp.StatusCode):
		// 1xx, 204 and 304 never carry a body.
	case ok:
		n, err := strconv.ParseInt(cl, 10, 64)
		if err != nil || n < 0 {
			return nil, false, fmt.Errorf("%w: bad content-length %q", ErrProtocol, cl)
		}
		if maxResponseBytes > 0 && n > maxResponseBytes {
			return nil, false, fmt.Errorf("%w: content-length %s exceeds maximum allowed size (%s)", ErrProtocol, cl, humanSize(maxResponseBytes))
		}
		// The buffer grows with the bytes that actually arrive; the
		// peer's declared length never sizes an allocation.
		var body bytes.Buffer
		if _, err := io.CopyN(&body, br, n); err != nil {
			return nil, false, fmt.Errorf("%w: body truncated after %s: %v", ErrProtocol, cl, err)
		}
		resp.Body = body.Bytes()
	default:
		body, err := readLimited(br, maxResponseBytes)
		if err != nil {
			return nil, false, err
		}
		resp.Body = body
		bodyToEOF = true
	}
	return resp, bodyToEOF, nil
}

// readLine reads one CRLF- or bare-LF-terminated line from br, without
// the terminator. EOF before any byte passes through as io.EOF; EOF in
// the middle of a line is a framing error.
func readLine(br *bufio.Reader) (string, error) {
	var line []byte
	for {
		b, err := br.ReadByte()
		if err != nil {
			if err == io.EOF && len(line) > 0 {
				return "", fmt.Errorf("%w: connection closed mid-line", ErrProtocol)
			}
			return "", err
		}
		if b == '\n' {
			break
		}
		line = append(line, b)
		if len(line) > maxLineBytes {
			return "", fmt.Errorf("%w: line exceeds %d bytes", ErrProtocol, maxLineBytes)
		}
	}
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return string(line), nil
}

// parseStatusLine parses a line like "HTTP/1.1 200 OK". The status code
// must be three digits in 100..599; the reason phrase may be absent.
func parseStatusLine(line string, resp *Response) error {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 || !strings.HasPrefix(parts[0], "HTTP/1.") {
		return fmt.Errorf("%w: bad status line %q", ErrProtocol, line)
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 3 || code < 100 || code > 599 {
		return fmt.Errorf("%w: bad status code %q", ErrProtocol, parts[1])
	}
	resp.Proto = parts[0]
	resp.StatusCode = code
	if len(parts) == 3 {
		resp.Reason = parts[2]
	}
	return nil
}

// readHeaders reads header lines up to the blank line into h. Field names
// are lower-cased; a repeated field keeps the last value.
func readHeaders(br *bufio.Reader, h map[string]string) error {
	for {
		line, err := readLine(br)
		if err != nil {
			if err == io.EOF {
				return fmt.Errorf("%w: connection closed in headers", ErrProtocol)
			}
			return err
		}
		if line == "" {
			return nil
		}
		i := strings.IndexByte(line, ':')
		if i < 0 {
			return fmt.Errorf("%w: header line %q", ErrProtocol, line)
		}
		h[strings.ToLower(line[:i])] = strings.TrimSpace(line[i+1:])
	}
}

// statusAllowsBody reports whether a status code carries a response body.
func statusAllowsBody(code int) bool {
	return code >= 200 && code != 204 && code != 304
}

// readLimited reads from r until EOF, failing if more than limit bytes
// arrive. limit 0 reads without bound.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	// Read limit+1 bytes so overflow is detectable without a custom reader.
	lr := io.LimitReader(r, limit+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("response body exceeds maximum allowed size (%s)", humanSize(limit))
	}
	return data, nil
}

// humanSize formats a byte count for log lines.
func humanSize(n int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	f := float64(n)
	for _, u := range units {
		if math.Abs(f) < 1024 {
			return fmt.Sprintf("%.1f%s", f, u)
		}
		f /= 1024
	}
	return fmt.Sprintf("%.1f%s", f, units[len(units)-1])
}
